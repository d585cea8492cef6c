package transport

import "time"

type FileResponse struct {
	ID               string    `json:"id"`
	OwnerRef         string    `json:"ownerRef"`
	Category         string    `json:"category"`
	PhotoType        *string   `json:"photoType,omitempty"`
	OriginalFilename string    `json:"originalFilename"`
	ContentType      string    `json:"contentType"`
	SizeBytes        int64     `json:"sizeBytes"`
	UploadedBy       string    `json:"uploadedBy"`
	Description      *string   `json:"description,omitempty"`
	UploadedAt       time.Time `json:"uploadedAt"`
	URL              string    `json:"url,omitempty"`
}

type FileListResponse struct {
	Items []FileResponse `json:"items"`
	Total int            `json:"total"`
}

type FileStatsResponse struct {
	TotalFiles int            `json:"totalFiles"`
	TotalBytes int64          `json:"totalBytes"`
	ByCategory map[string]int `json:"byCategory"`
}
