package transport

import (
	"encoding/json"
	"time"
)

type ListAuditQuery struct {
	Service string `form:"service" validate:"omitempty,max=100"`
	Level   string `form:"level" validate:"omitempty,max=10"`
	Skip    int    `form:"skip" validate:"omitempty,min=0"`
	Limit   int    `form:"limit" validate:"omitempty,min=1,max=500"`
}

type AuditEntryResponse struct {
	ID         string          `json:"id"`
	Service    string          `json:"service"`
	EventType  string          `json:"eventType"`
	Level      string          `json:"level"`
	ActorID    *string         `json:"actorId,omitempty"`
	SubjectRef *string         `json:"subjectRef,omitempty"`
	Message    string          `json:"message"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Color      string          `json:"color"`
}

type AuditListResponse struct {
	Items []AuditEntryResponse `json:"items"`
	Total int                  `json:"total"`
	Skip  int                  `json:"skip"`
	Limit int                  `json:"limit"`
}

type LevelCountResponse struct {
	Level string `json:"level"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

type AuditStatsResponse struct {
	Total        int                  `json:"total"`
	ByLevel      []LevelCountResponse `json:"byLevel"`
	ByService    map[string]int       `json:"byService"`
	RecentErrors []AuditEntryResponse `json:"recentErrors"`
}

type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}
