package transport

import "time"

type CheckResultDTO struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty" validate:"max=200"`
}

type SubmitInspectionRequest struct {
	AppointmentID string                    `json:"appointmentId" validate:"required,uuid"`
	Checklist     map[string]CheckResultDTO `json:"checklist" validate:"required,min=1,dive"`
	FinalStatus   string                    `json:"finalStatus" validate:"required,verdict"`
	Notes         string                    `json:"notes" validate:"max=2000"`
	PhotoIDs      []string                  `json:"photoIds" validate:"max=20,dive,uuid"`
}

type ListInspectionsQuery struct {
	FinalStatus string `form:"status" validate:"omitempty,verdict"`
	Page        int    `form:"page" validate:"omitempty,min=1"`
	Limit       int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type InspectionResponse struct {
	ID                string                    `json:"id"`
	AppointmentID     string                    `json:"appointmentId"`
	TechnicianID      string                    `json:"technicianId"`
	Checklist         map[string]CheckResultDTO `json:"checklist"`
	FinalStatus       string                    `json:"finalStatus"`
	Notes             *string                   `json:"notes,omitempty"`
	PhotoIDs          []string                  `json:"photoIds"`
	CreatedAt         time.Time                 `json:"createdAt"`
	AppointmentSynced *bool                     `json:"appointmentSynced,omitempty"`
}

type InspectionListResponse struct {
	Items []InspectionResponse `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page,omitempty"`
	Limit int                  `json:"limit,omitempty"`
}

type InspectionStatsResponse struct {
	TotalInspections int            `json:"totalInspections"`
	ByStatus         map[string]int `json:"byStatus"`
}
