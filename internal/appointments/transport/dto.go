package transport

import "time"

type CreateAppointmentRequest struct {
	VehicleRegistration string    `json:"vehicleRegistration" validate:"required,registration"`
	VehicleBrand        string    `json:"vehicleBrand" validate:"required,min=1,max=50"`
	VehicleModel        string    `json:"vehicleModel" validate:"required,min=1,max=50"`
	VehicleType         string    `json:"vehicleType" validate:"required,vehicle_type"`
	RequestedAt         time.Time `json:"requestedAt" validate:"required"`
	Notes               string    `json:"notes" validate:"max=500"`
	IdempotencyKey      string    `json:"idempotencyKey" validate:"omitempty,max=100"`
}

type ConfirmAppointmentRequest struct {
	BookingPaymentID string `json:"bookingPaymentId" validate:"required,uuid"`
}

type ListAppointmentsQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
	Page   int    `form:"page" validate:"omitempty,min=1"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type SlotsQuery struct {
	Date string `form:"date" validate:"required,datetime=2006-01-02"`
}

type ScheduleQuery struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
}

type AppointmentResponse struct {
	ID                  string     `json:"id"`
	CustomerID          string     `json:"customerId"`
	VehicleRegistration string     `json:"vehicleRegistration"`
	VehicleBrand        string     `json:"vehicleBrand"`
	VehicleModel        string     `json:"vehicleModel"`
	VehicleType         string     `json:"vehicleType"`
	RequestedAt         time.Time  `json:"requestedAt"`
	Status              string     `json:"status"`
	InspectionStatus    string     `json:"inspectionStatus"`
	BookingPaymentID    *string    `json:"bookingPaymentId,omitempty"`
	InspectionPaymentID *string    `json:"inspectionPaymentId,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
	ConfirmedAt         *time.Time `json:"confirmedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	CancelledAt         *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type AppointmentListResponse struct {
	Items []AppointmentResponse `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page,omitempty"`
	Limit int                   `json:"limit,omitempty"`
}

type SlotResponse struct {
	Start     time.Time `json:"start"`
	Display   string    `json:"display"`
	Available bool      `json:"available"`
}

type DayScheduleResponse struct {
	Date           string         `json:"date"`
	Weekday        string         `json:"weekday"`
	Slots          []SlotResponse `json:"slots"`
	AvailableCount int            `json:"availableCount"`
}

type VehicleSummaryResponse struct {
	Appointment            AppointmentResponse `json:"appointment"`
	BookingPaid            bool                `json:"bookingPaid"`
	InspectionPaid         bool                `json:"inspectionPaid"`
	HasReport              bool                `json:"hasReport"`
	CanDownloadCertificate bool                `json:"canDownloadCertificate"`
}
