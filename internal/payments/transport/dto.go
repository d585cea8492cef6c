package transport

import "time"

type InitiatePaymentRequest struct {
	AppointmentID string  `json:"appointmentId" validate:"required,uuid"`
	PaymentType   string  `json:"paymentType" validate:"required,payment_type"`
	Amount        float64 `json:"amount" validate:"required,gt=0,lte=10000"`
	PaymentMethod string  `json:"paymentMethod" validate:"omitempty,oneof=card cash transfer"`
}

type SettlePaymentRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=completed failed"`
}

type VerifyPaymentQuery struct {
	AppointmentID string `form:"appointment_id" validate:"required,uuid"`
	PaymentType   string `form:"payment_type" validate:"required,payment_type"`
}

type PaymentResponse struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointmentId"`
	PayerID       string     `json:"payerId"`
	Amount        float64    `json:"amount"`
	PaymentType   string     `json:"paymentType"`
	PaymentMethod string     `json:"paymentMethod"`
	Status        string     `json:"status"`
	TransactionID *string    `json:"transactionId,omitempty"`
	InvoiceNumber *string    `json:"invoiceNumber,omitempty"`
	SettledAt     *time.Time `json:"settledAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type VerifyPaymentResponse struct {
	Verified bool             `json:"verified"`
	Payment  *PaymentResponse `json:"payment,omitempty"`
}

type PaymentListResponse struct {
	Items []PaymentResponse `json:"items"`
	Total int               `json:"total"`
}
