package models

import "time"

// Invoice status values.
const (
	InvoicePaid   = "paid"
	InvoiceFailed = "failed"
)

// Invoice is an immutable billing record created once per successful payment.
type Invoice struct {
	ID        string    `json:"id" db:"id"`
	UserID    int64     `json:"-" db:"user_id"`
	PlanName  string    `json:"planName" db:"plan_name"`
	Amount    string    `json:"amount" db:"amount"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"date" db:"created_at"`
}
