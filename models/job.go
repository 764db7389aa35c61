package models

import (
	"time"
)

// Job represents a workshop job card
type Job struct {
	ID           string    `json:"id" db:"id"`
	TenantID     int64     `json:"tenant_id" db:"tenant_id"`
	JobNumber    string    `json:"job_number" db:"job_number"`
	Token        string    `json:"token" db:"token"`
	CustomerName string    `json:"customer_name" db:"customer_name"`
	Description  string    `json:"description" db:"description"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CreateJobInput carries the caller-supplied fields of a new job
type CreateJobInput struct {
	CustomerName string `json:"customer_name" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=2000"`
}
