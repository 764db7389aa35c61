package models

import (
	"time"
)

// Document is a record identified by a sequential code: an inventory part,
// a purchase or a quotation. Number holds the series identifier (C7PART0001).
type Document struct {
	ID        string    `json:"id" db:"id"`
	TenantID  int64     `json:"tenant_id" db:"tenant_id"`
	Series    string    `json:"series" db:"-"`
	Number    string    `json:"number" db:"number"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateDocumentInput carries the caller-supplied fields of a new document
type CreateDocumentInput struct {
	Title string `json:"title" validate:"required,max=200"`
}
