package models

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the input against its struct tags
func (in CreateJobInput) Validate() error {
	return validate.Struct(in)
}

// Validate checks the input against its struct tags
func (in CreateDocumentInput) Validate() error {
	return validate.Struct(in)
}
