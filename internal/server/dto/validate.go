// Defines the validation interface for requests.

package dto

import "github.com/google/uuid"

// Validatable is implemented by request types that can validate their fields.
// Wrap in handler_wrapper.go uses this interface as a type constraint so every
// request type provides validation.
type Validatable interface {
	Validate() error
}

func validateID(id uuid.UUID) error {
	if id == uuid.Nil {
		return MissingField("id")
	}
	return nil
}
