package common

import (
	"github.com/google/uuid"
)

// NewID generates a unique entity identifier
func NewID() string {
	return uuid.New().String()
}
