package platform

import "github.com/google/uuid"

// NewID returns a random UUID used as a primary key.
func NewID() string {
	return uuid.New().String()
}

// IsID reports whether s is a canonical UUID string.
func IsID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
