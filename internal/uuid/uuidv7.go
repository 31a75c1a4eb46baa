package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7. Version 7 ids embed a millisecond timestamp
// followed by a monotonic counter, so ids generated by one process sort in
// creation order even within the same millisecond. The event log relies on
// this for its newest-first ordering.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fallback to a random UUIDv4 if the time source misbehaves.
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse validates and parses a UUID string
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
