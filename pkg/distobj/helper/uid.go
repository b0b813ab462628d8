package helper

import "github.com/google/uuid"

// GenerateUID yields a process-unique identifier for component
// handles.
func GenerateUID() string {
	return uuid.New().String()
}
