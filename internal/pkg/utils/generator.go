package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateRequestID() string {
	return uuid.NewString()
}

// GenerateEntityID prefixes ids so entity types are recognizable in logs
// and queue payloads (e.g. batch_, report_, alert_, session_).
func GenerateEntityID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// ParseLabTimestamp accepts RFC3339 or the date-only form some laboratory
// systems emit; zero time on anything else.
func ParseLabTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02", value); err == nil {
		return ts
	}
	return time.Time{}
}
