package idgen

import (
	"github.com/google/uuid"
)

// ID prefixes for different records
const (
	PrefixRun     = "run_"
	PrefixRequest = "req_"
)

// NewRun generates a new power-off run ID with run_ prefix
func NewRun() string {
	return PrefixRun + uuid.New().String()
}

// NewRequest generates an ID for a web UI request
func NewRequest() string {
	return PrefixRequest + uuid.New().String()
}
