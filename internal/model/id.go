package model

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewExecutionID generates a new ULID string identifying one invocation.
// ULIDs sort by creation time, which keeps execution topics readable in
// broker and log output.
func NewExecutionID() string {
	return ulid.Make().String()
}

// NewFunctionID generates a new UUID string identifying a deployed function.
func NewFunctionID() string {
	return uuid.New().String()
}
