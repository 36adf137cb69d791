package resolution

import "strings"

// Status is the lifecycle position of one tracked resolution.
type Status string

const (
	// StatusResolving marks a resolution that started and has not settled.
	StatusResolving Status = "resolving"
	// StatusFinished marks a resolution that completed successfully.
	StatusFinished Status = "finished"
	// StatusError marks a resolution that failed. Records in this state carry
	// the failure value.
	StatusError Status = "error"
)

// Statuses lists every recognised status in lifecycle order.
var Statuses = []Status{StatusResolving, StatusFinished, StatusError}

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the recognised statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusResolving, StatusFinished, StatusError:
		return true
	default:
		return false
	}
}

// Settled reports whether s is terminal. Errors count as settled.
func (s Status) Settled() bool {
	return s == StatusFinished || s == StatusError
}

// ParseStatus converts text into a Status. Unrecognised values return false.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", false
	}
	return status, true
}
