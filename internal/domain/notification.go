package domain

import (
	"fmt"
	"time"
)

// Endpoint and method recorded in every api_logs row.
const (
	NotifyEndpoint = "/work/notifyme"
	NotifyMethod   = "POST"
)

// System identifies a downstream backend.
type System string

const (
	System1 System = "1"
	System2 System = "2"
)

// String renders the wire name, e.g. "system1".
func (s System) String() string { return "system" + string(s) }

func (s System) IsValid() bool {
	switch s {
	case System1, System2:
		return true
	}
	return false
}

// TargetSystem selects which backends receive a request.
type TargetSystem string

const (
	TargetSystem1   TargetSystem = "1"
	TargetSystem2   TargetSystem = "2"
	TargetSystemAll TargetSystem = "0"
)

func (t TargetSystem) IsValid() bool {
	switch t {
	case TargetSystem1, TargetSystem2, TargetSystemAll:
		return true
	}
	return false
}

// TargetSet returns the backends to write to, in processing order.
func (t TargetSystem) TargetSet() []System {
	if t == TargetSystemAll {
		return []System{System1, System2}
	}
	return []System{System(t)}
}

// NotificationRequest is a validated request to the notify endpoint.
type NotificationRequest struct {
	DmID         int64
	NotifyCheck  int
	TargetSystem TargetSystem
}

func (r NotificationRequest) Validate() error {
	if r.NotifyCheck != 0 && r.NotifyCheck != 1 {
		return fmt.Errorf("%w: notify_check must be 0 or 1", ErrValidation)
	}
	if !r.TargetSystem.IsValid() {
		return fmt.Errorf("%w: invalid target system %q", ErrValidation, r.TargetSystem)
	}
	return nil
}

// NotificationCheck is the row persisted to notification_check.
type NotificationCheck struct {
	ID          int64
	DmID        int64
	NotifyCheck int
	CrDate      time.Time
	UpdateDate  time.Time
}

// APILog is the audit row persisted to api_logs in the same transaction.
type APILog struct {
	ID              int64
	Endpoint        string
	Method          string
	RequestPayload  string
	ResponsePayload string
	StatusCode      int
	CreatedAt       time.Time
}
