package ports

import "time"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Position string

const (
	PositionTopCenter   Position = "top-center"
	PositionBottomRight Position = "bottom-right"
)

// Toaster is the transient user-notification surface: a timed, positioned
// message with a severity.
type Toaster interface {
	Show(message string, severity Severity, duration time.Duration, position Position)
}
