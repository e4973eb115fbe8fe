package domain

import "time"

// StatusLevel is the tri-state of the persistent status indicator.
type StatusLevel string

const (
	StatusOK    StatusLevel = "ok"
	StatusWarn  StatusLevel = "warn"
	StatusError StatusLevel = "error"
)

// Status is the persistent indicator shown to the user.
type Status struct {
	Level StatusLevel `json:"level"`
	Text  string      `json:"text"`
}

// NoticeKind distinguishes submission toasts.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient toast that disappears at ExpiresAt.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Text      string     `json:"text"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// StatusView is what clients poll: indicator, active toast and workflow state.
type StatusView struct {
	Status     Status          `json:"status"`
	Notice     *Notice         `json:"notice,omitempty"`
	Submission SubmissionState `json:"submission"`
}
