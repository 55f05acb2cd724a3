package model

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRendering JobStatus = "rendering"
	JobStatusEncoding  JobStatus = "encoding"
	JobStatusDone      JobStatus = "done"
	JobStatusError     JobStatus = "error"
)

// Terminal reports whether no further status transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// rank orders statuses along the legal transition graph. Both terminal
// states share the highest rank so neither can replace the other.
func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusRendering:
		return 1
	case JobStatusEncoding:
		return 2
	case JobStatusDone, JobStatusError:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next follows the
// one-directional status graph.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

// Message kinds
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindMedia  MessageKind = "media"
	KindSystem MessageKind = "system"
	KindAlert  MessageKind = "alert"
)

// Message senders
type Sender string

const (
	SenderSelf  Sender = "self"
	SenderOther Sender = "other"
	SenderNone  Sender = "none"
)

// Themes (presentation only)
type Theme string

const (
	ThemeDark     Theme = "dark"
	ThemeLight    Theme = "light"
	ThemeMidnight Theme = "midnight"
)

var ValidThemes = []Theme{ThemeDark, ThemeLight, ThemeMidnight}
