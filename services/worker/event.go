package worker

import (
	"time"

	"sjsage522/passoworker/internal/crawler"
)

// EventKind identifies what a presentation event carries
type EventKind string

const (
	// EventListReady carries a freshly fetched match list
	EventListReady EventKind = "list_ready"
	// EventDetailReady carries the detail of one match
	EventDetailReady EventKind = "detail_ready"
	// EventLogLine carries a progress or non-blocking failure line
	EventLogLine EventKind = "log_line"
	// EventErrorOccurred carries a failure the user has to acknowledge
	EventErrorOccurred EventKind = "error_occurred"
)

// JobKind identifies a unit of browser work
type JobKind string

const (
	JobList   JobKind = "list"
	JobDetail JobKind = "detail"
)

// Job is a request for the worker goroutine
type Job struct {
	Kind  JobKind `json:"kind"`
	Index int     `json:"index"`
}

// ListJob requests the category list
func ListJob() Job {
	return Job{Kind: JobList}
}

// DetailJob requests the detail of the match at index of the last list
func DetailJob(index int) Job {
	return Job{Kind: JobDetail, Index: index}
}

// Event is emitted by the worker for the presentation layer. Exactly one of
// Matches, Detail and Message is meaningful, depending on Kind.
type Event struct {
	Kind    EventKind              `json:"kind"`
	Job     Job                    `json:"job"`
	Matches []crawler.MatchSummary `json:"matches,omitempty"`
	Detail  *crawler.MatchDetail   `json:"detail,omitempty"`
	Message string                 `json:"message,omitempty"`
	Time    time.Time              `json:"time"`

	// Err is set on the event that reports a failed job
	Err error `json:"-"`
}

// Final reports whether e is the last event of its job
func (e Event) Final() bool {
	switch e.Kind {
	case EventListReady, EventDetailReady, EventErrorOccurred:
		return true
	}
	return e.Err != nil
}
