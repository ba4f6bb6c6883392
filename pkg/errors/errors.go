package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeSessionInit represents a browser that could not be started
	ErrorTypeSessionInit ErrorType = "session_init"
	// ErrorTypeElementNotFound represents a navigation element that never appeared
	ErrorTypeElementNotFound ErrorType = "element_not_found"
	// ErrorTypeNavigationTimeout represents a click that did not change the URL
	ErrorTypeNavigationTimeout ErrorType = "navigation_timeout"
	// ErrorTypeNoListContent represents a list page without event items
	ErrorTypeNoListContent ErrorType = "no_list_content"
	// ErrorTypeIndexOutOfRange represents a selection pointing past the rendered list
	ErrorTypeIndexOutOfRange ErrorType = "index_out_of_range"
	// ErrorTypeDetailTriggerNotFound represents an event card without a detail trigger
	ErrorTypeDetailTriggerNotFound ErrorType = "detail_trigger_not_found"
	// ErrorTypePopupTimeout represents a detail view that never opened a new tab
	ErrorTypePopupTimeout ErrorType = "popup_timeout"
	// ErrorTypeDetailContentTimeout represents a detail tab without content
	ErrorTypeDetailContentTimeout ErrorType = "detail_content_timeout"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeBrowser represents any other failure of the browser control surface
	ErrorTypeBrowser ErrorType = "browser"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Sentinels for errors.Is comparisons. Only the Type is compared.
var (
	ErrSessionInit           = &ScrapeError{Type: ErrorTypeSessionInit}
	ErrElementNotFound       = &ScrapeError{Type: ErrorTypeElementNotFound}
	ErrNavigationTimeout     = &ScrapeError{Type: ErrorTypeNavigationTimeout}
	ErrNoListContent         = &ScrapeError{Type: ErrorTypeNoListContent}
	ErrIndexOutOfRange       = &ScrapeError{Type: ErrorTypeIndexOutOfRange}
	ErrDetailTriggerNotFound = &ScrapeError{Type: ErrorTypeDetailTriggerNotFound}
	ErrPopupTimeout          = &ScrapeError{Type: ErrorTypePopupTimeout}
	ErrDetailContentTimeout  = &ScrapeError{Type: ErrorTypeDetailContentTimeout}
)

// ScrapeError represents a failure of one scrape operation
type ScrapeError struct {
	Type    ErrorType
	Stage   string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Is matches any ScrapeError of the same type
func (e *ScrapeError) Is(target error) bool {
	t, ok := target.(*ScrapeError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if the run cannot continue after this error
func (e *ScrapeError) IsFatal() bool {
	return e.Type == ErrorTypeSessionInit || e.Type == ErrorTypeConfiguration
}

// IsRecoverable returns true if the error only failed the current fetch
func (e *ScrapeError) IsRecoverable() bool {
	switch e.Type {
	case ErrorTypeElementNotFound,
		ErrorTypeNavigationTimeout,
		ErrorTypeNoListContent,
		ErrorTypeDetailTriggerNotFound,
		ErrorTypePopupTimeout,
		ErrorTypeDetailContentTimeout,
		ErrorTypeParsing,
		ErrorTypeBrowser:
		return true
	default:
		return false
	}
}

// IsCallerError returns true if the request itself referred to stale state
func (e *ScrapeError) IsCallerError() bool {
	return e.Type == ErrorTypeIndexOutOfRange
}

// New creates a new ScrapeError
func New(errType ErrorType, stage, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Stage:   stage,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewSessionInit creates a new session init error
func NewSessionInit(message string, err error) *ScrapeError {
	return New(ErrorTypeSessionInit, "session", message, err)
}

// NewElementNotFound creates a new element not found error
func NewElementNotFound(stage, message string, err error) *ScrapeError {
	return New(ErrorTypeElementNotFound, stage, message, err)
}

// NewNavigationTimeout creates a new navigation timeout error
func NewNavigationTimeout(stage, message string, err error) *ScrapeError {
	return New(ErrorTypeNavigationTimeout, stage, message, err)
}

// NewNoListContent creates a new no list content error
func NewNoListContent(stage, message string, err error) *ScrapeError {
	return New(ErrorTypeNoListContent, stage, message, err)
}

// NewIndexOutOfRange creates a new index out of range error
func NewIndexOutOfRange(stage string, index, count int) *ScrapeError {
	message := fmt.Sprintf("index %d out of range, %d items rendered", index, count)
	return New(ErrorTypeIndexOutOfRange, stage, message, nil)
}

// NewDetailTriggerNotFound creates a new detail trigger not found error
func NewDetailTriggerNotFound(stage, message string, err error) *ScrapeError {
	return New(ErrorTypeDetailTriggerNotFound, stage, message, err)
}

// NewPopupTimeout creates a new popup timeout error
func NewPopupTimeout(stage, message string, err error) *ScrapeError {
	return New(ErrorTypePopupTimeout, stage, message, err)
}

// NewDetailContentTimeout creates a new detail content timeout error
func NewDetailContentTimeout(stage, message string, err error) *ScrapeError {
	return New(ErrorTypeDetailContentTimeout, stage, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(stage, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, stage, message, err)
}

// NewBrowser creates a new browser error
func NewBrowser(stage, message string, err error) *ScrapeError {
	return New(ErrorTypeBrowser, stage, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "config", message, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As returns the first ScrapeError in err's chain
func As(err error) (*ScrapeError, bool) {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}
