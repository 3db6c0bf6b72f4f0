// Package errors provides structured error handling for the application.
// AppError carries a stable code so the CLI, the HTTP API and the run
// history all report failures the same way.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess           = 0
	CodeUnknown           = 1000
	CodeInvalidParams     = 1001
	CodeNotFound          = 1002
	CodeMissingCredential = 1003
	CodeMissingDependency = 1004
	CodeCanceled          = 1005

	// Input video errors (1100-1199)
	CodeVideoDownload  = 1100
	CodeVideoNotFound  = 1101
	CodeVideoProbe     = 1102
	CodeUnsupportedURL = 1103
	CodeSceneDetect    = 1104
	CodeNoScenes       = 1105
	CodeKeyframe       = 1106

	// Narrative errors (1200-1299)
	CodeDescribeFailed  = 1200
	CodeNarrativeFailed = 1201
	CodeNarrativeParse  = 1202

	// Speech errors (1400-1499)
	CodeTTSFailed          = 1400
	CodeTTSTimeout         = 1401
	CodeVoiceNotFound      = 1402
	CodeNoAudioClips       = 1403
	CodeAudioCombineFailed = 1404

	// Storage and output errors (1500-1599)
	CodeDBError         = 1500
	CodeFileNotFound    = 1501
	CodeFileWriteError  = 1502
	CodeMuxFailed       = 1503
	CodeUnsupportedForm = 1504
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// IsFatal reports whether the error aborts a run rather than degrading it.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeNoScenes, CodeNoAudioClips, CodeMissingCredential, CodeMissingDependency,
		CodeVideoNotFound, CodeVideoDownload, CodeVideoProbe, CodeCanceled:
		return true
	}
	return false
}

// Predefined common errors
var (
	ErrInvalidParams     = New(CodeInvalidParams, "Invalid parameters")
	ErrNotFound          = New(CodeNotFound, "Resource not found")
	ErrMissingCredential = New(CodeMissingCredential, "Missing service credential")
	ErrMissingDependency = New(CodeMissingDependency, "Missing external tool")

	// Input
	ErrVideoDownload = New(CodeVideoDownload, "Video download failed")
	ErrVideoNotFound = New(CodeVideoNotFound, "Video file not found")
	ErrNoScenes      = New(CodeNoScenes, "No scenes detected")

	// Narrative
	ErrNarrativeFailed = New(CodeNarrativeFailed, "Narrative generation failed")

	// Speech
	ErrTTSFailed     = New(CodeTTSFailed, "Speech synthesis failed")
	ErrVoiceNotFound = New(CodeVoiceNotFound, "Voice not found")
	ErrNoAudioClips  = New(CodeNoAudioClips, "No audio clips were synthesized")

	// Storage
	ErrDBError      = New(CodeDBError, "Database error")
	ErrFileNotFound = New(CodeFileNotFound, "File not found")
)
