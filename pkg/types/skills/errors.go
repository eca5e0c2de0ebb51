package skills

import (
	"fmt"

	"github.com/pkg/errors"
)

// Messages shown to the user for well-known failures
const (
	MsgNotAuthenticated = "Please login and then try to create/edit a skill"
	MsgMissingName      = "Bot name is not given"
	MsgMissingCategory  = "Category name is not given"
	MsgMissingLanguage  = "Language name is not given"
	MsgInvalidImage     = "Image must be in format of images/imageName.jpg"
	MsgInvalidContent   = "Please check the image path and Try Again"
	MsgTransport        = "Error in processing the request. Please try again"
	MsgFetchFailed      = "Failed to fetch data. Please Try Again"
)

// ValidationError is raised before any network call when the input is incomplete
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ErrNotAuthenticated rejects store writes issued without an access token
var ErrNotAuthenticated error = &ValidationError{Field: "access_token", Message: MsgNotAuthenticated}

// InvalidContentError means a skill body lacks a directive a caller depends on
type InvalidContentError struct {
	Directive string
	Which     string
}

func (e *InvalidContentError) Error() string {
	if e.Which == "" {
		return fmt.Sprintf("content has no ::%s directive", e.Directive)
	}
	return fmt.Sprintf("%s content has no ::%s directive", e.Which, e.Directive)
}

// StoreRejectedError carries the store's message when a call completed but was not accepted
type StoreRejectedError struct {
	Op      string
	Message string
}

func (e *StoreRejectedError) Error() string {
	return fmt.Sprintf("%s rejected by store: %s", e.Op, e.Message)
}

// TransportError wraps a call that did not complete. The cause is for logs only.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a TransportError for op
func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether err is, or wraps, a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsStoreRejected reports whether err is, or wraps, a StoreRejectedError
func IsStoreRejected(err error) bool {
	var se *StoreRejectedError
	return errors.As(err, &se)
}

// IsValidation reports whether err is, or wraps, a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidContent reports whether err is, or wraps, an InvalidContentError
func IsInvalidContent(err error) bool {
	var ce *InvalidContentError
	return errors.As(err, &ce)
}

// UserMessage maps an error to the notification text shown to the user.
// Store messages are surfaced verbatim; transport detail never is.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		ve *ValidationError
		ce *InvalidContentError
		se *StoreRejectedError
		te *TransportError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ce):
		return MsgInvalidContent
	case errors.As(err, &se):
		return se.Message
	case errors.As(err, &te):
		return MsgTransport
	default:
		return err.Error()
	}
}
