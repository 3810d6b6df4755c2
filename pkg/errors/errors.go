// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Amount errors
var (
	ErrAmountInvalid     = errors.New("amount is not a valid number")
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrAmountPrecision   = errors.New("amount has more than two decimal places")
)

// Bank directory errors
var (
	ErrBankNotFound       = errors.New("bank not found in directory")
	ErrIdentifierTooShort = errors.New("identifier below lookup threshold")
	ErrStaleResolution    = errors.New("resolution result superseded")
)

// Attachment errors
var (
	ErrFileTooLarge       = errors.New("file too large")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrFileEmpty          = errors.New("file is empty")
	ErrUploadFailed       = errors.New("file upload failed")
	ErrStaleUpload        = errors.New("upload result superseded")
)

// Wizard errors
var (
	ErrSessionNotFound    = errors.New("wizard session not found")
	ErrNoActiveDraft      = errors.New("no active draft")
	ErrDraftFrozen        = errors.New("draft is frozen during review")
	ErrInvalidTransition  = errors.New("wizard transition not allowed")
	ErrValidationFailed   = errors.New("draft validation failed")
	ErrUnresolvedBank     = errors.New("bank identifier not resolved")
	ErrFieldNotApplicable = errors.New("field not applicable to this corridor")
	ErrOverrideDisabled   = errors.New("manual override not permitted")
	ErrWizardTerminated   = errors.New("wizard already completed or cancelled")
)

// Submission errors
var (
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrSubmissionRejected = errors.New("submission rejected by transaction api")
)

// Transport errors
var (
	ErrDuplicateRequest = errors.New("duplicate request")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
