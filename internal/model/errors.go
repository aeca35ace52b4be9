package model

import (
	"errors"
	"fmt"
)

// SyntaxError means the input bytes are not well-formed XML
type SyntaxError struct {
	Message string
	Cause   error
}

func (e *SyntaxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("xml syntax: %s (%v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("xml syntax: %s", e.Message)
}

func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// NewSyntaxError creates a new syntax error
func NewSyntaxError(message string, cause error) *SyntaxError {
	return &SyntaxError{Message: message, Cause: cause}
}

// UnrecognizedDocumentError means the XML is well formed but no supported
// document anchor was found
type UnrecognizedDocumentError struct {
	Message string
}

func (e *UnrecognizedDocumentError) Error() string {
	return fmt.Sprintf("unrecognized document: %s", e.Message)
}

// NewUnrecognizedDocumentError creates a new unrecognized-document error
func NewUnrecognizedDocumentError(message string) *UnrecognizedDocumentError {
	return &UnrecognizedDocumentError{Message: message}
}

// MalformedDocumentError means an anchor was found but required substructure
// is missing beyond what lenient field extraction tolerates
type MalformedDocumentError struct {
	DocType DocType
	Field   string
	Message string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("[%s] malformed document: %s: %s", e.DocType, e.Field, e.Message)
}

// NewMalformedDocumentError creates a new malformed-document error
func NewMalformedDocumentError(docType DocType, field, message string) *MalformedDocumentError {
	return &MalformedDocumentError{DocType: docType, Field: field, Message: message}
}

// StorageError wraps persistence failures so callers can separate
// infrastructure problems (retry) from data-quality problems (skip)
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new storage error
func NewStorageError(op string, cause error) *StorageError {
	return &StorageError{Op: op, Cause: cause}
}

// IsDataError reports whether err is a data-quality failure of the input
// document rather than an infrastructure failure. Batch callers skip the
// file on data errors and may retry on anything else.
func IsDataError(err error) bool {
	var syntaxErr *SyntaxError
	var unrecognizedErr *UnrecognizedDocumentError
	var malformedErr *MalformedDocumentError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &unrecognizedErr) ||
		errors.As(err, &malformedErr)
}
