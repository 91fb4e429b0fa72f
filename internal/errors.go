package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrRepoNotFound is returned when GitHub reports 404 for a repository
	ErrRepoNotFound = errors.New("Repo not found, is the url correct or is it a private repo?")

	// ErrNotReady is returned when a conversation has no corpus bound
	ErrNotReady = errors.New("conversation is not ready: no source corpus bound")

	// ErrBusy is returned when an exchange is already in flight
	ErrBusy = errors.New("conversation is busy: waiting for the model to reply")

	// ErrNotFound is returned by stores when a key does not exist
	ErrNotFound = errors.New("key not found")
)

// StorageError represents errors accessing the persisted cache
type StorageError struct {
	Key string
	Op  string // "get", "put", "delete", "list", "open"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// SizeLimitError is returned when a repository archive exceeds the limit
type SizeLimitError struct {
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("The zip file is too large (%s), maximum is %s.", FormatFileSize(e.Size), FormatFileSize(e.Limit))
}

// TokenizeError wraps a provider failure while counting corpus tokens
type TokenizeError struct {
	Err error
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("Failed to count tokens: %v", e.Err)
}

func (e *TokenizeError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a source file is not valid UTF-8 text
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("decode error %s: not valid UTF-8 text", e.Path)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ImportError represents a malformed conversation document
type ImportError struct {
	Reason string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import error: %s", e.Reason)
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
