package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestStorageError(t *testing.T) {
	originalErr := errors.New("disk I/O error")
	err := &StorageError{
		Key: "repo-content-octo/hello",
		Op:  "put",
		Err: originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "storage error") {
		t.Errorf("StorageError.Error() should contain 'storage error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "repo-content-octo/hello") {
		t.Errorf("StorageError.Error() should contain key, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("StorageError.Unwrap() should return original error")
	}
}

func TestSizeLimitError(t *testing.T) {
	err := &SizeLimitError{Size: 150 * 1024 * 1024, Limit: 100 * 1024 * 1024}
	want := "The zip file is too large (150.0 MB), maximum is 100.0 MB."
	if err.Error() != want {
		t.Errorf("SizeLimitError.Error() = %q, want %q", err.Error(), want)
	}
}

func TestTokenizeError(t *testing.T) {
	providerErr := errors.New("input too long")
	err := &TokenizeError{Err: providerErr}
	if !strings.Contains(err.Error(), "input too long") {
		t.Errorf("TokenizeError.Error() should carry provider message, got %q", err.Error())
	}
	if !errors.Is(err, providerErr) {
		t.Error("TokenizeError.Unwrap() should return provider error")
	}
}

func TestDecodeError(t *testing.T) {
	err := &DecodeError{Path: "hello-main/logo.md"}
	if !strings.Contains(err.Error(), "hello-main/logo.md") {
		t.Errorf("DecodeError.Error() should contain path, got %q", err.Error())
	}
}

func TestImportError(t *testing.T) {
	err := &ImportError{Reason: "no repo url"}
	if err.Error() != "import error: no repo url" {
		t.Errorf("ImportError.Error() = %q", err.Error())
	}
}

func TestExportError(t *testing.T) {
	originalErr := errors.New("write failed")
	err := &ExportError{
		Format: "md",
		Path:   "/tmp/out.md",
		Err:    originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "export error") {
		t.Errorf("ExportError.Error() should contain 'export error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "md") {
		t.Errorf("ExportError.Error() should contain format, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("ExportError.Unwrap() should return original error")
	}
}
