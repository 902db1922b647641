package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "document not found",
	}

	expected := "NOT_FOUND: document not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("title is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "title is required" {
		t.Errorf("Message = %q, want %q", err.Message, "title is required")
	}
}

func TestNewPermissionDenied(t *testing.T) {
	err := NewPermissionDenied("not-allowed")

	if err.Code != ErrPermissionDenied {
		t.Errorf("Code = %q, want %q", err.Code, ErrPermissionDenied)
	}
	if err.Status != 403 {
		t.Errorf("Status = %d, want 403", err.Status)
	}
	if err.Details["code"] != "not-allowed" {
		t.Errorf("Details[code] = %v, want %q", err.Details["code"], "not-allowed")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("document", "01ABC")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != "01ABC" {
		t.Errorf("Details[id] = %v, want %q", err.Details["id"], "01ABC")
	}
	if err.Message != "document not found: 01ABC" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewMalformedBackup(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := NewMalformedBackup("invalid JSON", cause)

	if err.Code != ErrMalformedBackup {
		t.Errorf("Code = %q, want %q", err.Code, ErrMalformedBackup)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if !stderrors.Is(err, cause) {
		t.Error("MalformedBackup should unwrap to its cause")
	}
}

func TestNewServiceError(t *testing.T) {
	err := NewServiceError("network")

	if err.Code != ErrServiceError {
		t.Errorf("Code = %q, want %q", err.Code, ErrServiceError)
	}
	if err.Details["detail"] != "network" {
		t.Errorf("Details[detail] = %v, want %q", err.Details["detail"], "network")
	}
}

func TestNewCapabilityUnavailable(t *testing.T) {
	err := NewCapabilityUnavailable("speech", nil)

	if err.Code != ErrCapabilityUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrCapabilityUnavailable)
	}
	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
	if err.Message != "speech capability unavailable" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewStorageUnavailable(t *testing.T) {
	cause := fmt.Errorf("disk I/O error")
	err := NewStorageUnavailable(cause)

	if err.Code != ErrStorageUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrStorageUnavailable)
	}
	if !stderrors.Is(err, cause) {
		t.Error("StorageUnavailable should unwrap to its cause")
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("manuscript", "x")

	if !Is(err, ErrNotFound) {
		t.Error("Is(err, ErrNotFound) = false, want true")
	}
	if Is(err, ErrInternal) {
		t.Error("Is(err, ErrInternal) = true, want false")
	}
	if Is(fmt.Errorf("plain error"), ErrNotFound) {
		t.Error("Is(plain, ErrNotFound) = true, want false")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is(nil, ErrNotFound) = true, want false")
	}
}

func TestIs_Wrapped(t *testing.T) {
	err := fmt.Errorf("items[0]: %w", NewStorageUnavailable(nil))

	if !Is(err, ErrStorageUnavailable) {
		t.Error("Is should see through wrapping")
	}
	if CodeOf(err) != ErrStorageUnavailable {
		t.Errorf("CodeOf = %q, want %q", CodeOf(err), ErrStorageUnavailable)
	}
	if CodeOf(fmt.Errorf("plain")) != ErrInternal {
		t.Errorf("CodeOf(plain) should default to INTERNAL")
	}
}
