// Package apperror provides tests for the custom error types and utility functions.
package apperror

import (
	"errors"
	"testing"
)

// TestError_Error verifies that the Error() method returns the correct string format.
func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeValidation, "order is invalid"),
			expected: "[VALIDATION_ERROR] order is invalid",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeValidation, "customer not found", "customer_id"),
			expected: "[VALIDATION_ERROR] customer not found (field: customer_id)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestError_Unwrap verifies that the Unwrap() method correctly returns the underlying cause.
func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, CodeInternal, "wrapped error")

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

// TestNew verifies the New function correctly initializes an Error.
func TestNew(t *testing.T) {
	err := New(CodeValidation, "graph is empty")

	if err.Code != CodeValidation {
		t.Errorf("Code = %v, want %v", err.Code, CodeValidation)
	}
	if err.Message != "graph is empty" {
		t.Errorf("Message = %v, want %v", err.Message, "graph is empty")
	}
	if err.Severity != SeverityError {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityError)
	}
}

// TestNewWarning verifies the NewWarning function correctly initializes an Error with SeverityWarning.
func TestNewWarning(t *testing.T) {
	err := NewWarning(CodeConflict, "bottleneck found")

	if err.Severity != SeverityWarning {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityWarning)
	}
}

// TestNewCritical verifies the NewCritical function correctly initializes an Error with SeverityCritical.
func TestNewCritical(t *testing.T) {
	err := NewCritical(CodeInternal, "critical failure")

	if err.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityCritical)
	}
}

// TestWithDetails verifies that WithDetails adds key-value pairs to the error's details map.
func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "invalid").
		WithDetails("node_count", 5).
		WithDetails("edge_count", 10)

	if err.Details["node_count"] != 5 {
		t.Errorf("Details[node_count] = %v, want 5", err.Details["node_count"])
	}
	if err.Details["edge_count"] != 10 {
		t.Errorf("Details[edge_count] = %v, want 10", err.Details["edge_count"])
	}
}

// TestWithField verifies that WithField sets the field of the error.
func TestWithField(t *testing.T) {
	err := New(CodeValidation, "invalid source").WithField("source_id")

	if err.Field != "source_id" {
		t.Errorf("Field = %v, want source_id", err.Field)
	}
}

// TestWithSeverity verifies that WithSeverity sets the severity level of the error.
func TestWithSeverity(t *testing.T) {
	err := New(CodeValidation, "invalid").WithSeverity(SeverityCritical)

	if err.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityCritical)
	}
}

// TestIs verifies the Is function correctly identifies errors by their ErrorCode.
func TestIs(t *testing.T) {
	err := New(CodeValidation, "empty graph")

	if !Is(err, CodeValidation) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, CodeNotFound) {
		t.Error("Is() should return false for non-matching code")
	}
	if Is(errors.New("regular error"), CodeValidation) {
		t.Error("Is() should return false for non-Error")
	}
}

// TestCode verifies the Code function correctly extracts the ErrorCode.
func TestCode(t *testing.T) {
	err := New(CodeConflict, "no path")

	if Code(err) != CodeConflict {
		t.Errorf("Code() = %v, want %v", Code(err), CodeConflict)
	}

	regularErr := errors.New("regular error")
	if Code(regularErr) != CodeInternal {
		t.Errorf("Code() for regular error = %v, want %v", Code(regularErr), CodeInternal)
	}
}

// TestIsWarning verifies the IsWarning function correctly identifies warning errors.
func TestIsWarning(t *testing.T) {
	warning := NewWarning(CodeConflict, "bottleneck")
	err := New(CodeValidation, "invalid")

	if !IsWarning(warning) {
		t.Error("IsWarning() should return true for warning")
	}
	if IsWarning(err) {
		t.Error("IsWarning() should return false for error")
	}
}

// TestIsCritical verifies the IsCritical function correctly identifies critical errors.
func TestIsCritical(t *testing.T) {
	critical := NewCritical(CodeInternal, "critical")
	err := New(CodeValidation, "invalid")

	if !IsCritical(critical) {
		t.Error("IsCritical() should return true for critical")
	}
	if IsCritical(err) {
		t.Error("IsCritical() should return false for error")
	}
}

// TestSeverity_String verifies the String method of Severity returns the correct string representation.
func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		expected string
	}{
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.expected {
			t.Errorf("Severity.String() = %v, want %v", got, tt.expected)
		}
	}
}

// TestValidationErrors verifies the functionality of the ValidationErrors collection.
func TestValidationErrors(t *testing.T) {
	t.Run("new validation errors", func(t *testing.T) {
		ve := NewValidationErrors()
		if ve.HasErrors() {
			t.Error("new ValidationErrors should not have errors")
		}
		if ve.HasWarnings() {
			t.Error("new ValidationErrors should not have warnings")
		}
		if !ve.IsValid() {
			t.Error("new ValidationErrors should be valid")
		}
	})

	t.Run("add error", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddError(CodeValidation, "invalid graph")

		if !ve.HasErrors() {
			t.Error("should have errors")
		}
		if ve.IsValid() {
			t.Error("should not be valid")
		}
		if len(ve.Errors) != 1 {
			t.Errorf("errors count = %d, want 1", len(ve.Errors))
		}
	})

	t.Run("add warning", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddWarning(CodeConflict, "bottleneck")

		if !ve.HasWarnings() {
			t.Error("should have warnings")
		}
		if !ve.IsValid() {
			t.Error("should be valid (warnings don't affect validity)")
		}
	})

	t.Run("add error with field", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddErrorWithField(CodeValidation, "invalid", "source_id")

		if ve.Errors[0].Field != "source_id" {
			t.Errorf("Field = %v, want source_id", ve.Errors[0].Field)
		}
	})

	t.Run("add via Add method", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.Add(NewWarning(CodeConflict, "warning"))
		ve.Add(New(CodeValidation, "error"))

		if len(ve.Warnings) != 1 {
			t.Errorf("warnings count = %d, want 1", len(ve.Warnings))
		}
		if len(ve.Errors) != 1 {
			t.Errorf("errors count = %d, want 1", len(ve.Errors))
		}
	})

	t.Run("merge", func(t *testing.T) {
		ve1 := NewValidationErrors()
		ve1.AddError(CodeValidation, "error1")

		ve2 := NewValidationErrors()
		ve2.AddError(CodeValidation, "error2")
		ve2.AddWarning(CodeConflict, "warning")

		ve1.Merge(ve2)

		if len(ve1.Errors) != 2 {
			t.Errorf("errors count = %d, want 2", len(ve1.Errors))
		}
		if len(ve1.Warnings) != 1 {
			t.Errorf("warnings count = %d, want 1", len(ve1.Warnings))
		}
	})

	t.Run("merge nil", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.Merge(nil) // should not panic
	})

	t.Run("error messages", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddError(CodeValidation, "error1")
		ve.AddError(CodeValidation, "error2")

		messages := ve.ErrorMessages()
		if len(messages) != 2 {
			t.Errorf("messages count = %d, want 2", len(messages))
		}
	})

	t.Run("warning messages", func(t *testing.T) {
		ve := NewValidationErrors()
		ve.AddWarning(CodeConflict, "warning1")

		messages := ve.WarningMessages()
		if len(messages) != 1 {
			t.Errorf("messages count = %d, want 1", len(messages))
		}
		if messages[0] != "warning1" {
			t.Errorf("message = %v, want warning1", messages[0])
		}
	})
}

// TestPredefinedErrors verifies that all predefined errors are correctly initialized.
func TestPredefinedErrors(t *testing.T) {
	predefinedErrors := []*Error{
		ErrNilInput,
		ErrNotFound,
		ErrVersionConflict,
		ErrCancelled,
		ErrProviderDown,
		ErrNoMatrix,
		ErrTimeout,
		ErrOrphanedJob,
		ErrTimeout,
	}

	for _, err := range predefinedErrors {
		if err == nil {
			t.Error("predefined error should not be nil")
			continue
		}
		if err.Code == "" {
			t.Error("predefined error should have a code")
		}
		if err.Message == "" {
			t.Error("predefined error should have a message")
		}
	}
}
