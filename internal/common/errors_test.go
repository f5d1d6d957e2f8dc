package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrors(t *testing.T) {
	verrs := make(ValidationErrors)
	assert.False(t, verrs.HasErrors())

	verrs.Add("insurer_code", "insurer code is required")
	verrs.Add("items", "at least one line item is required")
	verrs.Add("items", "item name is required")

	assert.True(t, verrs.HasErrors())
	assert.Len(t, verrs["items"], 2)
	assert.Equal(t, "validation failed for 2 field(s)", verrs.Error())
}

func TestValidationErrors_ErrorsAs(t *testing.T) {
	verrs := make(ValidationErrors)
	verrs.Add("specialty", "unsupported")
	wrapped := fmt.Errorf("submit failed: %w", verrs)

	var got ValidationErrors
	assert.True(t, errors.As(wrapped, &got))
	assert.Contains(t, got, "specialty")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrMailConnection))
	assert.True(t, IsRetryable(fmt.Errorf("notify: %w", ErrMailConnection)))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("timeout"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("denied"), Retryable: false}))
	assert.False(t, IsRetryable(errors.New("plain failure")))
	assert.False(t, IsRetryable(ErrInsurerNotFound))
}

func TestUserError(t *testing.T) {
	inner := errors.New("disk full")
	err := NewUserError("could not save claim", inner)

	assert.Equal(t, "could not save claim: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
}
