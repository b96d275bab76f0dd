package tinyfs_test

import (
	"errors"
	"testing"

	"github.com/Swizzzer/tinyfs"
	"github.com/stretchr/testify/assert"
)

func TestErrorWithMessage(t *testing.T) {
	newErr := tinyfs.ErrInvalidArgument.WithMessage("asdfqwerty")
	assert.Equal(
		t, "Invalid argument: asdfqwerty", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, tinyfs.ErrInvalidArgument)
}

func TestErrorWrap(t *testing.T) {
	originalErr := errors.New("original error")
	newErr := tinyfs.ErrIOFailed.Wrap(originalErr)
	expectedMessage := "Input/output error: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, tinyfs.ErrIOFailed, "sentinel not set as parent")
}
