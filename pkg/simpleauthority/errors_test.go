package simpleauthority

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenameErrorMatchesClassAndCause(t *testing.T) {
	cause := fmt.Errorf("item item-3: %w", ErrItemNotFound)
	err := newRenameError("auth-1", "reload", ErrStorageFailure, cause)

	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.NotErrorIs(t, err, ErrIndexFailure)
	assert.Equal(t, "rename reload failed for authority auth-1: storage failure: item item-3: item not found", err.Error())
}

func TestClassOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", newRenameError("auth-1", "lookup", ErrNotFound, ErrAuthorityNotFound))

	assert.Nil(t, ClassOf(nil))
	assert.Nil(t, ClassOf(errors.New("boom")))
	assert.Equal(t, ErrNotFound, ClassOf(wrapped))
	assert.Equal(t, ErrDisabled, ClassOf(fmt.Errorf("x: %w", ErrDisabled)))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "success", outcomeOf(nil))
	assert.Equal(t, "unknown", outcomeOf(errors.New("boom")))
	assert.Equal(t, "index_failure", outcomeOf(newRenameError("a", "commit", ErrIndexFailure, nil)))
	assert.Equal(t, "unauthorized", outcomeOf(newRenameError("a", "authorize", ErrUnauthorized, nil)))
}
