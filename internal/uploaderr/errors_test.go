package uploaderr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesBlockAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUploadFailed("ds1#block1", cause)

	assert.Equal(t, KindUploadFailed, err.Kind)
	assert.Contains(t, err.Error(), "ds1#block1")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrorMessageWithoutBlockOrCause(t *testing.T) {
	err := NewFatal("queue drain exhausted twice", nil)

	assert.Equal(t, "Fatal: queue drain exhausted twice", err.Error())
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewAmbiguous("ds1#block2", cause)

	assert.True(t, errors.Is(err, cause))
}

func TestKindPredicates(t *testing.T) {
	dup := NewDuplicate("b1", nil)
	amb := NewAmbiguous("b2", nil)
	fatal := NewFatal("boom", nil)
	staging := NewStagingFailure("CreateBlocks", errors.New("pg: conn closed"))

	assert.True(t, IsDuplicate(dup))
	assert.False(t, IsDuplicate(amb))

	assert.True(t, IsAmbiguous(amb))
	assert.False(t, IsAmbiguous(dup))

	assert.True(t, IsFatal(fatal))
	assert.False(t, IsFatal(dup))

	assert.True(t, IsStagingFailure(staging))
	assert.False(t, IsStagingFailure(dup))
}

func TestPredicatesFalseForNonUploadErr(t *testing.T) {
	plain := errors.New("plain error")

	assert.False(t, IsDuplicate(plain))
	assert.False(t, IsAmbiguous(plain))
	assert.False(t, IsFatal(plain))
	assert.False(t, IsStagingFailure(plain))
}

func TestKindStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown(99)", Kind(99).String())
}

func TestQueueDrainTimeoutMessage(t *testing.T) {
	err := NewQueueDrainTimeout(300, 300)

	assert.Equal(t, KindQueueDrainTimeout, err.Kind)
	assert.Contains(t, err.Error(), "300/300")
}
