package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSweepEach_AllSucceed(t *testing.T) {
	var processed []string
	swept, failed := sweepEach([]string{"a", "b", "c"}, func(id string) error {
		processed = append(processed, id)
		return nil
	}, nil)

	assert.Equal(t, 3, swept)
	assert.Equal(t, 0, failed)
	assert.Equal(t, []string{"a", "b", "c"}, processed)
}

func TestSweepEach_ContinuesPastFailures(t *testing.T) {
	boom := errors.New("boom")
	var failures []string

	swept, failed := sweepEach([]string{"a", "bad", "c"}, func(id string) error {
		if id == "bad" {
			return boom
		}
		return nil
	}, func(id string, err error) {
		failures = append(failures, id)
		assert.ErrorIs(t, err, boom)
	})

	assert.Equal(t, 2, swept)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"bad"}, failures)
}

func TestSweepEach_Empty(t *testing.T) {
	swept, failed := sweepEach(nil, func(id string) error {
		t.Fatal("fn should not be called")
		return nil
	}, nil)

	assert.Equal(t, 0, swept)
	assert.Equal(t, 0, failed)
}
