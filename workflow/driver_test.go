package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T, caps Capabilities, limit int) *Driver {
	t.Helper()
	d, err := NewDriver(newEngine(t, caps), limit, nil)
	require.NoError(t, err)
	return d
}

func TestDriverCompletedRun(t *testing.T) {
	d := newDriver(t, &fakeCaps{outline: titles(3)}, 0)
	res, err := d.Run(context.Background(), Request{Topic: "EV market"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 3, res.ChaptersDone)
	assert.Equal(t, titles(3), res.Outline)
	assert.Equal(t, 3, countSections(res.Document))
	assert.False(t, res.Partial())
	assert.Equal(t, "generation complete: 3 chapters", res.Summary())
}

func TestDriverPartialIsDistinguishableFromFailure(t *testing.T) {
	d := newDriver(t, &fakeCaps{outline: titles(3)}, 200)
	res, err := d.Run(context.Background(), Request{RunID: "fixed", Topic: "t", MaxTransitions: 8}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.RunID)
	assert.True(t, res.Partial())
	assert.True(t, res.Usable())
	assert.Equal(t, 2, res.ChaptersDone)
	assert.Equal(t, 8, res.Transitions)
	assert.Contains(t, res.Summary(), "partial result available (2 of 3 chapters)")
}

func TestDriverDefaultLimit(t *testing.T) {
	d := newDriver(t, &fakeCaps{outline: titles(3)}, 4)
	res, err := d.Run(context.Background(), Request{Topic: "t"}, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, 1, res.ChaptersDone)
}

func TestDriverFailures(t *testing.T) {
	d := newDriver(t, &fakeCaps{}, 0)

	res, err := d.Run(context.Background(), Request{Topic: "  "}, nil)
	assert.ErrorIs(t, err, ErrEmptyTopic)
	assert.Equal(t, OutcomeFailed, res.Outcome)

	res, err = d.Run(context.Background(), Request{Topic: "t"}, nil)
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, res.Usable())
	assert.Equal(t, "generation failed, no usable output", res.Summary())
	assert.Equal(t, err, res.Err)
}

func TestDriverRunsAreIndependent(t *testing.T) {
	d := newDriver(t, &fakeCaps{outline: titles(2)}, 0)
	first, err := d.Run(context.Background(), Request{Topic: "a"}, nil)
	require.NoError(t, err)
	second, err := d.Run(context.Background(), Request{Topic: "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Document, second.Document)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestNewDriverRequiresEngine(t *testing.T) {
	_, err := NewDriver(nil, 0, nil)
	assert.Error(t, err)
}
