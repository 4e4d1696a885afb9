package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChapterStateAppend(t *testing.T) {
	st := NewChapterState("topic", "ctx")
	assert.False(t, st.Done())
	assert.Equal(t, "", st.CurrentTitle())
	assert.Error(t, st.appendChapter("body"), "no outline yet")

	require.NoError(t, st.setOutline([]string{"A", "B"}))
	assert.ErrorIs(t, st.setOutline([]string{"C"}), errOutlineSet)
	assert.Equal(t, "A", st.CurrentTitle())

	require.NoError(t, st.appendChapter("first"))
	require.NoError(t, st.appendChapter("second"))
	assert.True(t, st.Done())
	assert.Equal(t, "", st.CurrentTitle())
	assert.Equal(t, "\n\n## A\n\nfirst\n\n## B\n\nsecond", st.FinalDocument())
	assert.Error(t, st.appendChapter("third"))
	assert.Equal(t, 2, st.ChapterIndex())
}

func TestChapterStateRejectsEmptyOutline(t *testing.T) {
	st := NewChapterState("topic", "")
	assert.Error(t, st.setOutline(nil))
	assert.Zero(t, st.ChapterCount())
}

func TestOutlineAndSnapshotAreCopies(t *testing.T) {
	st := NewChapterState("topic", "")
	titles := []string{"A", "B"}
	require.NoError(t, st.setOutline(titles))
	titles[0] = "mutated"

	out := st.Outline()
	out[1] = "mutated"
	assert.Equal(t, []string{"A", "B"}, st.Outline())

	require.NoError(t, st.appendChapter("body"))
	snap := st.Snapshot()
	snap.Outline[0] = "mutated"
	assert.Equal(t, "A", st.Outline()[0])
	assert.Equal(t, 1, snap.ChapterIndex)
	assert.Equal(t, 2, snap.ChapterCount)
	assert.Equal(t, len(st.FinalDocument()), snap.DocumentLength)
}
