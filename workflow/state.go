package workflow

import (
	"errors"
	"fmt"
)

// ChapterState is the record threaded through one run. Only the engine
// mutates it; observers see Snapshots.
type ChapterState struct {
	topic           string
	uploadedContext string
	outline         []string
	index           int
	researchNotes   string
	chapterDraft    string
	finalDocument   string
}

// NewChapterState starts a run's state with an empty outline.
func NewChapterState(topic, uploadedContext string) *ChapterState {
	return &ChapterState{topic: topic, uploadedContext: uploadedContext}
}

func (s *ChapterState) Topic() string           { return s.topic }
func (s *ChapterState) UploadedContext() string { return s.uploadedContext }
func (s *ChapterState) ChapterIndex() int       { return s.index }
func (s *ChapterState) ChapterCount() int       { return len(s.outline) }
func (s *ChapterState) ResearchNotes() string   { return s.researchNotes }
func (s *ChapterState) ChapterDraft() string    { return s.chapterDraft }
func (s *ChapterState) FinalDocument() string   { return s.finalDocument }

// Outline returns a copy of the chapter titles.
func (s *ChapterState) Outline() []string {
	return append([]string(nil), s.outline...)
}

// Done reports whether every chapter has been appended.
func (s *ChapterState) Done() bool {
	return s.outline != nil && s.index == len(s.outline)
}

// CurrentTitle is the title at the cursor, or "" once the outline is
// consumed.
func (s *ChapterState) CurrentTitle() string {
	if s.index < len(s.outline) {
		return s.outline[s.index]
	}
	return ""
}

var errOutlineSet = errors.New("outline already set")

func (s *ChapterState) setOutline(titles []string) error {
	if s.outline != nil {
		return errOutlineSet
	}
	if len(titles) == 0 {
		return errors.New("outline is empty")
	}
	s.outline = append([]string(nil), titles...)
	return nil
}

func (s *ChapterState) setResearchNotes(notes string) { s.researchNotes = notes }
func (s *ChapterState) setChapterDraft(draft string)  { s.chapterDraft = draft }

// appendChapter is the only writer of finalDocument and index: it appends
// the body under the current chapter's heading and advances the cursor.
func (s *ChapterState) appendChapter(body string) error {
	if s.index >= len(s.outline) {
		return fmt.Errorf("chapter index %d out of range for %d chapters", s.index, len(s.outline))
	}
	s.finalDocument += SectionHeading(s.outline[s.index]) + body
	s.index++
	return nil
}

// SectionHeading is the separator and heading written before each chapter.
func SectionHeading(title string) string {
	return "\n\n## " + title + "\n\n"
}

// Snapshot is a read-only copy of the state at one point in a run.
type Snapshot struct {
	Topic          string   `json:"topic"`
	Outline        []string `json:"outline"`
	ChapterIndex   int      `json:"chapter_index"`
	ChapterCount   int      `json:"chapter_count"`
	DocumentLength int      `json:"document_length"`
	FinalDocument  string   `json:"-"`
}

func (s *ChapterState) Snapshot() Snapshot {
	return Snapshot{
		Topic:          s.topic,
		Outline:        s.Outline(),
		ChapterIndex:   s.index,
		ChapterCount:   len(s.outline),
		DocumentLength: len(s.finalDocument),
		FinalDocument:  s.finalDocument,
	}
}
