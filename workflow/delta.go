package workflow

import (
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// reviewDelta counts characters the reviewer inserted and deleted relative
// to the draft.
func reviewDelta(draft, reviewed string) (inserted, deleted int) {
	if draft == reviewed {
		return 0, 0
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 500 * time.Millisecond
	for _, d := range dmp.DiffMain(draft, reviewed, false) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			deleted += len([]rune(d.Text))
		}
	}
	return inserted, deleted
}
