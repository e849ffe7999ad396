package bookmarks

import (
	"sync"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

const (
	SummaryLimit = 100
	NoSummary    = "No summary available."
	ShowMore     = "Show more"
	ShowLess     = "Show less"
)

// SummaryLine is how one bookmark summary renders.
type SummaryLine struct {
	Text   string
	Toggle bool   // a show more/less control is offered
	Label  string // label of that control
}

// SummaryView tracks per-bookmark expansion of long summaries.
type SummaryView struct {
	mu       sync.Mutex
	expanded map[int64]bool
}

func NewSummaryView() *SummaryView {
	return &SummaryView{expanded: make(map[int64]bool)}
}

// Toggle flips the expansion of id and returns the new value.
func (v *SummaryView) Toggle(id int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expanded[id] = !v.expanded[id]
	return v.expanded[id]
}

func (v *SummaryView) Expanded(id int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expanded[id]
}

// Render truncates summaries longer than SummaryLimit runes unless expanded.
func (v *SummaryView) Render(b domain.Bookmark) SummaryLine {
	if b.Summary == "" {
		return SummaryLine{Text: NoSummary}
	}

	runes := []rune(b.Summary)
	if len(runes) <= SummaryLimit {
		return SummaryLine{Text: b.Summary}
	}

	if v.Expanded(b.ID) {
		return SummaryLine{Text: b.Summary, Toggle: true, Label: ShowLess}
	}
	return SummaryLine{Text: string(runes[:SummaryLimit]), Toggle: true, Label: ShowMore}
}
