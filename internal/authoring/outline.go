package authoring

import (
	"sync"
	"time"

	"github.com/pot-code/learning-gateway/internal/curriculum"
)

// outline one user's authoring copy of a course curriculum
type outline struct {
	mu      sync.Mutex
	course  *curriculum.Course
	tree    *curriculum.Tree
	pending int
	lastErr string
	// bumped on every local change, a fetch started at an older revision is stale
	revision uint64
	lastUsed time.Time
}

// replace install a fetched tree unless it was taken before revision rev,
// must be called with o.mu held
func (o *outline) replace(fresh *curriculum.Outline, rev uint64) bool {
	if o.pending > 0 || o.revision != rev {
		return false
	}
	o.course, o.tree, o.lastErr = fresh.Course, fresh.Tree, ""
	o.revision++
	return true
}

// state must be called with o.mu held
func (o *outline) state() State {
	switch {
	case o.pending > 0:
		return StateSaving
	case o.lastErr != "":
		return StateError
	}
	return StateIdle
}

// view must be called with o.mu held
func (o *outline) view() *OutlineView {
	return &OutlineView{
		Course: o.course,
		Tree:   o.tree,
		State:  o.state(),
		Error:  o.lastErr,
	}
}

// withSectionOrder copy of t with the section order applied, t is left untouched
func withSectionOrder(t *curriculum.Tree, items []curriculum.OrderItem) *curriculum.Tree {
	next := *t
	next.Sections = curriculum.ApplySectionOrder(t.Sections, items)
	return &next
}

// withLessonOrder copy of t with the lesson order of one section applied
func withLessonOrder(t *curriculum.Tree, sectionID string, items []curriculum.OrderItem) *curriculum.Tree {
	next := *t
	next.Sections = make([]*curriculum.Section, len(t.Sections))
	for i, s := range t.Sections {
		if s.ID != sectionID {
			next.Sections[i] = s
			continue
		}
		c := *s
		c.Lessons = curriculum.ApplyLessonOrder(s.Lessons, items)
		next.Sections[i] = &c
	}
	return &next
}

func currentOrder(ids []string, order func(int) int) []curriculum.OrderItem {
	items := make([]curriculum.OrderItem, len(ids))
	for i, id := range ids {
		items[i] = curriculum.OrderItem{ID: id, Order: order(i)}
	}
	return items
}
