package curriculum

import (
	"math"
	"sort"
)

// CompletedSet set of completed lesson ids. Treat it as immutable,
// With and Without return a new set.
type CompletedSet map[string]struct{}

// NewCompletedSet build a set from ids
func NewCompletedSet(ids ...string) CompletedSet {
	set := make(CompletedSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Has membership test
func (cs CompletedSet) Has(id string) bool {
	_, ok := cs[id]
	return ok
}

// With copy of the set including id
func (cs CompletedSet) With(id string) CompletedSet {
	next := make(CompletedSet, len(cs)+1)
	for k := range cs {
		next[k] = struct{}{}
	}
	next[id] = struct{}{}
	return next
}

// Without copy of the set excluding id
func (cs CompletedSet) Without(id string) CompletedSet {
	next := make(CompletedSet, len(cs))
	for k := range cs {
		if k != id {
			next[k] = struct{}{}
		}
	}
	return next
}

// IDs sorted members
func (cs CompletedSet) IDs() []string {
	ids := make([]string, 0, len(cs))
	for k := range cs {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}

// Overlay completion state laid over a stitched tree
type Overlay struct {
	Completed        CompletedSet
	Percentage       int
	Current          *Lesson
	SectionCompleted map[string]bool
}

// LessonCompleted membership test against the completed set
func (o *Overlay) LessonCompleted(id string) bool {
	return o.Completed.Has(id)
}

// Reconcile overlays progress on the tree. Completion is membership only and the
// percentage is taken from the server as is. Applying it twice gives the same result.
func Reconcile(t *Tree, p *Progress) *Overlay {
	if p == nil {
		p = &Progress{}
	}
	completed := NewCompletedSet(p.CompletedLessons...)
	return &Overlay{
		Completed:        completed,
		Percentage:       p.Percentage,
		Current:          ResumePoint(t, p.LastLessonID),
		SectionCompleted: SectionCompletion(t, completed),
	}
}

// SectionCompletion a section is completed when it has lessons and all of them are completed
func SectionCompletion(t *Tree, completed CompletedSet) map[string]bool {
	result := make(map[string]bool)
	if t == nil {
		return result
	}
	for _, s := range t.Sections {
		done := len(s.Lessons) > 0
		for _, l := range s.Lessons {
			if !completed.Has(l.ID) {
				done = false
				break
			}
		}
		result[s.ID] = done
	}
	return result
}

// EstimatePercentage optimistic course progress, round(completed / total * 100)
func EstimatePercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
