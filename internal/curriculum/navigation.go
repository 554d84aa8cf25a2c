package curriculum

// Neighbors previous and next lesson around the current one, nil at the boundaries
type Neighbors struct {
	Previous *Lesson `json:"previous,omitempty"`
	Next     *Lesson `json:"next,omitempty"`
}

// Navigate resolves neighbors across section boundaries without wraparound.
// An unknown current lesson has no neighbors.
func Navigate(t *Tree, currentID string) Neighbors {
	seq := t.Lessons()
	for i, l := range seq {
		if l.ID != currentID {
			continue
		}
		var n Neighbors
		if i > 0 {
			n.Previous = seq[i-1]
		}
		if i < len(seq)-1 {
			n.Next = seq[i+1]
		}
		return n
	}
	return Neighbors{}
}

// ResumePoint picks the lesson a returning student lands on: the last accessed
// lesson when it is still in the tree, otherwise the first lesson. nil for an empty tree.
func ResumePoint(t *Tree, lastLessonID string) *Lesson {
	if l := t.Lesson(lastLessonID); l != nil {
		return l
	}
	seq := t.Lessons()
	if len(seq) == 0 {
		return nil
	}
	return seq[0]
}
