package curriculum

import "sort"

// Stitch merges independently fetched sections and lessons into one ordered tree.
//
// Lessons are matched to sections by section reference and sorted by order,
// ties keep fetch order. Section aggregates are recomputed from the matched
// lessons, the server counters are never trusted. Lessons pointing to an
// unknown section are dropped. Inputs are left untouched.
func Stitch(sections []*Section, lessons []*Lesson) *Tree {
	tree := &Tree{Sections: make([]*Section, 0, len(sections))}

	bySection := make(map[string][]*Lesson, len(sections))
	for _, l := range lessons {
		if l == nil {
			continue
		}
		bySection[l.Section.ID] = append(bySection[l.Section.ID], l)
	}

	for _, s := range sections {
		if s == nil {
			continue
		}
		owned := append([]*Lesson(nil), bySection[s.ID]...)
		sort.SliceStable(owned, func(i, j int) bool {
			return owned[i].Order < owned[j].Order
		})

		duration := 0
		for _, l := range owned {
			duration += l.Duration
		}

		stitched := *s
		stitched.Lessons = owned
		stitched.TotalLessons = len(owned)
		stitched.TotalDuration = duration
		tree.Sections = append(tree.Sections, &stitched)
	}

	sort.SliceStable(tree.Sections, func(i, j int) bool {
		return tree.Sections[i].Order < tree.Sections[j].Order
	})

	for _, s := range tree.Sections {
		tree.TotalLessons += s.TotalLessons
		tree.TotalDuration += s.TotalDuration
	}
	return tree
}
