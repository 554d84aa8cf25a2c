package curriculum

func section(id string, order int) *Section {
	return &Section{ID: id, Course: Ref{ID: "c1"}, Title: "Section " + id, Order: order}
}

func lesson(id, sectionID string, order, duration int) *Lesson {
	return &Lesson{
		ID:       id,
		Section:  Ref{ID: sectionID},
		Course:   Ref{ID: "c1"},
		Title:    "Lesson " + id,
		Order:    order,
		Duration: duration,
		Type:     LessonVideo,
	}
}

// sampleTree two sections, S1 = [L1, L2, L3] and S2 = [L4, L5]
func sampleTree() *Tree {
	return Stitch(
		[]*Section{section("S2", 2), section("S1", 1)},
		[]*Lesson{
			lesson("L5", "S2", 2, 5),
			lesson("L2", "S1", 2, 10),
			lesson("L4", "S2", 1, 5),
			lesson("L1", "S1", 1, 10),
			lesson("L3", "S1", 3, 10),
		},
	)
}

func ids(lessons []*Lesson) []string {
	result := make([]string, len(lessons))
	for i, l := range lessons {
		result[i] = l.ID
	}
	return result
}
