package curriculum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStitch_Ordering(t *testing.T) {
	tree := sampleTree()

	require.Len(t, tree.Sections, 2)
	assert.Equal(t, "S1", tree.Sections[0].ID)
	assert.Equal(t, "S2", tree.Sections[1].ID)
	assert.Equal(t, []string{"L1", "L2", "L3"}, ids(tree.Sections[0].Lessons))
	assert.Equal(t, []string{"L4", "L5"}, ids(tree.Sections[1].Lessons))
	assert.Equal(t, []string{"L1", "L2", "L3", "L4", "L5"}, ids(tree.Lessons()))
}

func TestStitch_Aggregates(t *testing.T) {
	s1 := section("S1", 1)
	s1.TotalLessons = 99
	s1.TotalDuration = 1234
	tree := Stitch([]*Section{s1}, []*Lesson{lesson("L1", "S1", 1, 7), lesson("L2", "S1", 2, 8)})

	assert.Equal(t, 2, tree.Sections[0].TotalLessons)
	assert.Equal(t, 15, tree.Sections[0].TotalDuration)
	assert.Equal(t, 2, tree.TotalLessons)
	assert.Equal(t, 15, tree.TotalDuration)

	assert.Equal(t, 99, s1.TotalLessons, "input section must be left untouched")
	assert.Nil(t, s1.Lessons)
}

func TestStitch_Completeness(t *testing.T) {
	tree := sampleTree()

	seen := make(map[string]int)
	for _, s := range tree.Sections {
		for _, l := range s.Lessons {
			seen[l.ID]++
			assert.Equal(t, s.ID, l.Section.ID)
		}
	}
	assert.Len(t, seen, 5)
	for id, n := range seen {
		assert.Equal(t, 1, n, "lesson %s placed more than once", id)
	}
}

func TestStitch_Orphans(t *testing.T) {
	tree := Stitch(
		[]*Section{section("S1", 1)},
		[]*Lesson{lesson("L1", "S1", 1, 5), lesson("L9", "gone", 1, 5), nil},
	)

	assert.Equal(t, []string{"L1"}, ids(tree.Lessons()))
	assert.Equal(t, 1, tree.TotalLessons)
	assert.Nil(t, tree.Lesson("L9"))
}

func TestStitch_StableTies(t *testing.T) {
	tree := Stitch(
		[]*Section{section("A", 1), section("B", 1)},
		[]*Lesson{lesson("x", "A", 1, 1), lesson("y", "A", 1, 1)},
	)

	assert.Equal(t, "A", tree.Sections[0].ID)
	assert.Equal(t, "B", tree.Sections[1].ID)
	assert.Equal(t, []string{"x", "y"}, ids(tree.Sections[0].Lessons))
}

func TestStitch_EmptyCourse(t *testing.T) {
	tree := Stitch(nil, nil)
	assert.True(t, tree.Empty())
	assert.Empty(t, tree.Sections)

	tree = Stitch([]*Section{section("S1", 1)}, nil)
	assert.True(t, tree.Empty())
	assert.Len(t, tree.Sections, 1)
	assert.Empty(t, tree.Sections[0].Lessons)
}

func TestTree_Lookups(t *testing.T) {
	tree := sampleTree()

	assert.Equal(t, "L4", tree.Lesson("L4").ID)
	assert.Nil(t, tree.Lesson(""))
	assert.Equal(t, "S2", tree.SectionOf("L5").ID)
	assert.Nil(t, tree.SectionOf("nope"))
	assert.Equal(t, "S1", tree.Section("S1").ID)

	var nilTree *Tree
	assert.Nil(t, nilTree.Lessons())
	assert.Nil(t, nilTree.Lesson("L1"))
	assert.True(t, nilTree.Empty())
}
