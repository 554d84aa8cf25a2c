package curriculum

import (
	"sort"

	"github.com/pot-code/learning-gateway/internal/domain"
)

// OrderBase first order value handed out when resequencing
const OrderBase = 1

// Move splice the item at from to position to and return the new sequence
func Move(ids []string, from, to int) ([]string, error) {
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) {
		return nil, domain.ErrInvalidMove
	}
	result := append([]string(nil), ids...)
	moved := result[from]
	result = append(result[:from], result[from+1:]...)
	result = append(result[:to], append([]string{moved}, result[to:]...)...)
	return result, nil
}

// Sequence assign consecutive order values starting at OrderBase
func Sequence(ids []string) []OrderItem {
	items := make([]OrderItem, len(ids))
	for i, id := range ids {
		items[i] = OrderItem{ID: id, Order: i + OrderBase}
	}
	return items
}

// SectionIDs ids in tree order
func SectionIDs(sections []*Section) []string {
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	return ids
}

// LessonIDs ids in list order
func LessonIDs(lessons []*Lesson) []string {
	ids := make([]string, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	return ids
}

// ApplySectionOrder copy sections with the new order values and sort them
func ApplySectionOrder(sections []*Section, items []OrderItem) []*Section {
	orders := orderIndex(items)
	result := make([]*Section, len(sections))
	for i, s := range sections {
		c := *s
		if o, ok := orders[s.ID]; ok {
			c.Order = o
		}
		result[i] = &c
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Order < result[j].Order })
	return result
}

// ApplyLessonOrder copy lessons with the new order values and sort them
func ApplyLessonOrder(lessons []*Lesson, items []OrderItem) []*Lesson {
	orders := orderIndex(items)
	result := make([]*Lesson, len(lessons))
	for i, l := range lessons {
		c := *l
		if o, ok := orders[l.ID]; ok {
			c.Order = o
		}
		result[i] = &c
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Order < result[j].Order })
	return result
}

func orderIndex(items []OrderItem) map[string]int {
	orders := make(map[string]int, len(items))
	for _, it := range items {
		orders[it.ID] = it.Order
	}
	return orders
}
