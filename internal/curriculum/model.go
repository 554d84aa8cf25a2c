package curriculum

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Course course record as returned by the platform, the counters may be stale
type Course struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Price         float64 `json:"price"`
	DiscountPrice float64 `json:"discount_price,omitempty"`
	IsFree        bool    `json:"is_free"`
	TotalSections int     `json:"total_sections"`
	TotalLessons  int     `json:"total_lessons"`
	TotalDuration int     `json:"total_duration"`
}

// Ref reference to another record. The platform sends either the raw id
// or the populated object, both decode into a Ref.
type Ref struct {
	ID    string
	Title string
}

// UnmarshalJSON accepts "id", {"_id": "id"} and {"id": "id"}
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	var obj struct {
		MongoID string `json:"_id"`
		ID      string `json:"id"`
		Title   string `json:"title"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode reference: %w", err)
	}
	r.ID = obj.MongoID
	if r.ID == "" {
		r.ID = obj.ID
	}
	r.Title = obj.Title
	return nil
}

// MarshalJSON references are always written as plain ids
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// Section ordered group of lessons
type Section struct {
	ID            string    `json:"id"`
	Course        Ref       `json:"course"`
	Title         string    `json:"title"`
	Order         int       `json:"order"`
	TotalLessons  int       `json:"total_lessons"`
	TotalDuration int       `json:"total_duration"`
	Lessons       []*Lesson `json:"lessons"`
}

// Lesson single content unit, Duration is in minutes
type Lesson struct {
	ID       string         `json:"id"`
	Section  Ref            `json:"section"`
	Course   Ref            `json:"course"`
	Title    string         `json:"title"`
	Order    int            `json:"order"`
	Duration int            `json:"duration"`
	Type     LessonType     `json:"type"`
	IsFree   bool           `json:"is_free"`
	Content  *LessonContent `json:"content,omitempty"`
}

// Tree stitched curriculum, built per load and never persisted
type Tree struct {
	Sections      []*Section `json:"sections"`
	TotalLessons  int        `json:"total_lessons"`
	TotalDuration int        `json:"total_duration"`
}

// Lessons flatten the tree in section-then-lesson order
func (t *Tree) Lessons() []*Lesson {
	if t == nil {
		return nil
	}
	result := make([]*Lesson, 0, t.TotalLessons)
	for _, s := range t.Sections {
		result = append(result, s.Lessons...)
	}
	return result
}

// Lesson find lesson by id, nil if absent
func (t *Tree) Lesson(id string) *Lesson {
	if t == nil || id == "" {
		return nil
	}
	for _, s := range t.Sections {
		for _, l := range s.Lessons {
			if l.ID == id {
				return l
			}
		}
	}
	return nil
}

// Section find section by id, nil if absent
func (t *Tree) Section(id string) *Section {
	if t == nil {
		return nil
	}
	for _, s := range t.Sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SectionOf returns the section owning the lesson
func (t *Tree) SectionOf(lessonID string) *Section {
	if t == nil {
		return nil
	}
	for _, s := range t.Sections {
		for _, l := range s.Lessons {
			if l.ID == lessonID {
				return s
			}
		}
	}
	return nil
}

// Empty reports whether the tree holds no lesson at all
func (t *Tree) Empty() bool {
	return t == nil || t.TotalLessons == 0
}

// Progress enrollment progress as reported by the platform
type Progress struct {
	Percentage       int      `json:"progress"`
	CompletedLessons []string `json:"completed_lessons"`
	LastLessonID     string   `json:"last_lesson_id,omitempty"`
}

// OrderItem one entry of a batch reorder request
type OrderItem struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}
