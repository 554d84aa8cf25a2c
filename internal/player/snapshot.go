package player

import (
	"github.com/pot-code/learning-gateway/internal/curriculum"
	"github.com/pot-code/learning-gateway/internal/domain"
)

// LessonView lesson as rendered in the player sidebar
type LessonView struct {
	ID        string                `json:"id"`
	SectionID string                `json:"section_id"`
	Title     string                `json:"title"`
	Order     int                   `json:"order"`
	Duration  int                   `json:"duration"`
	Type      curriculum.LessonType `json:"type"`
	IsFree    bool                  `json:"is_free"`
	Completed bool                  `json:"completed"`
	Current   bool                  `json:"current"`
}

// SectionView section with its view state
type SectionView struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Order         int           `json:"order"`
	TotalLessons  int           `json:"total_lessons"`
	TotalDuration int           `json:"total_duration"`
	Completed     bool          `json:"completed"`
	Expanded      bool          `json:"expanded"`
	Lessons       []*LessonView `json:"lessons"`
}

// Snapshot immutable copy of a session's view state
type Snapshot struct {
	SessionID        string             `json:"session_id"`
	CourseID         string             `json:"course_id"`
	Status           Status             `json:"status"`
	Error            string             `json:"error,omitempty"`
	Redirect         string             `json:"redirect,omitempty"`
	Course           *curriculum.Course `json:"course,omitempty"`
	Sections         []*SectionView     `json:"sections"`
	TotalLessons     int                `json:"total_lessons"`
	TotalDuration    int                `json:"total_duration"`
	Percentage       int                `json:"progress"`
	CompletedLessons []string           `json:"completed_lessons"`
	Current          *LessonView        `json:"current_lesson,omitempty"`
	Previous         *LessonView        `json:"previous_lesson,omitempty"`
	Next             *LessonView        `json:"next_lesson,omitempty"`
	SidebarVisible   bool               `json:"sidebar_visible"`
}

// snapshot must be called with s.mu held
func (s *Session) snapshot() *Snapshot {
	snap := &Snapshot{
		SessionID:        s.ID,
		CourseID:         s.CourseID,
		Status:           s.status,
		Error:            s.errMsg,
		Course:           s.course,
		Sections:         []*SectionView{},
		Percentage:       s.percentage,
		CompletedLessons: s.completed.IDs(),
		SidebarVisible:   s.sidebar,
	}
	if s.status == StatusDenied {
		snap.Redirect = domain.SafeViewPath
	}
	if s.tree == nil {
		return snap
	}

	snap.TotalLessons = s.tree.TotalLessons
	snap.TotalDuration = s.tree.TotalDuration
	sectionDone := curriculum.SectionCompletion(s.tree, s.completed)
	for _, sec := range s.tree.Sections {
		sv := &SectionView{
			ID:            sec.ID,
			Title:         sec.Title,
			Order:         sec.Order,
			TotalLessons:  sec.TotalLessons,
			TotalDuration: sec.TotalDuration,
			Completed:     sectionDone[sec.ID],
			Expanded:      s.expanded[sec.ID],
			Lessons:       make([]*LessonView, 0, len(sec.Lessons)),
		}
		for _, l := range sec.Lessons {
			sv.Lessons = append(sv.Lessons, s.lessonView(l))
		}
		snap.Sections = append(snap.Sections, sv)
	}

	if s.current != nil {
		snap.Current = s.lessonView(s.current)
		n := curriculum.Navigate(s.tree, s.current.ID)
		if n.Previous != nil {
			snap.Previous = s.lessonView(n.Previous)
		}
		if n.Next != nil {
			snap.Next = s.lessonView(n.Next)
		}
	}
	return snap
}

func (s *Session) lessonView(l *curriculum.Lesson) *LessonView {
	return &LessonView{
		ID:        l.ID,
		SectionID: l.Section.ID,
		Title:     l.Title,
		Order:     l.Order,
		Duration:  l.Duration,
		Type:      l.Type,
		IsFree:    l.IsFree,
		Completed: s.completed.Has(l.ID),
		Current:   s.current != nil && s.current.ID == l.ID,
	}
}
