package curriculum

import (
	"context"
)

// LessonFilter query for the lesson listing endpoint, Page starts at 1
type LessonFilter struct {
	Course  string
	Section string
	Limit   int
	Page    int
}

// Outline course record plus its stitched tree
type Outline struct {
	Course *Course `json:"course"`
	Tree   *Tree   `json:"curriculum"`
}

// Repository read side of the platform API
type Repository interface {
	GetCourse(ctx context.Context, courseID string) (*Course, error)
	ListSections(ctx context.Context, courseID string) ([]*Section, error)
	ListLessons(ctx context.Context, filter LessonFilter) ([]*Lesson, error)
	GetEnrollmentProgress(ctx context.Context, courseID string) (*Progress, error)
}

// ResumeSource local record of the last visited lesson, consulted when the platform has none
type ResumeSource interface {
	LastLesson(ctx context.Context, userID, courseID string) (string, error)
}

// UseCase fetch, stitch and cache curricula
type UseCase interface {
	LoadCourse(ctx context.Context, courseID string) (*Outline, error)
	LoadProgress(ctx context.Context, userID, courseID string) (*Progress, error)
	LoadPlayer(ctx context.Context, userID, courseID string) (*Outline, *Progress, error)
	Invalidate(ctx context.Context, courseID string) error
}
