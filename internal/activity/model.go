package activity

import (
	"context"
	"time"
)

// Visit time a user spent on one lesson
type Visit struct {
	UserID   string
	CourseID string
	LessonID string
	Seconds  int
	At       time.Time // when the visit ended
}

// DaySpent learning time of one weekday
type DaySpent struct {
	Weekday   int   `json:"weekday"` // 0 is Monday
	Seconds   int   `json:"seconds"`
	Lessons   int   `json:"lessons"` // distinct lessons visited
	Timestamp int64 `json:"timestamp"`
}

// Repository lesson activity storage
type Repository interface {
	Record(ctx context.Context, visit *Visit) error
	LastLesson(ctx context.Context, userID, courseID string) (string, error)
	ListVisits(ctx context.Context, userID string, from, to time.Time) ([]*Visit, error)
}

// UseCase lesson activity log
type UseCase interface {
	Record(ctx context.Context, visit *Visit) error
	LastLesson(ctx context.Context, userID, courseID string) (string, error)
	TimeSpentInWeek(ctx context.Context, userID string, at time.Time) ([]*DaySpent, error)
}
