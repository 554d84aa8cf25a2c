package player

import (
	"context"

	"github.com/pot-code/learning-gateway/internal/activity"
	"github.com/pot-code/learning-gateway/internal/curriculum"
)

// Status lifecycle of a player view
type Status string

// player statuses
const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
	StatusDenied  Status = "denied"
)

// Loader read side used to build and re-sync a session
type Loader interface {
	LoadPlayer(ctx context.Context, userID, courseID string) (*curriculum.Outline, *curriculum.Progress, error)
	LoadProgress(ctx context.Context, userID, courseID string) (*curriculum.Progress, error)
}

// Platform write side and lazy content
type Platform interface {
	UpdateLessonProgress(ctx context.Context, courseID, lessonID string, completed bool) (*curriculum.Progress, error)
	GetLessonContent(ctx context.Context, lessonID string) (*curriculum.LessonContent, error)
}

// Recorder lesson visit sink
type Recorder interface {
	Record(ctx context.Context, visit *activity.Visit) error
}
