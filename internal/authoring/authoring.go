package authoring

import (
	"context"

	"github.com/pot-code/learning-gateway/internal/curriculum"
)

// State save state of an outline
type State string

// outline states, idle -> saving -> idle | error
const (
	StateIdle   State = "idle"
	StateSaving State = "saving"
	StateError  State = "error"
)

// Source authoritative curriculum
type Source interface {
	LoadCourse(ctx context.Context, courseID string) (*curriculum.Outline, error)
	Invalidate(ctx context.Context, courseID string) error
}

// Writer batch reorder endpoints
type Writer interface {
	ReorderSections(ctx context.Context, courseID string, items []curriculum.OrderItem) error
	ReorderLessons(ctx context.Context, sectionID string, items []curriculum.OrderItem) error
}

// UseCase authoring operations, outlines are kept per user
type UseCase interface {
	Outline(ctx context.Context, userID, courseID string, refresh bool) (*OutlineView, error)
	MoveSection(ctx context.Context, userID, courseID string, from, to int) (*OutlineView, error)
	MoveLesson(ctx context.Context, userID, courseID, sectionID string, from, to int) (*OutlineView, error)
}

// OutlineView outline as served to the authoring view
type OutlineView struct {
	Course *curriculum.Course `json:"course"`
	Tree   *curriculum.Tree   `json:"curriculum"`
	State  State              `json:"state"`
	Error  string             `json:"error,omitempty"`
}

// MoveRequest drag and drop of one item inside a list
type MoveRequest struct {
	From *int `json:"from" validate:"required,min=0"`
	To   *int `json:"to" validate:"required,min=0"`
}
