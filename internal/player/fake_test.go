package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/pot-code/learning-gateway/internal/activity"
	"github.com/pot-code/learning-gateway/internal/curriculum"
)

// tenLessons S1 = L1..L5, S2 = L6..L10, one minute each
func tenLessons() *curriculum.Outline {
	sections := []*curriculum.Section{
		{ID: "S1", Title: "Basics", Order: 1},
		{ID: "S2", Title: "Advanced", Order: 2},
	}
	var lessons []*curriculum.Lesson
	for i := 1; i <= 10; i++ {
		sec := "S1"
		if i > 5 {
			sec = "S2"
		}
		lessons = append(lessons, &curriculum.Lesson{
			ID:       fmt.Sprintf("L%d", i),
			Section:  curriculum.Ref{ID: sec},
			Title:    fmt.Sprintf("Lesson %d", i),
			Order:    i,
			Duration: 1,
			Type:     curriculum.LessonVideo,
		})
	}
	return &curriculum.Outline{
		Course: &curriculum.Course{ID: "c1", Title: "Go"},
		Tree:   curriculum.Stitch(sections, lessons),
	}
}

type fakeLoader struct {
	mu          sync.Mutex
	outline     *curriculum.Outline
	progress    *curriculum.Progress
	err         error
	progressErr error
	// when set, LoadPlayer blocks until it is closed
	gate chan struct{}
}

func (f *fakeLoader) LoadPlayer(ctx context.Context, userID, courseID string) (*curriculum.Outline, *curriculum.Progress, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	p := *f.progress
	return f.outline, &p, nil
}

func (f *fakeLoader) LoadProgress(ctx context.Context, userID, courseID string) (*curriculum.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	p := *f.progress
	return &p, nil
}

type fakePlatform struct {
	// called receives a value when UpdateLessonProgress starts, release unblocks it
	called  chan struct{}
	release chan struct{}
	result  *curriculum.Progress
	err     error
	content *curriculum.LessonContent
}

func (f *fakePlatform) UpdateLessonProgress(ctx context.Context, courseID, lessonID string, completed bool) (*curriculum.Progress, error) {
	if f.called != nil {
		f.called <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakePlatform) GetLessonContent(ctx context.Context, lessonID string) (*curriculum.LessonContent, error) {
	return f.content, f.err
}

type fakeRecorder struct {
	mu     sync.Mutex
	visits []*activity.Visit
}

func (f *fakeRecorder) Record(ctx context.Context, visit *activity.Visit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits = append(f.visits, visit)
	return nil
}

func (f *fakeRecorder) lessons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, v := range f.visits {
		ids = append(ids, v.LessonID)
	}
	return ids
}

type sequenceID struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceID) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("session-%d", g.n), nil
}
