package authoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pot-code/learning-gateway/internal/curriculum"
	"github.com/pot-code/learning-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu          sync.Mutex
	sections    []*curriculum.Section
	lessons     []*curriculum.Lesson
	err         error
	loads       int
	invalidated int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		sections: []*curriculum.Section{
			{ID: "A", Order: 1}, {ID: "B", Order: 2}, {ID: "C", Order: 3},
		},
		lessons: []*curriculum.Lesson{
			{ID: "a1", Section: curriculum.Ref{ID: "A"}, Order: 1, Duration: 1},
			{ID: "a2", Section: curriculum.Ref{ID: "A"}, Order: 2, Duration: 1},
			{ID: "a3", Section: curriculum.Ref{ID: "A"}, Order: 3, Duration: 1},
		},
	}
}

func (f *fakeSource) LoadCourse(ctx context.Context, courseID string) (*curriculum.Outline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return &curriculum.Outline{
		Course: &curriculum.Course{ID: courseID},
		Tree:   curriculum.Stitch(f.sections, f.lessons),
	}, nil
}

func (f *fakeSource) Invalidate(ctx context.Context, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeWriter struct {
	mu      sync.Mutex
	calls   [][]curriculum.OrderItem
	err     error
	called  chan struct{}
	release chan struct{}
}

func (f *fakeWriter) submit(items []curriculum.OrderItem) error {
	if f.called != nil {
		f.called <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, items)
	return f.err
}

func (f *fakeWriter) ReorderSections(ctx context.Context, courseID string, items []curriculum.OrderItem) error {
	return f.submit(items)
}

func (f *fakeWriter) ReorderLessons(ctx context.Context, sectionID string, items []curriculum.OrderItem) error {
	return f.submit(items)
}

func sectionOrder(v *OutlineView) []string {
	return curriculum.SectionIDs(v.Tree.Sections)
}

func TestService_Outline(t *testing.T) {
	source := newFakeSource()
	svc := NewService(source, &fakeWriter{}, nil, time.Minute)

	v, err := svc.Outline(context.Background(), "u1", "c1", false)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, v.State)
	assert.Equal(t, []string{"A", "B", "C"}, sectionOrder(v))

	_, err = svc.Outline(context.Background(), "u1", "c1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, source.loads)

	_, err = svc.Outline(context.Background(), "u1", "c1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
	assert.Equal(t, 1, source.invalidated)
}

func TestService_Outline_NotFound(t *testing.T) {
	source := newFakeSource()
	source.err = domain.ErrNotFound
	svc := NewService(source, &fakeWriter{}, nil, time.Minute)

	_, err := svc.Outline(context.Background(), "u1", "c1", false)
	assert.Equal(t, domain.ErrNotFound, err)
}

func TestService_MoveSection(t *testing.T) {
	source := newFakeSource()
	writer := &fakeWriter{}
	svc := NewService(source, writer, nil, time.Minute)

	v, err := svc.MoveSection(context.Background(), "u1", "c1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, v.State)
	assert.Equal(t, []string{"C", "A", "B"}, sectionOrder(v))
	assert.Equal(t, 1, v.Tree.Sections[0].Order)
	assert.Equal(t, 3, v.Tree.Sections[2].Order)

	require.Len(t, writer.calls, 1)
	assert.Equal(t, []curriculum.OrderItem{{ID: "C", Order: 1}, {ID: "A", Order: 2}, {ID: "B", Order: 3}}, writer.calls[0])
	assert.Equal(t, 1, source.invalidated)
}

func TestService_MoveSection_InvalidMove(t *testing.T) {
	svc := NewService(newFakeSource(), &fakeWriter{}, nil, time.Minute)
	_, err := svc.MoveSection(context.Background(), "u1", "c1", 0, 3)
	assert.Equal(t, domain.ErrInvalidMove, err)
}

func TestService_MoveSection_Rollback(t *testing.T) {
	source := newFakeSource()
	writer := &fakeWriter{err: domain.ErrUpstreamUnavailable}
	svc := NewService(source, writer, nil, time.Minute)

	v, err := svc.MoveSection(context.Background(), "u1", "c1", 0, 2)
	assert.Equal(t, domain.ErrUpstreamUnavailable, err)
	assert.Equal(t, StateError, v.State)
	assert.NotEmpty(t, v.Error)
	assert.Equal(t, []string{"A", "B", "C"}, sectionOrder(v), "pre-drag order restored")
	assert.Equal(t, 1, v.Tree.Sections[0].Order)
	assert.Equal(t, 2, source.loads, "authoritative list fetched again")

	writer.err = nil
	v, err = svc.MoveSection(context.Background(), "u1", "c1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, v.State)
	assert.Empty(t, v.Error)
}

func TestService_MoveSection_RollbackWithoutRefetch(t *testing.T) {
	source := newFakeSource()
	source.sections[2].Order = 7
	writer := &fakeWriter{err: errors.New("boom")}
	svc := NewService(source, writer, nil, time.Minute)
	_, err := svc.Outline(context.Background(), "u1", "c1", false)
	require.NoError(t, err)
	source.setErr(domain.ErrUpstreamUnavailable)

	v, err := svc.MoveSection(context.Background(), "u1", "c1", 0, 2)
	assert.Error(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, sectionOrder(v))
	assert.Equal(t, 7, v.Tree.Sections[2].Order, "original order values restored")
}

func TestService_MoveLesson(t *testing.T) {
	source := newFakeSource()
	writer := &fakeWriter{}
	svc := NewService(source, writer, nil, time.Minute)

	v, err := svc.MoveLesson(context.Background(), "u1", "c1", "A", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a3", "a1"}, curriculum.LessonIDs(v.Tree.Section("A").Lessons))
	assert.Equal(t, 3, v.Tree.Section("A").Lessons[2].Order)

	_, err = svc.MoveLesson(context.Background(), "u1", "c1", "Z", 0, 1)
	assert.Equal(t, domain.ErrNoSuchSection, err)
}

func TestService_MoveLesson_Rollback(t *testing.T) {
	source := newFakeSource()
	svc := NewService(source, &fakeWriter{err: domain.ErrAccessDenied}, nil, time.Minute)

	v, err := svc.MoveLesson(context.Background(), "u1", "c1", "A", 2, 0)
	assert.Equal(t, domain.ErrAccessDenied, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, curriculum.LessonIDs(v.Tree.Section("A").Lessons))
}

func TestService_SerializedPerCourse(t *testing.T) {
	source := newFakeSource()
	writer := &fakeWriter{called: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(source, writer, nil, time.Minute)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := svc.MoveSection(ctx, "u1", "c1", 0, 2)
		first <- err
	}()
	<-writer.called

	v, err := svc.Outline(ctx, "u1", "c1", false)
	require.NoError(t, err)
	assert.Equal(t, StateSaving, v.State)
	assert.Equal(t, []string{"B", "C", "A"}, sectionOrder(v), "optimistic order visible while saving")

	second := make(chan error, 1)
	go func() {
		_, err := svc.MoveSection(ctx, "u1", "c1", 0, 1)
		second <- err
	}()

	canceled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = svc.MoveSection(canceled, "u1", "c1", 1, 0)
	assert.Equal(t, context.DeadlineExceeded, err, "waiting for the course honours cancellation")

	writer.release <- struct{}{}
	require.NoError(t, <-first)
	<-writer.called
	writer.release <- struct{}{}
	require.NoError(t, <-second)

	v, err = svc.Outline(ctx, "u1", "c1", false)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, v.State)
	assert.Equal(t, []string{"C", "B", "A"}, sectionOrder(v))
	require.Len(t, writer.calls, 2)
	assert.Equal(t, []curriculum.OrderItem{{ID: "C", Order: 1}, {ID: "B", Order: 2}, {ID: "A", Order: 3}}, writer.calls[1])
}

// persistingWriter stores accepted section orders in the source like the platform would
type persistingWriter struct {
	source    *fakeSource
	called    chan struct{}
	release   chan struct{}
	lessonErr error
}

func (w *persistingWriter) ReorderSections(ctx context.Context, courseID string, items []curriculum.OrderItem) error {
	w.called <- struct{}{}
	<-w.release
	w.source.mu.Lock()
	defer w.source.mu.Unlock()
	w.source.sections = curriculum.ApplySectionOrder(w.source.sections, items)
	return nil
}

func (w *persistingWriter) ReorderLessons(ctx context.Context, sectionID string, items []curriculum.OrderItem) error {
	return w.lessonErr
}

func TestService_LessonRollbackWaitsForSectionMove(t *testing.T) {
	source := newFakeSource()
	writer := &persistingWriter{
		source:    source,
		called:    make(chan struct{}),
		release:   make(chan struct{}),
		lessonErr: domain.ErrUpstreamUnavailable,
	}
	svc := NewService(source, writer, nil, time.Minute)
	ctx := context.Background()

	sections := make(chan error, 1)
	go func() {
		_, err := svc.MoveSection(ctx, "u1", "c1", 2, 0)
		sections <- err
	}()
	<-writer.called

	lessons := make(chan error, 1)
	go func() {
		_, err := svc.MoveLesson(ctx, "u1", "c1", "A", 0, 1)
		lessons <- err
	}()
	select {
	case err := <-lessons:
		t.Fatalf("lesson move finished while the section move was in flight: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	writer.release <- struct{}{}
	require.NoError(t, <-sections)
	assert.Equal(t, domain.ErrUpstreamUnavailable, <-lessons)

	v, err := svc.Outline(ctx, "u1", "c1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, sectionOrder(v), "re-fetch sees the committed section order")
	assert.Equal(t, []string{"a1", "a2", "a3"}, curriculum.LessonIDs(v.Tree.Section("A").Lessons))
	assert.Equal(t, StateError, v.State)
	assert.Empty(t, svc.queues, "idle course queues are released")
}

func TestService_OutlinesPerUser(t *testing.T) {
	source := newFakeSource()
	writer := &fakeWriter{err: domain.ErrAccessDenied}
	svc := NewService(source, writer, nil, time.Minute)
	ctx := context.Background()

	_, err := svc.Outline(ctx, "author", "c1", false)
	require.NoError(t, err)
	_, err = svc.MoveSection(ctx, "intruder", "c1", 0, 2)
	assert.Equal(t, domain.ErrAccessDenied, err)

	v, err := svc.Outline(ctx, "author", "c1", false)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, v.State, "another user's rejected move does not leak")
	assert.Empty(t, v.Error)
	assert.Equal(t, 2, svc.Len())
}

func TestService_Outline_FailedLoadNotKept(t *testing.T) {
	source := newFakeSource()
	source.err = domain.ErrAccessDenied
	svc := NewService(source, &fakeWriter{}, nil, time.Minute)

	_, err := svc.Outline(context.Background(), "u1", "c1", false)
	assert.Equal(t, domain.ErrAccessDenied, err)
	assert.Equal(t, 0, svc.Len())
}

func TestService_Sweep(t *testing.T) {
	svc := NewService(newFakeSource(), &fakeWriter{}, nil, time.Minute)
	ctx := context.Background()
	_, err := svc.Outline(ctx, "u1", "c1", false)
	require.NoError(t, err)
	_, err = svc.Outline(ctx, "u2", "c1", false)
	require.NoError(t, err)

	assert.Equal(t, 0, svc.Sweep(time.Now()))
	assert.Equal(t, 2, svc.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, svc.Len())

	disabled := NewService(newFakeSource(), &fakeWriter{}, nil, 0)
	_, err = disabled.Outline(ctx, "u1", "c1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, disabled.Sweep(time.Now().Add(time.Hour)))
}

func TestService_Sweep_KeepsSaving(t *testing.T) {
	writer := &fakeWriter{called: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(newFakeSource(), writer, nil, time.Minute)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.MoveSection(ctx, "u1", "c1", 0, 1)
		done <- err
	}()
	<-writer.called
	assert.Equal(t, 0, svc.Sweep(time.Now().Add(time.Hour)), "outline with a pending save is kept")
	writer.release <- struct{}{}
	require.NoError(t, <-done)
}
