package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pot-code/learning-gateway/internal/activity"
	"github.com/pot-code/learning-gateway/internal/curriculum"
	"github.com/pot-code/learning-gateway/internal/domain"
	"github.com/pot-code/learning-gateway/internal/infrastructure/logging"
	"github.com/pot-code/learning-gateway/internal/infrastructure/metrics"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// Session state of one player view. It owns its tree and completed set, nothing
// else mutates them. Once closed every in-flight call is cancelled and late
// responses are dropped.
type Session struct {
	ID       string
	UserID   string
	CourseID string

	loader   Loader
	platform Platform
	recorder Recorder
	metrics  *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	// one completion mutation at a time
	mutation chan struct{}

	mu           sync.RWMutex
	closed       bool
	generation   uint64
	lastSeen     time.Time
	status       Status
	errMsg       string
	course       *curriculum.Course
	tree         *curriculum.Tree
	completed    curriculum.CompletedSet
	percentage   int
	current      *curriculum.Lesson
	currentSince time.Time
	expanded     map[string]bool
	sidebar      bool
	subscribers  map[chan *Snapshot]struct{}
}

func newSession(id, userID, courseID string, loader Loader, platform Platform, recorder Recorder, m *metrics.Metrics) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:          id,
		UserID:      userID,
		CourseID:    courseID,
		loader:      loader,
		platform:    platform,
		recorder:    recorder,
		metrics:     m,
		ctx:         ctx,
		cancel:      cancel,
		mutation:    make(chan struct{}, 1),
		lastSeen:    time.Now(),
		status:      StatusLoading,
		completed:   curriculum.NewCompletedSet(),
		expanded:    make(map[string]bool),
		sidebar:     true,
		subscribers: make(map[chan *Snapshot]struct{}),
	}
}

// bind derive a context from the caller's one (values, deadline) that is also
// cancelled when the session closes
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	bctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return bctx, func() {
		stop()
		cancel()
	}
}

// Load run the load sequence from scratch: fetch, stitch, reconcile. The outcome
// is reflected in the status, the returned error is only for logging.
func (s *Session) Load(ctx context.Context) (*Snapshot, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "PlayerSession.Load", "service")
	defer apmSpan.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}
	s.generation++
	gen := s.generation
	s.lastSeen = time.Now()
	s.status = StatusLoading
	s.errMsg = ""
	s.publish()
	s.mu.Unlock()

	lctx, cancel := s.bind(ctx)
	defer cancel()
	outline, progress, err := s.loader.LoadPlayer(lctx, s.UserID, s.CourseID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		// torn down or superseded by a newer load
		return nil, domain.ErrSessionClosed
	}

	s.course, s.tree, s.current = nil, nil, nil
	s.completed = curriculum.NewCompletedSet()
	s.percentage = 0
	s.expanded = make(map[string]bool)
	switch {
	case err == nil:
		s.apply(outline, progress)
	case errors.Is(err, domain.ErrAccessDenied):
		s.status = StatusDenied
		s.errMsg = domain.ErrAccessDenied.Error()
	default:
		s.status = StatusError
		s.errMsg = describe(err)
	}
	s.publish()
	return s.snapshot(), err
}

// Retry re-triggers the load sequence
func (s *Session) Retry(ctx context.Context) (*Snapshot, error) {
	return s.Load(ctx)
}

// apply must be called with s.mu held
func (s *Session) apply(outline *curriculum.Outline, progress *curriculum.Progress) {
	s.course = outline.Course
	s.tree = outline.Tree
	if s.tree.Empty() {
		s.status = StatusEmpty
		return
	}
	overlay := curriculum.Reconcile(s.tree, progress)
	s.status = StatusReady
	s.completed = overlay.Completed
	s.percentage = overlay.Percentage
	s.current = overlay.Current
	s.currentSince = time.Now()
	if sec := s.tree.SectionOf(s.current.ID); sec != nil {
		s.expanded[sec.ID] = true
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return domain.ErrUpstreamUnavailable.Error()
	}
	return err.Error()
}

// Snapshot current view state
func (s *Session) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Status current status
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Select make lessonID the current lesson and expand its section
func (s *Session) Select(ctx context.Context, lessonID string) (*Snapshot, error) {
	return s.navigate(ctx, func() (*curriculum.Lesson, error) {
		l := s.tree.Lesson(lessonID)
		if l == nil {
			return nil, domain.ErrNoSuchLesson
		}
		return l, nil
	})
}

// Next move to the following lesson, staying put on the last one
func (s *Session) Next(ctx context.Context) (*Snapshot, error) {
	return s.navigate(ctx, func() (*curriculum.Lesson, error) {
		return curriculum.Navigate(s.tree, s.current.ID).Next, nil
	})
}

// Previous move to the preceding lesson, staying put on the first one
func (s *Session) Previous(ctx context.Context) (*Snapshot, error) {
	return s.navigate(ctx, func() (*curriculum.Lesson, error) {
		return curriculum.Navigate(s.tree, s.current.ID).Previous, nil
	})
}

func (s *Session) navigate(ctx context.Context, target func() (*curriculum.Lesson, error)) (*Snapshot, error) {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	l, err := target()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var visit *activity.Visit
	if l != nil && l.ID != s.current.ID {
		visit = s.leave(time.Now())
		s.current = l
		if sec := s.tree.SectionOf(l.ID); sec != nil {
			s.expanded[sec.ID] = true
		}
		s.publish()
	}
	snap := s.snapshot()
	s.mu.Unlock()

	s.record(ctx, visit)
	return snap, nil
}

// leave close the visit of the current lesson, must be called with s.mu held
func (s *Session) leave(now time.Time) *activity.Visit {
	if s.current == nil {
		return nil
	}
	visit := &activity.Visit{
		UserID:   s.UserID,
		CourseID: s.CourseID,
		LessonID: s.current.ID,
		Seconds:  int(now.Sub(s.currentSince) / time.Second),
		At:       now,
	}
	s.currentSince = now
	return visit
}

func (s *Session) record(ctx context.Context, visit *activity.Visit) {
	if visit == nil || s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, visit); err != nil {
		logging.ExtractLoggerFromContext(ctx).Warn("failed to record lesson visit",
			zap.String("session.id", s.ID), zap.String("lesson.id", visit.LessonID), zap.Error(err))
	}
}

// ToggleSection flip the expansion of one section
func (s *Session) ToggleSection(sectionID string) (*Snapshot, error) {
	return s.update(func() error {
		if s.tree.Section(sectionID) == nil {
			return domain.ErrNoSuchSection
		}
		s.expanded[sectionID] = !s.expanded[sectionID]
		return nil
	})
}

// ExpandAll expand every section
func (s *Session) ExpandAll() (*Snapshot, error) {
	return s.update(func() error {
		for _, sec := range s.tree.Sections {
			s.expanded[sec.ID] = true
		}
		return nil
	})
}

// CollapseAll collapse every section
func (s *Session) CollapseAll() (*Snapshot, error) {
	return s.update(func() error {
		s.expanded = make(map[string]bool)
		return nil
	})
}

// ToggleSidebar show or hide the curriculum sidebar
func (s *Session) ToggleSidebar() (*Snapshot, error) {
	return s.update(func() error {
		s.sidebar = !s.sidebar
		return nil
	})
}

func (s *Session) update(fn func() error) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	if err := fn(); err != nil {
		return nil, err
	}
	s.publish()
	return s.snapshot(), nil
}

// usable must be called with s.mu held
func (s *Session) usable() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	s.lastSeen = time.Now()
	if s.status != StatusReady {
		return domain.ErrNotReady
	}
	return nil
}

// SetCompleted mark a lesson complete or incomplete. The estimated state is
// published right away, then replaced by the platform's answer. When the
// platform call fails the estimate is discarded and progress fetched again.
func (s *Session) SetCompleted(ctx context.Context, lessonID string, completed bool) (*Snapshot, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "PlayerSession.SetCompleted", "service")
	defer apmSpan.End()

	mctx, cancel := s.bind(ctx)
	defer cancel()
	select {
	case s.mutation <- struct{}{}:
		defer func() { <-s.mutation }()
	case <-mctx.Done():
		if s.ctx.Err() != nil {
			return nil, domain.ErrSessionClosed
		}
		return nil, mctx.Err()
	}

	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.tree.Lesson(lessonID) == nil {
		s.mu.Unlock()
		return nil, domain.ErrNoSuchLesson
	}
	gen := s.generation
	confirmed, confirmedPercentage := s.completed, s.percentage
	if completed {
		s.completed = s.completed.With(lessonID)
	} else {
		s.completed = s.completed.Without(lessonID)
	}
	s.percentage = curriculum.EstimatePercentage(len(s.completed), s.tree.TotalLessons)
	s.publish()
	s.mu.Unlock()

	progress, err := s.platform.UpdateLessonProgress(mctx, s.CourseID, lessonID, completed)
	if err == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return nil, domain.ErrSessionClosed
		}
		if gen == s.generation {
			s.merge(progress)
			s.publish()
		}
		return s.snapshot(), nil
	}
	if s.isClosed() {
		return nil, domain.ErrSessionClosed
	}

	s.metrics.RecordRollback("completion")
	logger := logging.ExtractLoggerFromContext(ctx)
	logger.Warn("lesson completion failed, re-syncing progress",
		zap.String("session.id", s.ID), zap.String("lesson.id", lessonID), zap.Error(err))

	fresh, ferr := s.loader.LoadProgress(mctx, s.UserID, s.CourseID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	if gen != s.generation {
		return s.snapshot(), err
	}
	if ferr != nil {
		logger.Warn("failed to re-fetch progress", zap.String("session.id", s.ID), zap.Error(ferr))
		s.completed, s.percentage = confirmed, confirmedPercentage
	} else {
		s.merge(fresh)
	}
	s.publish()
	return s.snapshot(), err
}

// merge server progress overrides the local estimate, must be called with s.mu held
func (s *Session) merge(p *curriculum.Progress) {
	s.completed = curriculum.NewCompletedSet(p.CompletedLessons...)
	s.percentage = p.Percentage
}

// Content lazily fetch the body of a lesson in this course
func (s *Session) Content(ctx context.Context, lessonID string) (*curriculum.LessonContent, error) {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	inTree := s.tree.Lesson(lessonID) != nil
	s.mu.Unlock()
	if !inTree {
		return nil, domain.ErrNoSuchLesson
	}

	cctx, cancel := s.bind(ctx)
	defer cancel()
	content, err := s.platform.GetLessonContent(cctx, lessonID)
	if s.isClosed() {
		return nil, domain.ErrSessionClosed
	}
	return content, err
}

// Subscribe snapshot feed, the latest snapshot is always delivered and
// intermediate ones may be skipped. The channel is closed with the session.
func (s *Session) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshot()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subscribers[ch]; ok {
				delete(s.subscribers, ch)
				close(ch)
			}
		})
	}
}

// publish must be called with s.mu held
func (s *Session) publish() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshot()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// replace the stale snapshot nobody picked up yet
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Close tear the session down, the last visit is recorded with ctx
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancel()
	visit := s.leave(time.Now())
	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	s.mu.Unlock()

	s.record(ctx, visit)
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Done closed when the session is torn down
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}
