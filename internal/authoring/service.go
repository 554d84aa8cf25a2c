package authoring

import (
	"context"
	"sync"
	"time"

	"github.com/pot-code/learning-gateway/internal/curriculum"
	"github.com/pot-code/learning-gateway/internal/domain"
	"github.com/pot-code/learning-gateway/internal/infrastructure/logging"
	"github.com/pot-code/learning-gateway/internal/infrastructure/metrics"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// Service reorders sections and lessons. Every submission touching one course runs
// alone, later ones wait their turn, so a rollback never races another list's write.
type Service struct {
	Source  Source
	Writer  Writer
	Metrics *metrics.Metrics
	IdleTTL time.Duration

	mu       sync.Mutex
	outlines map[string]*outline
	queues   map[string]*queue
}

// queue single slot shared by the submissions of one course
type queue struct {
	slot  chan struct{}
	users int
}

var _ UseCase = &Service{}

// NewService ...
func NewService(
	Source Source,
	Writer Writer,
	Metrics *metrics.Metrics,
	IdleTTL time.Duration,
) *Service {
	return &Service{
		Source:   Source,
		Writer:   Writer,
		Metrics:  Metrics,
		IdleTTL:  IdleTTL,
		outlines: make(map[string]*outline),
		queues:   make(map[string]*queue),
	}
}

func outlineKey(userID, courseID string) string {
	return userID + "/" + courseID
}

// Outline current authoring outline of a course, fetched on first use or when refresh is set
func (s *Service) Outline(ctx context.Context, userID, courseID string, refresh bool) (*OutlineView, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "AuthoringService.Outline", "service")
	defer apmSpan.End()

	if refresh {
		if err := s.Source.Invalidate(ctx, courseID); err != nil {
			logging.ExtractLoggerFromContext(ctx).Warn("failed to invalidate curriculum cache",
				zap.String("course.id", courseID), zap.Error(err))
		}
	}
	o, err := s.outline(ctx, userID, courseID, refresh)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view(), nil
}

// MoveSection move the section at from to position to
func (s *Service) MoveSection(ctx context.Context, userID, courseID string, from, to int) (*OutlineView, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "AuthoringService.MoveSection", "service")
	defer apmSpan.End()

	release, err := s.acquire(ctx, courseID)
	if err != nil {
		return nil, err
	}
	defer release()

	o, err := s.outline(ctx, userID, courseID, false)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	ids := curriculum.SectionIDs(o.tree.Sections)
	moved, err := curriculum.Move(ids, from, to)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	sections := o.tree.Sections
	previous := currentOrder(ids, func(i int) int { return sections[i].Order })
	items := curriculum.Sequence(moved)
	o.tree = withSectionOrder(o.tree, items)
	o.revision++
	o.pending++
	o.mu.Unlock()

	err = s.Writer.ReorderSections(ctx, courseID, items)
	s.Metrics.RecordReorder("sections", err)
	return s.settle(ctx, courseID, o, err, func(t *curriculum.Tree) *curriculum.Tree {
		return withSectionOrder(t, previous)
	})
}

// MoveLesson move the lesson at from to position to inside one section
func (s *Service) MoveLesson(ctx context.Context, userID, courseID, sectionID string, from, to int) (*OutlineView, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "AuthoringService.MoveLesson", "service")
	defer apmSpan.End()

	release, err := s.acquire(ctx, courseID)
	if err != nil {
		return nil, err
	}
	defer release()

	o, err := s.outline(ctx, userID, courseID, false)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	section := o.tree.Section(sectionID)
	if section == nil {
		o.mu.Unlock()
		return nil, domain.ErrNoSuchSection
	}
	ids := curriculum.LessonIDs(section.Lessons)
	moved, err := curriculum.Move(ids, from, to)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	lessons := section.Lessons
	previous := currentOrder(ids, func(i int) int { return lessons[i].Order })
	items := curriculum.Sequence(moved)
	o.tree = withLessonOrder(o.tree, sectionID, items)
	o.revision++
	o.pending++
	o.mu.Unlock()

	err = s.Writer.ReorderLessons(ctx, sectionID, items)
	s.Metrics.RecordReorder("lessons", err)
	return s.settle(ctx, courseID, o, err, func(t *curriculum.Tree) *curriculum.Tree {
		return withLessonOrder(t, sectionID, previous)
	})
}

// settle finish a submission. On failure the optimistic tree is thrown away and
// the authoritative one fetched again, revert is only used when that fetch fails too.
// Runs inside the course queue, nothing else writes the course meanwhile.
func (s *Service) settle(ctx context.Context, courseID string, o *outline, err error, revert func(*curriculum.Tree) *curriculum.Tree) (*OutlineView, error) {
	logger := logging.ExtractLoggerFromContext(ctx)
	if ierr := s.Source.Invalidate(ctx, courseID); ierr != nil {
		logger.Warn("failed to invalidate curriculum cache", zap.String("course.id", courseID), zap.Error(ierr))
	}

	if err == nil {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.pending--
		o.lastErr = ""
		return o.view(), nil
	}

	s.Metrics.RecordRollback("reorder")
	logger.Warn("reorder failed, re-fetching curriculum", zap.String("course.id", courseID), zap.Error(err))
	fresh, ferr := s.Source.LoadCourse(ctx, courseID)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending--
	o.revision++
	o.lastErr = err.Error()
	if ferr != nil {
		logger.Warn("failed to re-fetch curriculum", zap.String("course.id", courseID), zap.Error(ferr))
		o.tree = revert(o.tree)
	} else {
		o.course, o.tree = fresh.Course, fresh.Tree
	}
	return o.view(), err
}

func (s *Service) outline(ctx context.Context, userID, courseID string, refresh bool) (*outline, error) {
	key := outlineKey(userID, courseID)
	s.mu.Lock()
	o, ok := s.outlines[key]
	if !ok {
		o = &outline{}
		s.outlines[key] = o
	}
	s.mu.Unlock()

	o.mu.Lock()
	o.lastUsed = time.Now()
	loaded, rev := o.tree != nil, o.revision
	o.mu.Unlock()
	if loaded && !refresh {
		return o, nil
	}

	fresh, err := s.Source.LoadCourse(ctx, courseID)
	if err != nil {
		s.forget(key, o)
		return nil, err
	}
	o.mu.Lock()
	o.replace(fresh, rev)
	o.mu.Unlock()
	return o, nil
}

// forget drop an outline that never got loaded
func (s *Service) forget(key string, o *outline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.mu.Lock()
	defer o.mu.Unlock()
	if s.outlines[key] == o && o.tree == nil {
		delete(s.outlines, key)
	}
}

// acquire wait for the course's turn, giving up when ctx is done
func (s *Service) acquire(ctx context.Context, courseID string) (func(), error) {
	s.mu.Lock()
	q, ok := s.queues[courseID]
	if !ok {
		q = &queue{slot: make(chan struct{}, 1)}
		s.queues[courseID] = q
	}
	q.users++
	s.mu.Unlock()

	select {
	case q.slot <- struct{}{}:
		return func() {
			<-q.slot
			s.leave(courseID, q)
		}, nil
	case <-ctx.Done():
		s.leave(courseID, q)
		return nil, ctx.Err()
	}
}

func (s *Service) leave(courseID string, q *queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.users--
	if q.users == 0 && s.queues[courseID] == q {
		delete(s.queues, courseID)
	}
}

// Len number of outlines held
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outlines)
}

// Sweep drop outlines unused since before now - IdleTTL, returns how many were dropped
func (s *Service) Sweep(now time.Time) int {
	if s.IdleTTL <= 0 {
		return 0
	}
	deadline := now.Add(-s.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, o := range s.outlines {
		o.mu.Lock()
		idle := o.pending == 0 && o.lastUsed.Before(deadline)
		o.mu.Unlock()
		if idle {
			delete(s.outlines, key)
			n++
		}
	}
	return n
}

// Run sweep idle outlines every interval until ctx is done
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	logger := logging.ExtractLoggerFromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				logger.Debug("dropped idle authoring outlines", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
