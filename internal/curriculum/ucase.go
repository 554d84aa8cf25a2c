package curriculum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pot-code/learning-gateway/internal/domain"
	"github.com/pot-code/learning-gateway/internal/infrastructure/driver"
	"github.com/pot-code/learning-gateway/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxLessonPages bounds lesson paging of one course
const maxLessonPages = 100

// UseCaseImpl ...
type UseCaseImpl struct {
	Repository  Repository
	Resume      ResumeSource
	Cache       driver.KeyValueDB
	CacheTTL    time.Duration
	LessonLimit int
}

var _ UseCase = &UseCaseImpl{}

// NewUseCase ...
func NewUseCase(
	Repository Repository,
	Resume ResumeSource,
	Cache driver.KeyValueDB,
	CacheTTL time.Duration,
	LessonLimit int,
) *UseCaseImpl {
	return &UseCaseImpl{
		Repository:  Repository,
		Resume:      Resume,
		Cache:       Cache,
		CacheTTL:    CacheTTL,
		LessonLimit: LessonLimit,
	}
}

func outlineKey(courseID string) string {
	return fmt.Sprintf("curriculum:outline:%s", courseID)
}

// LoadCourse fetch course, sections and lessons concurrently then stitch them
func (uc *UseCaseImpl) LoadCourse(ctx context.Context, courseID string) (*Outline, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CurriculumUseCase.LoadCourse", "service")
	defer apmSpan.End()

	logger := logging.ExtractLoggerFromContext(ctx)
	if cached := uc.readCache(ctx, courseID); cached != nil {
		// the cache is shared by every caller, the course record is still read with the
		// caller's token so the platform decides access
		course, err := uc.Repository.GetCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		logger.Debug("curriculum cache hit", zap.String("course.id", courseID))
		return &Outline{Course: course, Tree: cached.Tree}, nil
	}

	var (
		course   *Course
		sections []*Section
		lessons  []*Lesson
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		course, err = uc.Repository.GetCourse(gctx, courseID)
		return
	})
	g.Go(func() (err error) {
		sections, err = uc.Repository.ListSections(gctx, courseID)
		return
	})
	g.Go(func() (err error) {
		lessons, err = uc.listLessons(gctx, courseID)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	outline := &Outline{Course: course, Tree: Stitch(sections, lessons)}
	if dropped := len(lessons) - outline.Tree.TotalLessons; dropped > 0 {
		logger.Debug("dropped orphaned lessons", zap.String("course.id", courseID), zap.Int("count", dropped))
	}
	uc.writeCache(ctx, courseID, outline)
	return outline, nil
}

// listLessons every lesson of a course, LessonLimit per page until a short page comes back
func (uc *UseCaseImpl) listLessons(ctx context.Context, courseID string) ([]*Lesson, error) {
	if uc.LessonLimit <= 0 {
		return uc.Repository.ListLessons(ctx, LessonFilter{Course: courseID})
	}
	var all []*Lesson
	seen := make(map[string]bool)
	for page := 1; page <= maxLessonPages; page++ {
		batch, err := uc.Repository.ListLessons(ctx, LessonFilter{Course: courseID, Limit: uc.LessonLimit, Page: page})
		if err != nil {
			return nil, err
		}
		added := 0
		for _, l := range batch {
			if !seen[l.ID] {
				seen[l.ID] = true
				all = append(all, l)
				added++
			}
		}
		if len(batch) < uc.LessonLimit {
			return all, nil
		}
		if added == 0 {
			// a full page of lessons already seen, the platform ignores paging
			return nil, fmt.Errorf("%w: lessons of course %s are not paged, more than %d exist",
				domain.ErrUpstreamUnavailable, courseID, uc.LessonLimit)
		}
	}
	return nil, fmt.Errorf("%w: course %s has more than %d lessons",
		domain.ErrUpstreamUnavailable, courseID, maxLessonPages*uc.LessonLimit)
}

// LoadProgress fetch enrollment progress, filling the resume point from the activity log when missing
func (uc *UseCaseImpl) LoadProgress(ctx context.Context, userID, courseID string) (*Progress, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CurriculumUseCase.LoadProgress", "service")
	defer apmSpan.End()

	progress, err := uc.Repository.GetEnrollmentProgress(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if progress.LastLessonID == "" && uc.Resume != nil && userID != "" {
		last, err := uc.Resume.LastLesson(ctx, userID, courseID)
		if err != nil {
			logging.ExtractLoggerFromContext(ctx).Warn("failed to read last visited lesson",
				zap.String("course.id", courseID), zap.Error(err))
		} else {
			progress.LastLessonID = last
		}
	}
	return progress, nil
}

// LoadPlayer outline and progress fetched concurrently, both must succeed
func (uc *UseCaseImpl) LoadPlayer(ctx context.Context, userID, courseID string) (*Outline, *Progress, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CurriculumUseCase.LoadPlayer", "service")
	defer apmSpan.End()

	var (
		outline  *Outline
		progress *Progress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		outline, err = uc.LoadCourse(gctx, courseID)
		return
	})
	g.Go(func() (err error) {
		progress, err = uc.LoadProgress(gctx, userID, courseID)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return outline, progress, nil
}

// Invalidate drop the cached outline of a course
func (uc *UseCaseImpl) Invalidate(ctx context.Context, courseID string) error {
	if uc.Cache == nil {
		return nil
	}
	return uc.Cache.Del(ctx, outlineKey(courseID))
}

func (uc *UseCaseImpl) readCache(ctx context.Context, courseID string) *Outline {
	if uc.Cache == nil || uc.CacheTTL <= 0 {
		return nil
	}
	logger := logging.ExtractLoggerFromContext(ctx)
	raw, err := uc.Cache.Get(ctx, outlineKey(courseID))
	if err != nil {
		if !errors.Is(err, driver.ErrKeyNotFound) {
			logger.Warn("failed to read curriculum cache", zap.String("course.id", courseID), zap.Error(err))
		}
		return nil
	}
	outline := new(Outline)
	if err := json.Unmarshal([]byte(raw), outline); err != nil {
		logger.Warn("corrupted curriculum cache entry", zap.String("course.id", courseID), zap.Error(err))
		return nil
	}
	return outline
}

func (uc *UseCaseImpl) writeCache(ctx context.Context, courseID string, outline *Outline) {
	if uc.Cache == nil || uc.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(outline)
	if err == nil {
		err = uc.Cache.SetEX(ctx, outlineKey(courseID), string(raw), uc.CacheTTL)
	}
	if err != nil {
		logging.ExtractLoggerFromContext(ctx).Warn("failed to write curriculum cache",
			zap.String("course.id", courseID), zap.Error(err))
	}
}
