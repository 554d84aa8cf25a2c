package activity

import (
	"context"
	"time"

	"go.elastic.co/apm"
)

// UseCaseImpl ...
type UseCaseImpl struct {
	Repository Repository
}

var _ UseCase = &UseCaseImpl{}

// NewUseCase ...
func NewUseCase(
	Repository Repository,
) *UseCaseImpl {
	return &UseCaseImpl{Repository}
}

// Record store a visit, visits shorter than a second are ignored
func (uc *UseCaseImpl) Record(ctx context.Context, visit *Visit) error {
	apmSpan, ctx := apm.StartSpan(ctx, "ActivityUseCase.Record", "service")
	defer apmSpan.End()

	if visit.Seconds < 1 || visit.UserID == "" || visit.LessonID == "" {
		return nil
	}
	if visit.At.IsZero() {
		visit.At = time.Now()
	}
	return uc.Repository.Record(ctx, visit)
}

// LastLesson most recently visited lesson of the course
func (uc *UseCaseImpl) LastLesson(ctx context.Context, userID, courseID string) (string, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "ActivityUseCase.LastLesson", "service")
	defer apmSpan.End()

	return uc.Repository.LastLesson(ctx, userID, courseID)
}

// TimeSpentInWeek seconds spent per weekday in the ISO week (Monday first) containing at,
// always seven entries. Days are split in the location of at.
func (uc *UseCaseImpl) TimeSpentInWeek(ctx context.Context, userID string, at time.Time) ([]*DaySpent, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "ActivityUseCase.TimeSpentInWeek", "service")
	defer apmSpan.End()

	start := WeekStart(at)
	end := start.AddDate(0, 0, 7)
	visits, err := uc.Repository.ListVisits(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	days := make([]*DaySpent, 7)
	seen := make([]map[string]struct{}, 7)
	for i := range days {
		days[i] = &DaySpent{
			Weekday:   i,
			Timestamp: start.AddDate(0, 0, i).Unix() * 1e3, // milliseconds
		}
		seen[i] = make(map[string]struct{})
	}
	for _, v := range visits {
		d := weekday(v.At.In(at.Location()))
		days[d].Seconds += v.Seconds
		if _, ok := seen[d][v.LessonID]; !ok {
			seen[d][v.LessonID] = struct{}{}
			days[d].Lessons++
		}
	}
	return days, nil
}

// WeekStart Monday 00:00 of the week containing t, in t's location
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -weekday(t))
}

// weekday Monday based
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
