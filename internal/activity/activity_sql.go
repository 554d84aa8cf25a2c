package activity

import (
	"context"
	"time"

	"github.com/pot-code/learning-gateway/internal/infrastructure/driver"
)

// ActivitySQL lesson_activity table, queries use $n placeholders which the
// mysql driver wrapper rewrites
type ActivitySQL struct {
	Conn driver.ITransactionalDB `dep:""`
}

var _ Repository = &ActivitySQL{}

// NewRepository ...
func NewRepository(Conn driver.ITransactionalDB) *ActivitySQL {
	return &ActivitySQL{
		Conn: Conn,
	}
}

// Record insert one visit
func (repo *ActivitySQL) Record(ctx context.Context, visit *Visit) error {
	_, err := repo.Conn.ExecContext(ctx, `
INSERT INTO lesson_activity
    (user_id, course_id, lesson_id, seconds, visited_at)
VALUES
    ($1, $2, $3, $4, $5)
	`, visit.UserID, visit.CourseID, visit.LessonID, visit.Seconds, visit.At.UTC())
	return err
}

// LastLesson most recently visited lesson of a course, empty when the user never visited one
func (repo *ActivitySQL) LastLesson(ctx context.Context, userID, courseID string) (string, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    lesson_id
FROM
    lesson_activity
WHERE
    user_id = $1
        AND course_id = $2
ORDER BY visited_at DESC
LIMIT 1
	`, userID, courseID)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var lessonID string
	if rows.Next() {
		if err := rows.Scan(&lessonID); err != nil {
			return "", err
		}
	}
	return lessonID, nil
}

// ListVisits visits ended in [from, to)
func (repo *ActivitySQL) ListVisits(ctx context.Context, userID string, from, to time.Time) ([]*Visit, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    course_id, lesson_id, seconds, visited_at
FROM
    lesson_activity
WHERE
    user_id = $1
        AND visited_at >= $2
        AND visited_at < $3
ORDER BY visited_at ASC
	`, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Visit
	for rows.Next() {
		item := &Visit{UserID: userID}
		err := rows.Scan(&item.CourseID, &item.LessonID, &item.Seconds, &item.At)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}
