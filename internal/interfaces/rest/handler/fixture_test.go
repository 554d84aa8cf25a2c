package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-gateway/internal/curriculum"
	"github.com/pot-code/learning-gateway/internal/infrastructure/auth"
	"github.com/stretchr/testify/require"
)

const testUID = "u1"

var testJWT = auth.NewJWTUtil("HS256", "secret", "access_token")

// serve route target through a fresh echo instance as user uid, errors are
// rendered the way the server renders them
func serveAs(uid, method, path, target, body string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		re := NewRESTErrorFrom(err)
		c.JSON(re.Code, re)
	}
	e.Add(method, path, h, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			testJWT.SetContextToken(c, &auth.AppTokenClaims{UID: uid})
			return next(c)
		}
	})

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func serve(method, path, target, body string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	return serveAs(testUID, method, path, target, body, h)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// sixLessons S1 = L1..L3, S2 = L4..L6
func sixLessons() *curriculum.Outline {
	sections := []*curriculum.Section{
		{ID: "S1", Title: "Basics", Order: 1},
		{ID: "S2", Title: "Advanced", Order: 2},
	}
	var lessons []*curriculum.Lesson
	for i := 1; i <= 6; i++ {
		sec := "S1"
		if i > 3 {
			sec = "S2"
		}
		lessons = append(lessons, &curriculum.Lesson{
			ID:       fmt.Sprintf("L%d", i),
			Section:  curriculum.Ref{ID: sec},
			Title:    fmt.Sprintf("Lesson %d", i),
			Order:    i,
			Duration: 5,
			Type:     curriculum.LessonVideo,
		})
	}
	return &curriculum.Outline{
		Course: &curriculum.Course{ID: "c1", Title: "Go"},
		Tree:   curriculum.Stitch(sections, lessons),
	}
}

type fakeLoader struct {
	mu       sync.Mutex
	outline  *curriculum.Outline
	progress curriculum.Progress
	err      error
}

func (f *fakeLoader) LoadPlayer(ctx context.Context, userID, courseID string) (*curriculum.Outline, *curriculum.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	p := f.progress
	return f.outline, &p, nil
}

func (f *fakeLoader) LoadProgress(ctx context.Context, userID, courseID string) (*curriculum.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.progress
	return &p, nil
}

type fakePlatform struct {
	result  *curriculum.Progress
	err     error
	content *curriculum.LessonContent
}

func (f *fakePlatform) UpdateLessonProgress(ctx context.Context, courseID, lessonID string, completed bool) (*curriculum.Progress, error) {
	return f.result, f.err
}

func (f *fakePlatform) GetLessonContent(ctx context.Context, lessonID string) (*curriculum.LessonContent, error) {
	return f.content, f.err
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
