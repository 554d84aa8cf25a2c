package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pot-code/learning-gateway/internal/curriculum"
	infra "github.com/pot-code/learning-gateway/internal/infrastructure"
	"github.com/pot-code/learning-gateway/internal/infrastructure/auth"
	"github.com/pot-code/learning-gateway/internal/infrastructure/driver"
	"github.com/pot-code/learning-gateway/internal/infrastructure/metrics"
	"github.com/pot-code/learning-gateway/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (kv *memoryKV) SetEX(ctx context.Context, key string, value string, expiration time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	return nil
}

func (kv *memoryKV) Get(ctx context.Context, key string) (string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	if !ok {
		return "", driver.ErrKeyNotFound
	}
	return v, nil
}

func (kv *memoryKV) Exists(ctx context.Context, key string) (bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, ok := kv.data[key]
	return ok, nil
}

func (kv *memoryKV) Del(ctx context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, key)
	return nil
}

func (kv *memoryKV) Ping(ctx context.Context) error { return nil }

func (kv *memoryKV) Close() error { return nil }

type fakeUpstream struct{ err error }

func (f *fakeUpstream) Ping(ctx context.Context) error { return f.err }

type fakeCurriculum struct{}

func (fakeCurriculum) LoadCourse(ctx context.Context, courseID string) (*curriculum.Outline, error) {
	return &curriculum.Outline{
		Course: &curriculum.Course{ID: courseID},
		Tree: curriculum.Stitch(
			[]*curriculum.Section{{ID: "S1", Order: 1}},
			[]*curriculum.Lesson{{ID: "L1", Section: curriculum.Ref{ID: "S1"}, Order: 1, Type: curriculum.LessonVideo}},
		),
	}, nil
}

func (fakeCurriculum) LoadProgress(ctx context.Context, userID, courseID string) (*curriculum.Progress, error) {
	return &curriculum.Progress{}, nil
}

func (f fakeCurriculum) LoadPlayer(ctx context.Context, userID, courseID string) (*curriculum.Outline, *curriculum.Progress, error) {
	o, _ := f.LoadCourse(ctx, courseID)
	return o, &curriculum.Progress{}, nil
}

func (fakeCurriculum) Invalidate(ctx context.Context, courseID string) error { return nil }

func testConfig() *infra.AppConfig {
	option := new(infra.AppConfig)
	option.Env = infra.EnvProduction
	option.RequestTimeout = time.Second
	option.Security.JWTMethod = "HS256"
	option.Security.JWTSecret = "secret"
	option.Security.TokenName = "access_token"
	return option
}

func testApp(upstream *fakeUpstream) (http.Handler, *memoryKV) {
	kv := &memoryKV{data: map[string]string{}}
	m := metrics.NewMetrics()
	deps := &Dependencies{
		KV:         kv,
		Upstream:   upstream,
		Curriculum: fakeCurriculum{},
		Player:     player.NewManager(fakeCurriculum{}, nil, nil, &counterID{}, m, 0),
		Metrics:    m,
	}
	return NewApp(testConfig(), deps, zap.NewNop()), kv
}

type counterID struct{ n int }

func (c *counterID) Generate() (string, error) {
	c.n++
	return fmt.Sprintf("s%d", c.n), nil
}

func bearer(t *testing.T) string {
	token, err := auth.NewJWTUtil("HS256", "secret", "access_token").Sign(&auth.AppTokenClaims{
		UID:            "u1",
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})
	require.NoError(t, err)
	return token
}

func do(app http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestNewApp_OpsRoutes(t *testing.T) {
	upstream := &fakeUpstream{}
	app, _ := testApp(upstream)

	assert.Equal(t, http.StatusOK, do(app, http.MethodGet, "/healthz", "").Code)
	upstream.err = errors.New("platform down")
	assert.Equal(t, http.StatusServiceUnavailable, do(app, http.MethodGet, "/healthz", "").Code)

	rec := do(app, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "learning_gateway_player_sessions_active")
}

func TestNewApp_Auth(t *testing.T) {
	app, _ := testApp(&fakeUpstream{})
	token := bearer(t)

	assert.Equal(t, http.StatusUnauthorized, do(app, http.MethodGet, "/api/v1/courses/c1/curriculum", "").Code)

	rec := do(app, http.MethodGet, "/api/v1/courses/c1/curriculum", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	assert.Equal(t, http.StatusNoContent, do(app, http.MethodPut, "/api/v1/auth/sign-out", token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(app, http.MethodGet, "/api/v1/courses/c1/curriculum", token).Code)
}

func TestNewApp_PlayerSession(t *testing.T) {
	app, _ := testApp(&fakeUpstream{})
	token := bearer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/player/sessions", jsonBody(`{"courseId":"c1"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var snap player.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "L1", snap.Current.ID)

	assert.Equal(t, http.StatusOK, do(app, http.MethodGet, "/api/v1/player/sessions/"+snap.SessionID, token).Code)
	assert.Equal(t, http.StatusNoContent, do(app, http.MethodDelete, "/api/v1/player/sessions/"+snap.SessionID, token).Code)

	rec = do(app, http.MethodGet, "/api/v1/player/sessions/"+snap.SessionID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusNotFound), body["code"])
	assert.NotEmpty(t, body["trace_id"])
}

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}
