package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pot-code/learning-gateway/internal/curriculum"
	"github.com/pot-code/learning-gateway/internal/domain"
	"github.com/pot-code/learning-gateway/internal/infrastructure/logging"
	"github.com/pot-code/learning-gateway/internal/infrastructure/metrics"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// maximum accepted response body
const maxBodySize = 8 << 20

// Config platform API client settings
type Config struct {
	BaseURL     string
	Timeout     time.Duration // ordinary reads and writes
	LongTimeout time.Duration // report and certificate generation
}

// Client platform REST API client
type Client struct {
	baseURL     string
	timeout     time.Duration
	longTimeout time.Duration
	http        *http.Client
	metrics     *metrics.Metrics
}

var _ curriculum.Repository = &Client{}

// NewClient create a platform client, metrics may be nil
func NewClient(cfg Config, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		timeout:     cfg.Timeout,
		longTimeout: cfg.LongTimeout,
		// deadlines come from the request context, see do
		http:    &http.Client{},
		metrics: m,
	}
}

type tokenKey struct{}

// WithToken attach the caller's bearer token, it is forwarded on every platform call
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext bearer token set by WithToken
func TokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey{}).(string); ok {
		return token
	}
	return ""
}

// GetCourse GET /courses/:id
func (c *Client) GetCourse(ctx context.Context, courseID string) (*curriculum.Course, error) {
	var dto courseDTO
	if err := c.do(ctx, "GetCourse", http.MethodGet, "/courses/"+url.PathEscape(courseID), nil, nil, c.timeout, &dto); err != nil {
		return nil, err
	}
	return dto.toCourse(), nil
}

// ListSections GET /courses/:id/sections
func (c *Client) ListSections(ctx context.Context, courseID string) ([]*curriculum.Section, error) {
	var dtos []*sectionDTO
	if err := c.do(ctx, "ListSections", http.MethodGet, "/courses/"+url.PathEscape(courseID)+"/sections", nil, nil, c.timeout, &dtos); err != nil {
		return nil, err
	}
	sections := make([]*curriculum.Section, 0, len(dtos))
	for _, dto := range dtos {
		if dto != nil {
			sections = append(sections, dto.toSection())
		}
	}
	return sections, nil
}

// ListLessons GET /lessons?course=&section=&limit=&page=
func (c *Client) ListLessons(ctx context.Context, filter curriculum.LessonFilter) ([]*curriculum.Lesson, error) {
	query := url.Values{}
	if filter.Course != "" {
		query.Set("course", filter.Course)
	}
	if filter.Section != "" {
		query.Set("section", filter.Section)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}

	var dtos []*lessonDTO
	if err := c.do(ctx, "ListLessons", http.MethodGet, "/lessons", query, nil, c.timeout, &dtos); err != nil {
		return nil, err
	}
	lessons := make([]*curriculum.Lesson, 0, len(dtos))
	for _, dto := range dtos {
		if dto != nil {
			lessons = append(lessons, dto.toLesson())
		}
	}
	return lessons, nil
}

// GetLessonContent GET /lessons/:id/content
func (c *Client) GetLessonContent(ctx context.Context, lessonID string) (*curriculum.LessonContent, error) {
	content := new(curriculum.LessonContent)
	if err := c.do(ctx, "GetLessonContent", http.MethodGet, "/lessons/"+url.PathEscape(lessonID)+"/content", nil, nil, c.timeout, content); err != nil {
		return nil, err
	}
	if err := content.Validate(); err != nil {
		return nil, errors.Wrap(err, "GetLessonContent")
	}
	return content, nil
}

// GetEnrollmentProgress GET /enrollments/:courseId/progress
func (c *Client) GetEnrollmentProgress(ctx context.Context, courseID string) (*curriculum.Progress, error) {
	var dto progressDTO
	if err := c.do(ctx, "GetEnrollmentProgress", http.MethodGet, "/enrollments/"+url.PathEscape(courseID)+"/progress", nil, nil, c.timeout, &dto); err != nil {
		return nil, err
	}
	return dto.toProgress(), nil
}

// ReorderSections PATCH /courses/:id/sections/reorder
func (c *Client) ReorderSections(ctx context.Context, courseID string, items []curriculum.OrderItem) error {
	return c.do(ctx, "ReorderSections", http.MethodPatch, "/courses/"+url.PathEscape(courseID)+"/sections/reorder", nil, items, c.timeout, nil)
}

// ReorderLessons PATCH /sections/:id/lessons/reorder
func (c *Client) ReorderLessons(ctx context.Context, sectionID string, items []curriculum.OrderItem) error {
	return c.do(ctx, "ReorderLessons", http.MethodPatch, "/sections/"+url.PathEscape(sectionID)+"/lessons/reorder", nil, items, c.timeout, nil)
}

// UpdateLessonProgress PATCH /enrollments/:courseId/lessons/:lessonId, returns the authoritative progress
func (c *Client) UpdateLessonProgress(ctx context.Context, courseID, lessonID string, completed bool) (*curriculum.Progress, error) {
	var dto progressDTO
	path := "/enrollments/" + url.PathEscape(courseID) + "/lessons/" + url.PathEscape(lessonID)
	if err := c.do(ctx, "UpdateLessonProgress", http.MethodPatch, path, nil, lessonProgressRequest{Completed: completed}, c.timeout, &dto); err != nil {
		return nil, err
	}
	return dto.toProgress(), nil
}

// RequestCertificate POST /enrollments/:courseId/certificate, runs with the long timeout
func (c *Client) RequestCertificate(ctx context.Context, courseID string) (*Certificate, error) {
	var dto certificateDTO
	if err := c.do(ctx, "RequestCertificate", http.MethodPost, "/enrollments/"+url.PathEscape(courseID)+"/certificate", nil, nil, c.longTimeout, &dto); err != nil {
		return nil, err
	}
	return dto.toCertificate(courseID), nil
}

// Ping checks the platform answers at all, any HTTP response counts
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Operation: "Ping", Message: err.Error(), Err: domain.ErrUpstreamUnavailable}
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in interface{}, timeout time.Duration, out interface{}) error {
	apmSpan, ctx := apm.StartSpan(ctx, "Platform."+op, "external.http")
	defer apmSpan.End()

	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "%s: encode request", op)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errors.Wrapf(err, "%s: build request", op)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := logging.ExtractLoggerFromContext(ctx)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(op, "error", time.Since(start))
		if parent.Err() != nil {
			// caller went away, not an upstream failure
			return errors.Wrap(parent.Err(), op)
		}
		logger.Warn("platform request failed",
			zap.String("upstream.operation", op), zap.String("url.path", path), zap.Error(err))
		return errors.WithStack(&APIError{Operation: op, Message: err.Error(), Err: domain.ErrUpstreamUnavailable})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	elapsed := time.Since(start)
	c.metrics.RecordUpstream(op, strconv.Itoa(resp.StatusCode), elapsed)
	logger.Debug("platform request",
		zap.String("upstream.operation", op),
		zap.String("http.request.method", method),
		zap.String("url.path", path),
		zap.Int("http.response.status_code", resp.StatusCode),
		zap.Duration("event.duration", elapsed))
	if err != nil {
		return errors.WithStack(&APIError{Operation: op, StatusCode: resp.StatusCode, Message: err.Error(), Err: domain.ErrUpstreamUnavailable})
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.WithStack(&APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Err:        classify(resp.StatusCode),
		})
	}
	if out == nil {
		return nil
	}

	data, err := unwrap(raw)
	if err != nil {
		return errors.Wrapf(err, "%s: decode envelope", op)
	}
	if len(data) == 0 || isNull(data) {
		return errors.WithStack(&APIError{Operation: op, StatusCode: resp.StatusCode, Message: "empty payload", Err: domain.ErrNotFound})
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "%s: decode payload", op)
	}
	return nil
}
