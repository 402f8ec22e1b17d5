// Package client talks to the upstream student API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
	"github.com/noah-isme/sma-adp-admin/pkg/middleware/requestid"
)

const maxErrorBody = 64 << 10

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx. Requests made with the
// returned context forward it upstream.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token attached by WithToken.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Observer receives timing for every upstream call.
type Observer interface {
	ObserveUpstreamRequest(operation string, status int, duration time.Duration)
}

// StudentClient calls the student endpoints of the school API.
type StudentClient struct {
	baseURL  *url.URL
	http     *http.Client
	observer Observer
}

// NewStudentClient builds a client for baseURL. A nil httpClient gets a
// client with the provided timeout.
func NewStudentClient(baseURL string, timeout time.Duration, httpClient *http.Client, observer Observer) (*StudentClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse student api url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("student api url must be absolute: %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &StudentClient{baseURL: parsed, http: httpClient, observer: observer}, nil
}

// List fetches one page of students: GET student/list?page=&name=.
func (c *StudentClient) List(ctx context.Context, q models.StudentQuery) (*models.StudentPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("name", q.Name)

	resp, err := c.do(ctx, "list", http.MethodGet, "student/list", params, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var page models.StudentPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "invalid student list response")
	}
	if page.Students == nil {
		page.Students = []models.Student{}
	}
	return &page, nil
}

// Delete removes a student: DELETE student/{id}.
func (c *StudentClient) Delete(ctx context.Context, id int64) (*models.MessageResponse, error) {
	resp, err := c.do(ctx, "delete", http.MethodDelete, "student/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var out models.MessageResponse
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "invalid delete response")
		}
	}
	return &out, nil
}

// Export requests a file for the selected students: POST student/export.
// The caller owns the returned body.
func (c *StudentClient) Export(ctx context.Context, req models.ExportRequest) (*models.ExportFile, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode export request: %w", err)
	}
	resp, err := c.do(ctx, "export", http.MethodPost, "student/export", nil, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &models.ExportFile{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		ContentType: contentType,
		Body:        resp.Body,
	}, nil
}

func (c *StudentClient) do(ctx context.Context, op, method, path string, params url.Values, body io.Reader) (*http.Response, error) {
	target := c.baseURL.ResolveReference(&url.URL{Path: path})
	if params != nil {
		target.RawQuery = params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	status := http.StatusServiceUnavailable
	if resp != nil {
		status = resp.StatusCode
	}
	if c.observer != nil {
		c.observer.ObserveUpstreamRequest(op, status, time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "student api unreachable")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close() //nolint:errcheck
		return nil, statusError(resp)
	}
	return resp, nil
}

// statusError maps an upstream failure onto the local error taxonomy and
// keeps the upstream message when one is present.
func statusError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &body)
	message := body.Message
	if message == "" {
		message = body.Error
	}

	var base *appErrors.Error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		base = appErrors.ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		base = appErrors.ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		base = appErrors.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		base = appErrors.ErrValidation
	default:
		base = appErrors.ErrUpstream
	}
	err := appErrors.Clone(base, message)
	err.Err = fmt.Errorf("student api responded %d", resp.StatusCode)
	return err
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
