// Package celonis implements the platform capability interface over the
// Celonis integration JSON API.
//
// The backend registers itself under kind "celonis"; binaries enable it with
// a blank import. All calls are plain request/response JSON over net/http
// with bearer auth and a per-request timeout owned by the caller's context.
package celonis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"datapush/internal/platform"
)

func init() {
	platform.Register("celonis", New)
}

// httpTimeout caps a single API call. Chunk payloads are bounded by the
// uploader's chunk size, so a flat cap is acceptable.
const httpTimeout = 5 * time.Minute

// APIError is a non-404 error response from the platform.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("celonis: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
}

// New connects to a Celonis instance. The connection is validated lazily;
// constructing the client only parses the base URL.
func New(ctx context.Context, cfg platform.Config) (platform.Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("celonis: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("celonis: base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("celonis: missing api key")
	}

	return &client{
		base:   base,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: httpTimeout},
	}, nil
}

func (c *client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// do performs one JSON API call. A 404 maps to platform.ErrNotFound so
// callers can branch on lookup misses; any other non-2xx status becomes an
// *APIError carrying a bounded copy of the response body.
func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("celonis: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("celonis: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("celonis: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("celonis: %s %s: %w", method, path, platform.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("celonis: decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// ---- pool ----

type poolInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *client) Pool(ctx context.Context, id string) (platform.Pool, error) {
	var info poolInfo
	if err := c.do(ctx, http.MethodGet, "integration/api/pools/"+id, nil, &info); err != nil {
		return nil, err
	}
	return &pool{c: c, id: id}, nil
}

type pool struct {
	c  *client
	id string
}

func (p *pool) ID() string { return p.id }

func (p *pool) path(suffix string) string {
	return "integration/api/pools/" + p.id + suffix
}

type jobInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p *pool) Jobs(ctx context.Context) ([]platform.Job, error) {
	var infos []jobInfo
	if err := p.c.do(ctx, http.MethodGet, p.path("/jobs"), nil, &infos); err != nil {
		return nil, err
	}
	out := make([]platform.Job, 0, len(infos))
	for _, ji := range infos {
		out = append(out, &job{pool: p, id: ji.ID, name: ji.Name})
	}
	return out, nil
}

func (p *pool) CreateJob(ctx context.Context, name string) (platform.Job, error) {
	var ji jobInfo
	body := map[string]string{"name": name}
	if err := p.c.do(ctx, http.MethodPost, p.path("/jobs"), body, &ji); err != nil {
		return nil, err
	}
	return &job{pool: p, id: ji.ID, name: ji.Name}, nil
}

type tableInfo struct {
	Name string `json:"name"`
}

func (p *pool) Table(ctx context.Context, name string) (platform.Table, error) {
	var ti tableInfo
	if err := p.c.do(ctx, http.MethodGet, p.path("/tables/"+url.PathEscape(name)), nil, &ti); err != nil {
		return nil, err
	}
	return &tableHandle{pool: p, name: name}, nil
}

type insertResponse struct {
	Inserted int `json:"inserted"`
}

func (p *pool) CreateTable(ctx context.Context, rows platform.Rows, name string) (int, error) {
	body := map[string]any{
		"name":    name,
		"records": recordsFromRows(rows),
	}
	var resp insertResponse
	if err := p.c.do(ctx, http.MethodPost, p.path("/tables"), body, &resp); err != nil {
		return 0, err
	}
	if resp.Inserted == 0 {
		// Older API versions omit the count; assume the whole batch landed.
		return len(rows.Values), nil
	}
	return resp.Inserted, nil
}

// ---- job ----

type job struct {
	pool *pool
	id   string
	name string
}

func (j *job) Name() string { return j.name }

func (j *job) path(suffix string) string {
	return j.pool.path("/jobs/" + j.id + suffix)
}

type transformationInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Statement string `json:"transformationStatement"`
}

func (j *job) Transformations(ctx context.Context) ([]platform.Transformation, error) {
	var infos []transformationInfo
	if err := j.pool.c.do(ctx, http.MethodGet, j.path("/transformations"), nil, &infos); err != nil {
		return nil, err
	}
	out := make([]platform.Transformation, 0, len(infos))
	for _, ti := range infos {
		out = append(out, &transformation{job: j, id: ti.ID, name: ti.Name, statement: ti.Statement})
	}
	return out, nil
}

func (j *job) CreateTransformation(ctx context.Context, name, statement string) (platform.Transformation, error) {
	body := map[string]string{
		"name":                    name,
		"transformationStatement": statement,
	}
	var ti transformationInfo
	if err := j.pool.c.do(ctx, http.MethodPost, j.path("/transformations"), body, &ti); err != nil {
		return nil, err
	}
	return &transformation{job: j, id: ti.ID, name: name, statement: statement}, nil
}

func (j *job) Execute(ctx context.Context) error {
	return j.pool.c.do(ctx, http.MethodPost, j.path("/execute"), nil, nil)
}

// ---- transformation ----

type transformation struct {
	job       *job
	id        string
	name      string
	statement string
}

func (t *transformation) Name() string      { return t.name }
func (t *transformation) Statement() string { return t.statement }

func (t *transformation) Delete(ctx context.Context) error {
	return t.job.pool.c.do(ctx, http.MethodDelete, t.job.path("/transformations/"+t.id), nil, nil)
}

// ---- table ----

type tableHandle struct {
	pool *pool
	name string
}

func (t *tableHandle) Name() string { return t.name }

func (t *tableHandle) Append(ctx context.Context, rows platform.Rows) (int, error) {
	body := map[string]any{"records": recordsFromRows(rows)}
	var resp insertResponse
	path := t.pool.path("/tables/" + url.PathEscape(t.name) + "/records")
	if err := t.pool.c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return 0, err
	}
	if resp.Inserted == 0 {
		return len(rows.Values), nil
	}
	return resp.Inserted, nil
}

// recordsFromRows converts a positional batch into the API's record objects.
// Timestamps are rendered in the platform's TIMESTAMP literal format.
func recordsFromRows(rows platform.Rows) []map[string]any {
	out := make([]map[string]any, 0, len(rows.Values))
	for _, vals := range rows.Values {
		rec := make(map[string]any, len(rows.Columns))
		for i, col := range rows.Columns {
			if i >= len(vals) {
				break
			}
			switch v := vals[i].(type) {
			case time.Time:
				rec[col] = v.Format("2006-01-02 15:04:05")
			default:
				rec[col] = v
			}
		}
		out = append(out, rec)
	}
	return out
}
