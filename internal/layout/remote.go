package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StatusError is a non-success HTTP status returned by the remote store.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: remote status %d: %s", e.Op, e.Code, e.Body)
	}
	return fmt.Sprintf("%s: remote status %d", e.Op, e.Code)
}

// Unwrap maps 404 onto ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// HTTPRemoteStore is a RemoteStore speaking the layouts endpoint contract:
//
//	GET    {base}/layouts
//	GET    {base}/layouts/{id}
//	POST   {base}/layouts
//	DELETE {base}/layouts/{id}
//
// No timeout is applied beyond the configured http.Client's own.
type HTTPRemoteStore struct {
	base   string
	client *http.Client
	tracer trace.Tracer
}

// RemoteOption configures an HTTPRemoteStore.
type RemoteOption func(*HTTPRemoteStore)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(s *HTTPRemoteStore) { s.client = c }
}

// WithTracerProvider sets the tracer provider used for request spans.
func WithTracerProvider(tp trace.TracerProvider) RemoteOption {
	return func(s *HTTPRemoteStore) { s.tracer = tp.Tracer("autopilot/layout") }
}

// NewHTTPRemoteStore returns a store rooted at baseURL, e.g.
// "http://localhost:8080/api".
func NewHTTPRemoteStore(baseURL string, opts ...RemoteOption) *HTTPRemoteStore {
	s := &HTTPRemoteStore{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{},
		tracer: otel.Tracer("autopilot/layout"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List implements RemoteStore.
func (s *HTTPRemoteStore) List(ctx context.Context) ([]Layout, error) {
	var out []Layout
	if err := s.do(ctx, "list", http.MethodGet, "/layouts", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get implements RemoteStore.
func (s *HTTPRemoteStore) Get(ctx context.Context, id string) (Layout, error) {
	var out Layout
	if err := s.do(ctx, "load", http.MethodGet, "/layouts/"+url.PathEscape(id), id, nil, &out); err != nil {
		return Layout{}, err
	}
	return out, nil
}

// Save implements RemoteStore. An empty response body echoes l.
func (s *HTTPRemoteStore) Save(ctx context.Context, l Layout) (Layout, error) {
	out := l
	if err := s.do(ctx, "save", http.MethodPost, "/layouts", l.ID, l, &out); err != nil {
		return Layout{}, err
	}
	return out, nil
}

// Delete implements RemoteStore.
func (s *HTTPRemoteStore) Delete(ctx context.Context, id string) error {
	return s.do(ctx, "delete", http.MethodDelete, "/layouts/"+url.PathEscape(id), id, nil, nil)
}

func (s *HTTPRemoteStore) do(ctx context.Context, op, method, path, id string, in, out any) (err error) {
	ctx, span := s.tracer.Start(ctx, "layout.remote."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("layout.id", id),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s: decode body: %w", op, io.ErrUnexpectedEOF)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode body: %w", op, err)
	}
	return nil
}
