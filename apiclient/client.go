// Package apiclient is the HTTP client for the clinic services.
//
// Every entity lives on its own service. The client maps service names to
// base URLs and falls back to a default base URL for unmapped services.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-clinic-console/internal/logging"
)

// DefaultTimeout bounds every request unless WithTimeout says otherwise.
const DefaultTimeout = 30 * time.Second

// HeaderRequestID carries the per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

const tracerName = "github.com/goliatone/go-clinic-console/apiclient"

// Client is an HTTP client for the clinic services.
type Client struct {
	baseURL    string
	services   map[string]string
	httpClient *http.Client
	token      string // optional bearer token
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithService routes requests for service to baseURL.
func WithService(service, baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.services[service] = baseURL
		}
	}
}

// WithServices routes several services at once. Empty URLs are ignored.
func WithServices(urls map[string]string) Option {
	return func(c *Client) {
		for service, baseURL := range urls {
			if baseURL != "" {
				c.services[service] = baseURL
			}
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider traces requests with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates a client whose unmapped services resolve against baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		services: make(map[string]string),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logging.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServiceURL returns the base URL requests for service are sent to.
func (c *Client) ServiceURL(service string) string {
	if u, ok := c.services[service]; ok {
		return u
	}
	return c.baseURL
}

// Response is the envelope the services answer mutations with.
type Response struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the response data into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("apiclient: response has no data")
	}
	return json.Unmarshal(r.Data, v)
}

// Get sends GET uri to service and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, service, uri string, out any) error {
	ctx, span := c.startSpan(ctx, http.MethodGet, service, uri)
	defer span.End()

	resp, op, err := c.send(ctx, span, http.MethodGet, service, uri, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return recordError(span, &Error{Op: op, Status: resp.StatusCode, Message: FallbackMessage, Cause: fmt.Errorf("decode response: %w", err)})
	}
	return nil
}

// Submit sends payload as JSON to path on service using method and returns
// the decoded envelope. HTTP error statuses return an *Error along with
// whatever envelope the service sent.
func (c *Client) Submit(ctx context.Context, method, service, path string, payload any) (*Response, error) {
	ctx, span := c.startSpan(ctx, method, service, path)
	defer span.End()

	resp, op, err := c.send(ctx, span, method, service, path, payload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, recordError(span, &Error{Op: op, Status: resp.StatusCode, Message: FallbackMessage, Cause: fmt.Errorf("read response: %w", err)})
	}

	var out Response
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil && resp.StatusCode < http.StatusBadRequest {
			return nil, recordError(span, &Error{Op: op, Status: resp.StatusCode, Message: FallbackMessage, Cause: fmt.Errorf("decode response: %w", err)})
		}
	}
	if out.StatusCode == 0 {
		out.StatusCode = resp.StatusCode
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &out, &Error{Op: op, Status: resp.StatusCode, Message: messageOr(out.Message)}
	}
	return &out, nil
}

// startSpan opens the client span of one request. The caller ends it once
// the body has been consumed.
func (c *Client) startSpan(ctx context.Context, method, service, uri string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, method+" "+uri,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			attribute.String("clinic.service", service),
		),
	)
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (c *Client) send(ctx context.Context, span trace.Span, method, service, uri string, payload any) (*http.Response, string, error) {
	op := method + " " + uri
	target, err := c.resolve(service, uri)
	if err != nil {
		return nil, op, recordError(span, &Error{Op: op, Message: FallbackMessage, Cause: err})
	}
	span.SetAttributes(semconv.URLFull(target))

	var body io.Reader
	if payload != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return nil, op, recordError(span, &Error{Op: op, Message: FallbackMessage, Cause: fmt.Errorf("encode payload: %w", err)})
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, op, recordError(span, &Error{Op: op, Message: FallbackMessage, Cause: err})
	}

	id := requestID(ctx)
	req.Header.Set(HeaderRequestID, id)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("clinic api request failed",
			"request_id", id, "method", method, "uri", uri, "error", err)
		return nil, op, &Error{Op: op, Message: FallbackMessage, Cause: err}
	}

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	c.logger.Debug("clinic api request",
		"request_id", id, "method", method, "uri", uri,
		"status", resp.StatusCode, "duration", time.Since(start))
	return resp, op, nil
}

func (c *Client) resolve(service, uri string) (string, error) {
	base := strings.TrimRight(c.ServiceURL(service), "/")
	if base == "" {
		return "", fmt.Errorf("no base URL for service %q", service)
	}
	return base + "/" + strings.TrimLeft(uri, "/"), nil
}

func (c *Client) parseError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &errResp)
	return &Error{Op: op, Status: resp.StatusCode, Message: messageOr(errResp.Message)}
}

func messageOr(msg string) string {
	if strings.TrimSpace(msg) == "" {
		return FallbackMessage
	}
	return msg
}
