package resource

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/internal/logging"
)

type mutationSettings struct {
	method string
	logger *slog.Logger
}

// MutationOption configures a Mutation.
type MutationOption func(*mutationSettings)

// WithMethod overrides the HTTP method, e.g. http.MethodPatch for modify.
func WithMethod(method string) MutationOption {
	return func(s *mutationSettings) {
		if method != "" {
			s.method = strings.ToUpper(method)
		}
	}
}

// WithMutationLogger sets the logger.
func WithMutationLogger(l *slog.Logger) MutationOption {
	return func(s *mutationSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// Mutation submits create or modify requests for one entity. It never
// touches the cache; callers refetch the affected resource themselves.
type Mutation[P any] struct {
	client  *apiclient.Client
	service string
	path    string
	method  string
	logger  *slog.Logger

	mu       sync.Mutex
	inflight int
	err      error
}

func newMutation[P any](client *apiclient.Client, service, path, method string, opts []MutationOption) *Mutation[P] {
	s := mutationSettings{method: method, logger: logging.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Mutation[P]{
		client:  client,
		service: service,
		path:    path,
		method:  s.method,
		logger:  s.logger,
	}
}

// NewCreate returns a mutation that POSTs payloads to path.
func NewCreate[P any](client *apiclient.Client, service, path string, opts ...MutationOption) *Mutation[P] {
	return newMutation[P](client, service, path, http.MethodPost, opts)
}

// NewModify returns a mutation that PUTs payloads to path.
func NewModify[P any](client *apiclient.Client, service, path string, opts ...MutationOption) *Mutation[P] {
	return newMutation[P](client, service, path, http.MethodPut, opts)
}

// CreateFor and ModifyFor build the mutations of an entity descriptor.
func CreateFor[P any](client *apiclient.Client, e clinic.Entity, opts ...MutationOption) *Mutation[P] {
	return NewCreate[P](client, e.Service, e.CreatePath, opts...)
}

func ModifyFor[P any](client *apiclient.Client, e clinic.Entity, opts ...MutationOption) *Mutation[P] {
	return NewModify[P](client, e.Service, e.UpdatePath, opts...)
}

// Method returns the HTTP method used by Submit.
func (m *Mutation[P]) Method() string { return m.method }

// Submit sends payload and returns the service response. Only status 200 and
// 201 count as success; anything else yields an *apiclient.Error carrying the
// service message or apiclient.FallbackMessage. The error is also kept for
// Err until the next Submit.
func (m *Mutation[P]) Submit(ctx context.Context, payload P) (*apiclient.Response, error) {
	m.mu.Lock()
	m.inflight++
	m.err = nil
	m.mu.Unlock()

	resp, err := m.client.Submit(ctx, m.method, m.service, m.path, payload)
	if err == nil && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := resp.Message
		if strings.TrimSpace(msg) == "" {
			msg = apiclient.FallbackMessage
		}
		err = &apiclient.Error{Op: m.method + " " + m.path, Status: resp.StatusCode, Message: msg}
	}
	if err != nil {
		m.logger.Warn("mutation failed", "method", m.method, "path", m.path, "error", err)
	}

	m.mu.Lock()
	m.inflight--
	m.err = err
	m.mu.Unlock()
	return resp, err
}

// Loading reports whether a Submit is in progress.
func (m *Mutation[P]) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

// Err returns the error of the last completed Submit.
func (m *Mutation[P]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}
