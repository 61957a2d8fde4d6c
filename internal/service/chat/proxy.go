// Package chat proxies the portal's conversational endpoints to the
// external chat service. The service's reasoning is opaque to the
// portal; this layer only forwards messages plus history and relays
// replies, wrapping transport in a circuit breaker.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/pkg/circuitbreaker"
	apperrors "github.com/careloop/portal-api/pkg/errors"
	"github.com/careloop/portal-api/pkg/metrics"
)

type Proxy struct {
	baseURL string
	client  *http.Client
	cb      *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func NewProxy(cfg Config, m *metrics.Metrics, logger *zerolog.Logger) *Proxy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Proxy{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "chat-service",
			MaxFailures: 5,
			Timeout:     15 * time.Second,
		}),
		metrics: m,
		logger:  logger,
	}
}

// Send forwards one user message plus history for the given role and
// relays the reply. Transport failures come back as an unavailable
// error; the caller surfaces them, no automatic retry happens here.
func (p *Proxy) Send(ctx context.Context, role model.ChatRole, req *model.ChatRequest) (*model.ChatResponse, error) {
	if !model.ValidChatRole(role) {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown chat role %q", role), nil)
	}

	start := time.Now()
	var resp model.ChatResponse
	err := p.cb.Execute(func() error {
		return p.postJSON(ctx, fmt.Sprintf("/api/%s/chat", role), req, &resp)
	})
	p.observe(string(role), start, err)

	if err != nil {
		p.logger.Warn().Err(err).Str("role", string(role)).Msg("chat service call failed")
		return nil, apperrors.Unavailable("chat service", err)
	}
	return &resp, nil
}

// Health reports the chat service's own health endpoint.
func (p *Proxy) Health(ctx context.Context) (*model.ChatHealth, error) {
	var health model.ChatHealth
	if err := p.getJSON(ctx, "/api/health", &health); err != nil {
		return nil, apperrors.Unavailable("chat service", err)
	}
	return &health, nil
}

// DoctorMemory fetches the doctor-side conversation memory summary.
func (p *Proxy) DoctorMemory(ctx context.Context) (*model.ChatMemory, error) {
	var memory model.ChatMemory
	if err := p.getJSON(ctx, "/api/doctor/memory", &memory); err != nil {
		return nil, apperrors.Unavailable("chat service", err)
	}
	return &memory, nil
}

// ClearDoctorMemory resets the doctor-side conversation memory.
func (p *Proxy) ClearDoctorMemory(ctx context.Context) (*model.ChatResponse, error) {
	var resp model.ChatResponse
	err := p.cb.Execute(func() error {
		return p.postJSON(ctx, "/api/doctor/clear-memory", struct{}{}, &resp)
	})
	if err != nil {
		return nil, apperrors.Unavailable("chat service", err)
	}
	return &resp, nil
}

func (p *Proxy) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return p.do(req, out)
}

func (p *Proxy) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return p.do(req, out)
}

// do executes the request and decodes the JSON reply. The chat service
// reports its own failures inside the body (success=false) with a
// non-2xx status; those are relayed, not treated as transport errors.
func (p *Proxy) do(req *http.Request, out interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("chat service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read chat service response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unexpected chat service response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func (p *Proxy) observe(role string, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.ChatRequests.WithLabelValues(role, status).Inc()
	p.metrics.ChatUpstreamLatency.WithLabelValues(role).Observe(time.Since(start).Seconds())
}
