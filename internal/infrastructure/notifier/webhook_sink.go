package notifier

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matchpick/predictor-league/internal/domain/audit"
	"github.com/matchpick/predictor-league/internal/platform/logging"
	"github.com/matchpick/predictor-league/internal/platform/resilience"
)

var errWebhookTransient = crerr.New("audit webhook transient failure")

type WebhookSinkConfig struct {
	URL            string
	Token          string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// WebhookSink posts audit events to an external collector. Delivery is best
// effort: a tripped breaker or a failed POST surfaces as an error the caller
// logs and drops.
type WebhookSink struct {
	client         *http.Client
	url            string
	token          string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewWebhookSink(cfg WebhookSinkConfig, logger *logging.Logger) *WebhookSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &WebhookSink{
		client: &http.Client{
			Timeout: timeout,
		},
		url:            strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		token:          strings.TrimSpace(cfg.Token),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (s *WebhookSink) Emit(ctx context.Context, event audit.Event) error {
	if s.circuitEnabled {
		if err := s.breaker.Allow(); err != nil {
			s.logger.WarnContext(ctx, "audit webhook circuit breaker rejected event", "state", s.breaker.State(), "action", event.Action)
			return fmt.Errorf("audit webhook is temporarily unavailable: %w", err)
		}
	}

	endpoint, err := validateHTTPURL(s.url)
	if err != nil {
		return crerr.Wrap(err, "invalid AUDIT_WEBHOOK_URL")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	body, err := sonic.Marshal(event)
	if err != nil {
		return crerr.Wrap(err, "marshal audit event")
	}
	_, _ = buf.Write(body)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("audit.action", event.Action),
			attribute.String("audit.webhook_url", endpoint),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(buf.String()))
	if err != nil {
		return crerr.Wrap(err, "create audit webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		callErr := fmt.Errorf("%w: post audit event action=%s: %v", errWebhookTransient, event.Action, err)
		s.recordCircuitResult(callErr)
		return callErr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isRetryableStatus(resp.StatusCode) {
			callErr := fmt.Errorf(
				"%w: post audit event status=%d action=%s body=%s",
				errWebhookTransient,
				resp.StatusCode,
				event.Action,
				strings.TrimSpace(string(raw)),
			)
			s.recordCircuitResult(callErr)
			return callErr
		}

		callErr := fmt.Errorf(
			"post audit event status=%d action=%s body=%s",
			resp.StatusCode,
			event.Action,
			strings.TrimSpace(string(raw)),
		)
		s.recordCircuitResult(callErr)
		return callErr
	}

	s.recordCircuitResult(nil)
	return nil
}

func (s *WebhookSink) recordCircuitResult(err error) {
	if !s.circuitEnabled || s.breaker == nil {
		return
	}
	if err == nil {
		s.breaker.RecordSuccess()
		return
	}
	if stderrors.Is(err, errWebhookTransient) {
		s.breaker.RecordFailure()
		return
	}
	s.breaker.RecordSuccess()
}

func validateHTTPURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}
