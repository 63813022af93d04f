// File: internal/detector/client.go
package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is the contract for the remote visual-grounding service, allowing
// the controller to be tested against a stub.
type Client interface {
	// Health probes service liveness once. A session must not start when it fails.
	Health(ctx context.Context) error

	// Detect sends one screenshot and target description and returns the
	// parsed detection result. A well-formed "not found" answer is a valid
	// result, not an error.
	Detect(ctx context.Context, req DetectionRequest) (DetectionResult, error)
}

// RetryPolicy is the transient-fault policy for detection calls, kept apart
// from the transport so tests can run it with a short schedule.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
}

// newBackOff builds the bounded exponential schedule for one Detect call.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxRetries)), ctx)
}

// HTTPClient talks to the detection service over HTTP. It is stateless across
// calls; two identical requests produce independent, identical exchanges.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	policy     RetryPolicy
	iterations int
	healthTTL  time.Duration
	logger     *zap.Logger
}

// NewHTTPClient builds a client from configuration. The base URL is
// normalized so both "host:port" and full URLs are accepted.
func NewHTTPClient(cfg config.DetectorConfig, logger *zap.Logger) (*HTTPClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("detector endpoint is required")
	}
	base := strings.TrimRight(cfg.Endpoint, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &HTTPClient{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		policy: RetryPolicy{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.BackoffInitial,
			Multiplier:      cfg.BackoffFactor,
		},
		iterations: cfg.Iterations,
		healthTTL:  cfg.HealthTimeout,
		logger:     logger.Named("detector"),
	}, nil
}

// Health implements Client.
func (c *HTTPClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTTL)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Health check failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Health check returned non-OK status", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	c.logger.Debug("Health check OK", zap.String("endpoint", c.baseURL))
	return nil
}

// Detect implements Client. The image is encoded exactly once; each retry
// reuses the same serialized payload. Only network errors and HTTP 5xx are
// retried; everything else surfaces immediately.
func (c *HTTPClient) Detect(ctx context.Context, req DetectionRequest) (DetectionResult, error) {
	if req.Description == "" {
		return DetectionResult{}, fmt.Errorf("detection description must not be empty")
	}

	iterations := req.Iterations
	if iterations < 1 {
		iterations = c.iterations
	}

	body, err := json.Marshal(detectPayload{
		Image:       base64.StdEncoding.EncodeToString(req.Image),
		Description: req.Description,
		Context:     req.Context,
		Iterations:  iterations,
	})
	if err != nil {
		return DetectionResult{}, fmt.Errorf("failed to marshal detection payload: %w", err)
	}

	var (
		result  DetectionResult
		attempt int
	)

	operation := func() error {
		attempt++
		c.logger.Debug("Detection attempt",
			zap.Int("attempt", attempt),
			zap.String("description", req.Description),
		)

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create detection request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if isTimeout(err) {
				c.logger.Warn("Detection request timed out, retrying", zap.Error(err))
				return fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			c.logger.Warn("Network error during detection, retrying", zap.Error(err))
			return fmt.Errorf("detection request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read detection response: %w", err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			c.logger.Warn("Detection service error, retrying",
				zap.Int("status", resp.StatusCode))
			return fmt.Errorf("detection service returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%w: unexpected status %d: %s",
				ErrProtocol, resp.StatusCode, truncate(respBody, 256)))
		}

		var wire detectResponse
		if err := json.Unmarshal(respBody, &wire); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrProtocol, err))
		}
		if wire.Found && (wire.X == nil || wire.Y == nil) {
			return backoff.Permanent(fmt.Errorf("%w: found result missing coordinates", ErrProtocol))
		}

		result = wire.toResult()
		c.logger.Info("Detection response",
			zap.Bool("found", result.Found),
			zap.String("method", result.Method),
			zap.Duration("round_trip", time.Since(start)),
			zap.Float64("service_seconds", result.Elapsed),
		)
		return nil
	}

	if err := backoff.Retry(operation, c.policy.newBackOff(ctx)); err != nil {
		return DetectionResult{}, c.classify(ctx, err)
	}
	return result, nil
}

// classify maps an exhausted or aborted retry loop onto the error taxonomy.
func (c *HTTPClient) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrProtocol):
		return err
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// isTimeout reports whether err represents an elapsed deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
