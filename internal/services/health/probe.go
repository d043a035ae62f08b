// Package health implements the availability/load probe for the local tier.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/services"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"
)

// statusResponse is the wire contract of the probe sidecar.
type statusResponse struct {
	Available bool    `json:"available"`
	Load      float64 `json:"load"`
}

// HTTPProbe queries the local tier's status endpoint. It implements
// selector.Probe; any transport or auth failure surfaces as an error, which
// the selector treats as the tier being ineligible.
type HTTPProbe struct {
	client    *services.Client
	jwtSecret string
	timeout   time.Duration
}

// NewHTTPProbe creates a probe client from config. Returns an error when the
// probe endpoint is not configured, so callers can fall back to a nil probe.
func NewHTTPProbe(cfg models.ProbeConfig) (*HTTPProbe, error) {
	if cfg.BaseURL == "" {
		return nil, models.NewConfigurationError("probe", "base_url not configured")
	}

	timeout := 2 * time.Second
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	return &HTTPProbe{
		client:    services.NewClient(cfg.BaseURL),
		jwtSecret: cfg.JWTSecret,
		timeout:   timeout,
	}, nil
}

// LocalStatus reports whether the local tier is reachable and its load
// fraction in [0, 1].
func (p *HTTPProbe) LocalStatus(ctx context.Context) (bool, float64, error) {
	opts := &services.RequestOptions{
		Context: ctx,
		Timeout: p.timeout,
		Retries: 1,
	}

	if p.jwtSecret != "" {
		token, err := p.signToken()
		if err != nil {
			return false, 0, fmt.Errorf("probe auth: %w", err)
		}
		opts.Headers = map[string]string{
			"Authorization": fmt.Sprintf("Bearer %s", token),
		}
	}

	var status statusResponse
	if err := p.client.Get("/v1/status", &status, opts); err != nil {
		fiberlog.Debugf("Probe: local status request failed: %v", err)
		return false, 0, err
	}

	load := min(max(status.Load, 0), 1)
	return status.Available, load, nil
}

func (p *HTTPProbe) signToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "tier-router",
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(p.jwtSecret))
}

// Close releases the probe's pooled connections.
func (p *HTTPProbe) Close() {
	p.client.Close()
}
