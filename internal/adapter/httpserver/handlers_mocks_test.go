package httpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/config"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/domain"
)

// --- Mock implementations ---

type mockAppService struct {
	analyzeFn func(ctx context.Context, rawText, clientID string) (*domain.Result, error)
}

func (m *mockAppService) Analyze(ctx context.Context, rawText, clientID string) (*domain.Result, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, rawText, clientID)
	}
	return nil, errors.New("not implemented")
}

func happyResult() *domain.Result {
	return &domain.Result{
		Text: "lovely weather today",
		Scores: []domain.ScoreEntry{
			{Label: "joy", Score: 0.91},
			{Label: "neutral", Score: 0.09},
		},
		ModelName: "test-model",
	}
}

// --- Test helpers ---

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	cfg := &config.Config{
		AppEnv: "test",
		Port:   "0",
		// Generous transport limits so they never interfere with
		// tests that target other behavior.
		TransportRatePerSecond: 1000,
		TransportBurst:         1000,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       app,
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	// Register routes so endpoints are available for testing
	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withAPIKeys(keys ...string) func(*Server) {
	return func(s *Server) {
		s.config.APIKeys = keys
	}
}

func withTransportLimits(ratePerSecond float64, burst int) func(*Server) {
	return func(s *Server) {
		s.config.TransportRatePerSecond = ratePerSecond
		s.config.TransportBurst = burst
	}
}
