// Package model implements the HTTP adapter to the inference sidecar that
// hosts the pretrained classification model.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	apperrors "github.com/yaanno/mood-tracker-sentiment-analyzer/internal/errors"
)

// prediction is one entry of the sidecar's response payload.
type prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type scoreRequest struct {
	Text string `json:"text"`
}

// Client scores text against a remote model server. Calls run through a
// circuit breaker so a dead sidecar fails fast instead of queueing requests
// behind timeouts.
type Client struct {
	httpClient *http.Client
	endpoint   string
	modelName  string
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates an adapter for the model server at endpoint. timeout
// bounds each scoring call; modelName is forwarded in results unchanged.
func NewClient(endpoint, modelName string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "model-server",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		modelName:  modelName,
		breaker:    breaker,
	}
}

// ModelName returns the opaque model identifier.
func (c *Client) ModelName() string {
	return c.modelName
}

// Score posts the normalized text to the model server and returns its
// label -> confidence mapping. Labels are lowercased, predictions missing a
// label are skipped, and an empty prediction set is an error (the original
// model always emits the full label distribution).
func (c *Client) Score(ctx context.Context, text string) (map[string]float64, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.score(ctx, text)
	})
	if err != nil {
		return nil, apperrors.InferenceError("model scoring failed", err)
	}
	return result.(map[string]float64), nil
}

func (c *Client) score(ctx context.Context, text string) (map[string]float64, error) {
	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for the error message, then discard.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var predictions []prediction
	if err := json.NewDecoder(resp.Body).Decode(&predictions); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	scores := make(map[string]float64, len(predictions))
	for _, p := range predictions {
		if p.Label == "" {
			continue
		}
		scores[strings.ToLower(p.Label)] = p.Score
	}

	if len(scores) == 0 {
		return nil, fmt.Errorf("model server returned no valid predictions")
	}

	return scores, nil
}
