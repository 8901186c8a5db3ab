package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/yaanno/mood-tracker-sentiment-analyzer/internal/errors"
)

type analyzeRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Text == "" {
		return apperrors.ValidationError("text is required")
	}

	result, err := s.app.Analyze(c.Request().Context(), req.Text, clientID(c))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, result); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
