package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"strategist/internal/middleware"
	"strategist/internal/model"
	"strategist/internal/service"
	"strategist/internal/store"
	"strategist/pkg/advice"

	"github.com/gin-gonic/gin"
)

type StrategyHandler struct {
	strategist *service.StrategistService
	auth       *service.AuthService
	ledger     store.Ledger
	log        *slog.Logger
}

func NewStrategyHandler(s *service.StrategistService, auth *service.AuthService, ledger store.Ledger, log *slog.Logger) *StrategyHandler {
	if ledger == nil {
		ledger = store.Nop{}
	}
	return &StrategyHandler{strategist: s, auth: auth, ledger: ledger, log: log}
}

// GetStrategy answers POST /api/strategy. Checks run in a fixed order:
// provider credential, body, password, query.
func (h *StrategyHandler) GetStrategy(c *gin.Context) {
	start := time.Now()
	var query string
	var outcome error
	defer func() { h.record(c, query, outcome, start) }()

	if !h.strategist.Ready() {
		outcome = h.fail(c, fmt.Errorf("%w: GEMINI_API_KEY missing in gateway environment.", advice.ErrConfiguration))
		return
	}

	var req model.StrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		outcome = h.fail(c, fmt.Errorf("%w: invalid request", advice.ErrBadRequest))
		return
	}
	query = req.Query

	if req.Password != "" || !c.GetBool(middleware.ContextUnlocked) {
		if err := h.auth.Check(req.Password); err != nil {
			h.log.Warn("strategy.unauthorized", "request_id", c.GetString(middleware.ContextRequestID))
			outcome = h.fail(c, err)
			return
		}
	}

	if strings.TrimSpace(req.Query) == "" {
		outcome = h.fail(c, fmt.Errorf("%w: Query is required", advice.ErrBadRequest))
		return
	}

	body, err := h.strategist.Advise(c.Request.Context(), req.Query)
	if err != nil {
		h.log.Error("strategy.advise failed", "request_id", c.GetString(middleware.ContextRequestID), "code", advice.Code(err), "err", err)
		outcome = h.fail(c, err)
		return
	}

	h.log.Info("strategy.ok", "request_id", c.GetString(middleware.ContextRequestID), "bytes", len(body))
	c.Data(http.StatusOK, "application/json", body)
}

// Options answers a bare OPTIONS request; CORS preflights are already
// handled by the cors middleware.
func (h *StrategyHandler) Options(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *StrategyHandler) fail(c *gin.Context, err error) error {
	c.JSON(statusFor(err), model.ErrorResponse{Error: advice.Detail(err), Code: advice.Code(err)})
	return err
}

// record writes the ledger row off the request path.
func (h *StrategyHandler) record(c *gin.Context, query string, outcome error, start time.Time) {
	entry := &model.Consultation{
		RequestID: c.GetString(middleware.ContextRequestID),
		Query:     query,
		Code:      "ok",
		Status:    c.Writer.Status(),
		LatencyMS: time.Since(start).Milliseconds(),
		CreatedAt: start,
	}
	if outcome != nil {
		entry.Code = advice.Code(outcome)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.ledger.Record(ctx, entry); err != nil {
			h.log.Warn("ledger record failed", "request_id", entry.RequestID, "err", err)
		}
	}()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, advice.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, advice.ErrBadRequest), errors.Is(err, advice.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, advice.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, advice.ErrUpstreamOverloaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
