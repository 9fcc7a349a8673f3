package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/planhr/backend/internal/services"
	"github.com/planhr/backend/pkg/httpcontext"
)

// SweepHandler exposes the periodic jobs for manual triggering. Both
// endpoints run the same code path as the cron schedules.
type SweepHandler struct {
	baseHandler
	sweeper *services.Sweeper
}

func NewSweepHandler(sweeper *services.Sweeper, adapter *httpcontext.Adapter, logger *zap.Logger) *SweepHandler {
	return &SweepHandler{
		baseHandler: newBaseHandler(adapter, logger),
		sweeper:     sweeper,
	}
}

// @Summary Extend recurrence series up to their horizons
// @Tags sweeps
// @Router /api/v1/sweeps/horizons [post]
func (h *SweepHandler) Horizons(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.sweeper.SweepHorizons(stdCtx); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"sweep": "horizons"})
}

// @Summary Advance task lifecycle states
// @Tags sweeps
// @Router /api/v1/sweeps/lifecycle [post]
func (h *SweepHandler) Lifecycle(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.sweeper.SweepLifecycle(stdCtx); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"sweep": "lifecycle"})
}
