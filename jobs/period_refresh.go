package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/qayd-erp/qayd-erp/internal/ledger/periods"
)

// PeriodRefreshHandler runs the daily current-period flag refresh.
type PeriodRefreshHandler struct {
	service *periods.Service
	logger  *slog.Logger
}

// NewPeriodRefreshHandler constructs the handler.
func NewPeriodRefreshHandler(service *periods.Service, logger *slog.Logger) *PeriodRefreshHandler {
	return &PeriodRefreshHandler{service: service, logger: logger}
}

// ProcessTask handles TaskPeriodRefresh.
func (h *PeriodRefreshHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	updated, current, err := h.service.RefreshCurrentFlag(ctx)
	if err != nil {
		return err
	}
	if h.logger != nil {
		attrs := []any{slog.Int64("updated", updated)}
		if current != nil {
			attrs = append(attrs, slog.String("period", current.Name))
		}
		h.logger.Info("period refresh completed", attrs...)
	}
	return nil
}
