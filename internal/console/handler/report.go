package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
)

type ReportService interface {
	Catalogue() []domain.ReportInfo
	Run(ctx context.Context, slug string) (any, error)
}

type ReportHandler struct {
	service ReportService
	logger  *zap.Logger
}

func NewReportHandler(s ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{service: s, logger: logger.Named("report-handler")}
}

func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{slug}", h.Run)
	return r
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Catalogue())
}

func (h *ReportHandler) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Run(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
