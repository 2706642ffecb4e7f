// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/pesantren-go/internal/i18n"
	"github.com/olegiv/pesantren-go/internal/middleware"
	"github.com/olegiv/pesantren-go/internal/render"
	"github.com/olegiv/pesantren-go/internal/stats"
)

// StatsSource provides the overview numbers.
type StatsSource interface {
	Summary(ctx context.Context) (stats.Summary, error)
	Daily(ctx context.Context, n int) ([]stats.DayCount, error)
}

// DashboardHandler renders the dashboard overview.
type DashboardHandler struct {
	page
	stats      StatsSource
	assetsHost string
}

// NewDashboardHandler creates a DashboardHandler. assetsHost serves the
// chart script; empty uses the public go-echarts assets.
func NewDashboardHandler(r *render.Renderer, adminPath string, s StatsSource, assetsHost string, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{page: newPage(r, adminPath, logger), stats: s, assetsHost: assetsHost}
}

// OverviewData is the overview page model.
type OverviewData struct {
	Summary     stats.Summary
	StatsFailed bool
	ChartURL    string
}

// Overview renders the statistics cards and the visits chart.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	data := OverviewData{ChartURL: h.url(RouteChart)}

	sum, err := h.stats.Summary(r.Context())
	if err != nil {
		h.logger.Error("failed to load statistics", "error", err)
		data.StatsFailed = true
	} else {
		data.Summary = sum
	}

	h.render(w, r, http.StatusOK, "admin/overview", "admin.title", data, "", "")
}

// Chart serves the standalone chart page of the last days' visits.
func (h *DashboardHandler) Chart(w http.ResponseWriter, r *http.Request) {
	days, err := h.stats.Daily(r.Context(), chartDays)
	if err != nil {
		logAndInternalError(w, h.logger, "failed to load daily visits", "error", err)
		return
	}

	lang := middleware.GetLang(r)
	var buf bytes.Buffer
	if err := stats.RenderViewsChart(&buf, days, stats.ChartOptions{
		Title:      i18n.T(lang, "stats.chart.title"),
		SeriesName: i18n.T(lang, "stats.chart.series"),
		AssetsHost: h.assetsHost,
	}); err != nil {
		logAndInternalError(w, h.logger, "failed to render chart", "error", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
