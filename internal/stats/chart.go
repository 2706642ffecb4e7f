// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const chartHeight = "320px"

// DefaultAssetsHost serves the ECharts runtime when ChartOptions.AssetsHost is empty.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ChartOptions configures the rendered chart page.
type ChartOptions struct {
	Title      string
	SeriesName string
	// AssetsHost serves echarts.min.js. Empty means DefaultAssetsHost.
	AssetsHost string
}

// RenderViewsChart writes a standalone HTML page with a bar chart of days.
func RenderViewsChart(w io.Writer, days []DayCount, o ChartOptions) error {
	labels := make([]string, len(days))
	data := make([]opts.BarData, len(days))
	for i, d := range days {
		labels[i] = d.Day.Format("02 Jan")
		data[i] = opts.BarData{Name: labels[i], Value: d.Views}
	}

	initOpts := opts.Initialization{
		PageTitle: o.Title,
		Theme:     types.ThemeWesteros,
		Width:     "100%",
		Height:    chartHeight,
	}
	initOpts.AssetsHost = o.AssetsHost
	if initOpts.AssetsHost == "" {
		initOpts.AssetsHost = DefaultAssetsHost
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: o.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)
	bar.SetXAxis(labels).AddSeries(o.SeriesName, data)
	return bar.Render(w)
}
