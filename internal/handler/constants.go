// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the public site and the
// admin dashboard.
package handler

// Dashboard routes, relative to the configured admin path.
const (
	// RouteLogout signs the administrator out.
	RouteLogout = "/logout"
	// RouteDashboard is the overview page.
	RouteDashboard = "/dashboard"
	// RouteProfile edits the pesantren profile.
	RouteProfile = RouteDashboard + pathProfile
	// RouteActivities lists and edits activities.
	RouteActivities = RouteDashboard + pathActivities
	// RouteGallery lists and edits gallery photos.
	RouteGallery = RouteDashboard + pathGallery
	// RouteContact edits the contact info.
	RouteContact = RouteDashboard + pathContact
	// RouteChart serves the visits chart shown in an iframe on the overview.
	RouteChart = RouteDashboard + pathChart
	// RouteEvents streams auth events to open dashboard tabs.
	RouteEvents = RouteDashboard + pathEvents
)

// Paths below RouteDashboard.
const (
	pathProfile    = "/profile"
	pathActivities = "/activities"
	pathGallery    = "/gallery"
	pathContact    = "/contact"
	pathChart      = "/stats/chart"
	pathEvents     = "/events"
)

// Route suffixes of the create/edit/delete sub-routes.
const (
	suffixNew    = "/new"
	suffixEdit   = "/edit"
	suffixDelete = "/delete"
)

// Public routes.
const (
	RouteHome    = "/"
	RouteHealth  = "/health"
	RouteStatic  = "/static"
	RouteRobots  = "/robots.txt"
	RouteSitemap = "/sitemap.xml"
)

// Form values.
const (
	formConfirmYes = "yes"
	chartDays      = 7
)
