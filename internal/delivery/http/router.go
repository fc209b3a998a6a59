package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Risk endpoints
		riskGroup := api.Group("/risk")
		riskGroup.Post("/score", handler.ScorePoint)
		riskGroup.Post("/route", handler.ScoreRoute)
		riskGroup.Get("/segments/today", handler.GetSegmentsToday)
		riskGroup.Get("/spots/top", handler.GetTopSpots)

		// Joined map-screen fetch
		api.Get("/overview", handler.GetOverview)

		// Weather endpoints
		weather := api.Group("/weather")
		weather.Get("/", handler.GetWeather)
		weather.Get("/active", handler.GetActiveWeather)
		weather.Put("/manual", handler.SetManualWeather)
		weather.Put("/mode", handler.SetWeatherMode)

		// Routing and geocoding
		api.Get("/route", handler.GetRoute)
		geocoding := api.Group("/geocoding")
		geocoding.Get("/search", handler.GeocodeSearch)
		geocoding.Get("/reverse", handler.GeocodeReverse)

		// Model introspection, polled by the dashboard
		models := api.Group("/models")
		models.Get("/info", handler.GetModelInfo)
		models.Get("/metrics", handler.GetModelMetrics)
		models.Get("/health", handler.GetModelHealth)
		models.Get("/realtime/metrics", handler.GetRealtimeMetrics)
		models.Get("/realtime/feature-importance", handler.GetFeatureImportance)
		models.Get("/historical/metrics", handler.GetHistoricalMetrics)
		models.Get("/historical/risk-tiles", handler.GetRiskTiles)

		// Aggregate analytics for the dashboard
		analytics := api.Group("/analytics")
		analytics.Post("/route-comparison", handler.CompareRoutes)
		analytics.Get("/risk-distribution", handler.GetRiskDistribution)
		analytics.Get("/vehicle-comparison", handler.GetVehicleComparison)
		analytics.Get("/hourly-trends", handler.GetHourlyTrends)
		analytics.Get("/score-trends", handler.GetScoreTrends)

		// Live alert stream
		alerts := api.Group("/alerts")
		alerts.Get("/stream", handler.StreamAlerts)

		// Session state
		api.Get("/session", handler.GetSession)
		api.Put("/session/preferences", handler.UpdatePreferences)

		// Demo-drive simulation
		sim := api.Group("/simulate")
		sim.Post("/start", handler.StartSimulation)
		sim.Post("/stop", handler.StopSimulation)
		sim.Get("/status", handler.GetSimulationStatus)
	}
}
