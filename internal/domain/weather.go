package domain

import "time"

// WeatherMode selects which weather inputs feed the risk model.
type WeatherMode string

const (
	WeatherManual WeatherMode = "manual"
	WeatherLive   WeatherMode = "live"
)

// Weather holds the conditions used as model inputs for a location.
type Weather struct {
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	PrecipMM     float64   `json:"precip_mm"`
	WindKmh      float64   `json:"wind_kmh"`
	IsWet        int       `json:"is_wet"` // 0 or 1
	Description  string    `json:"description,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	VisibilityM  int       `json:"visibility_m,omitempty"`
	PressureHpa  int       `json:"pressure_hpa,omitempty"`
	Sunrise      int64     `json:"sunrise,omitempty"`
	Sunset       int64     `json:"sunset,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	Timestamp    time.Time `json:"timestamp,omitempty"`
}

// WeatherResponse wraps weather data with metadata.
type WeatherResponse struct {
	Data    Weather `json:"data"`
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
}
