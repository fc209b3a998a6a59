// Package config loads environment-driven settings for the RiskRoute
// backend, with documented fallback defaults for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/riskroute/backend/internal/domain"
)

// Config holds all runtime settings.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	// Scoring backend and mode.
	APIBaseURL string
	MockMode   bool

	// External providers.
	OpenWeatherAPIKey string
	OpenWeatherBase   string
	OpenMeteoBase     string
	OSRMBase          string
	ORSAPIKey         string
	ORSBase           string
	NominatimBase     string
	OverpassEndpoint  string
	CountryCodes      string

	// Geography and presentation defaults. Location is the resolved
	// Timezone, used for "current hour" defaults.
	Timezone      string
	Location      *time.Location
	DefaultCenter domain.LatLon
	ServiceBBox   domain.BoundingBox
	SegmentBBox   domain.BoundingBox

	// Model artifact directory for the introspection endpoints.
	ModelsDir string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("GO_ENV", "development"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		APIBaseURL:        getEnv("RISK_API_BASE", "http://localhost:8000"),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBase:   getEnv("OPENWEATHER_BASE", "https://api.openweathermap.org/data/2.5"),
		OpenMeteoBase:     getEnv("OPENMETEO_BASE", "https://api.open-meteo.com/v1/forecast"),
		OSRMBase:          getEnv("OSRM_BASE", "https://router.project-osrm.org"),
		ORSAPIKey:         os.Getenv("ORS_API_KEY"),
		ORSBase:           getEnv("ORS_BASE", "https://api.openrouteservice.org"),
		NominatimBase:     getEnv("NOMINATIM_BASE", "https://nominatim.openstreetmap.org"),
		OverpassEndpoint:  getEnv("OVERPASS_ENDPOINT", "https://overpass-api.de/api/interpreter"),
		CountryCodes:      getEnv("GEOCODE_COUNTRY", "lk"),
		Timezone:          getEnv("TZ_NAME", "Asia/Colombo"),
		ModelsDir:         getEnv("MODELS_DIR", "models"),
	}

	cfg.MockMode = getEnvBool("MOCK_MODE", false)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("invalid TZ_NAME: %w", err)
	}
	cfg.Location = loc

	// Service area and default map center (Ginigathena region).
	cfg.DefaultCenter, err = getEnvLatLon("DEFAULT_CENTER", domain.LatLon{Lat: 7.0, Lon: 80.5})
	if err != nil {
		return cfg, err
	}
	cfg.ServiceBBox, err = getEnvBBox("SERVICE_BBOX", domain.BoundingBox{
		MinLon: 80.4, MinLat: 7.0, MaxLon: 80.9, MaxLat: 7.5,
	})
	if err != nil {
		return cfg, err
	}
	cfg.SegmentBBox, err = getEnvBBox("SEGMENT_BBOX", domain.BoundingBox{
		MinLon: 80.43, MinLat: 6.94, MaxLon: 80.55, MaxLat: 7.03,
	})
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvLatLon(key string, defaultValue domain.LatLon) (domain.LatLon, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var p domain.LatLon
	if _, err := fmt.Sscanf(value, "%f,%f", &p.Lat, &p.Lon); err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %q (want \"lat,lon\")", key, value)
	}
	return p, nil
}

func getEnvBBox(key string, defaultValue domain.BoundingBox) (domain.BoundingBox, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := domain.ParseBoundingBox(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
