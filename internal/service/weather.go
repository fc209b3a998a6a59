package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/riskroute/backend/internal/domain"
	"github.com/riskroute/backend/pkg/utils"
)

// WeatherService fetches live conditions and tracks the manual/live
// input mode. Manual values are held directly; the last live snapshot
// is cached separately so returning to manual mode never loses the
// user's sliders.
type WeatherService struct {
	apiKey          string
	openWeatherBase string
	openMeteoBase   string
	httpClient      *http.Client

	mu     sync.RWMutex
	mode   domain.WeatherMode
	manual domain.Weather
	live   *domain.Weather
}

// NewWeatherService creates a weather service. An empty API key
// disables OpenWeatherMap and falls back to Open-Meteo.
func NewWeatherService(apiKey, openWeatherBase, openMeteoBase string) *WeatherService {
	return &WeatherService{
		apiKey:          apiKey,
		openWeatherBase: openWeatherBase,
		openMeteoBase:   openMeteoBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		mode: domain.WeatherManual,
		manual: domain.Weather{
			TemperatureC: 24,
			HumidityPct:  70,
			WindKmh:      5,
		},
	}
}

// Mode returns the current input mode.
func (s *WeatherService) Mode() domain.WeatherMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches between manual and live inputs. Loaded values are
// untouched; the next Active call picks up the new mode.
func (s *WeatherService) SetMode(mode domain.WeatherMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == domain.WeatherLive {
		s.mode = domain.WeatherLive
	} else {
		s.mode = domain.WeatherManual
	}
}

// SetManual stores user-entered conditions.
func (s *WeatherService) SetManual(w domain.Weather) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual = w
}

// Manual returns the stored manual conditions.
func (s *WeatherService) Manual() domain.Weather {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manual
}

// Active returns the live snapshot when in live mode and one is
// available, otherwise the manual values.
func (s *WeatherService) Active() domain.Weather {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mode == domain.WeatherLive && s.live != nil {
		return *s.live
	}
	return s.manual
}

// Refresh fetches live conditions for the location and caches them.
func (s *WeatherService) Refresh(ctx context.Context, lat, lon float64) (domain.Weather, error) {
	w, err := s.Fetch(ctx, lat, lon)
	if err != nil {
		return domain.Weather{}, err
	}
	s.mu.Lock()
	s.live = &w
	s.mu.Unlock()
	return w, nil
}

// Fetch queries OpenWeatherMap when a key is configured, otherwise
// Open-Meteo. Errors propagate; callers decide how to degrade.
func (s *WeatherService) Fetch(ctx context.Context, lat, lon float64) (domain.Weather, error) {
	if s.apiKey != "" {
		return s.fetchOpenWeather(ctx, lat, lon)
	}
	return s.fetchOpenMeteo(ctx, lat, lon)
}

type openWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Snow struct {
		OneHour float64 `json:"1h"`
	} `json:"snow"`
	Visibility int `json:"visibility"`
	Sys        struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

func (s *WeatherService) fetchOpenWeather(ctx context.Context, lat, lon float64) (domain.Weather, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	q.Set("appid", s.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.openWeatherBase+"/weather?"+q.Encode(), nil)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Weather{}, fmt.Errorf("weather: openweather returned status %d", resp.StatusCode)
	}

	var ow openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&ow); err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to decode response: %w", err)
	}

	precip := ow.Rain.OneHour + ow.Snow.OneHour
	w := domain.Weather{
		TemperatureC: utils.RoundTo(ow.Main.Temp, 1),
		HumidityPct:  ow.Main.Humidity,
		PrecipMM:     utils.RoundTo(precip, 2),
		WindKmh:      utils.RoundTo(ow.Wind.Speed*3.6, 1),
		VisibilityM:  ow.Visibility,
		PressureHpa:  ow.Main.Pressure,
		Sunrise:      ow.Sys.Sunrise,
		Sunset:       ow.Sys.Sunset,
		Provider:     "openweather",
		Timestamp:    time.Now().UTC(),
	}
	if len(ow.Weather) > 0 {
		w.Description = ow.Weather[0].Description
		w.Icon = ow.Weather[0].Icon
		w.IsWet = wetFromConditions(precip, ow.Weather[0].Main)
	} else {
		w.IsWet = wetFromConditions(precip, "")
	}
	return w, nil
}

type openMeteoResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		Precip      float64 `json:"precipitation"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

func (s *WeatherService) fetchOpenMeteo(ctx context.Context, lat, lon float64) (domain.Weather, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%f", lat))
	q.Set("longitude", fmt.Sprintf("%f", lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,weather_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.openMeteoBase+"?"+q.Encode(), nil)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Weather{}, fmt.Errorf("weather: open-meteo returned status %d", resp.StatusCode)
	}

	var om openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&om); err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to decode response: %w", err)
	}

	desc, icon := weatherFromCode(om.Current.WeatherCode)
	w := domain.Weather{
		TemperatureC: om.Current.Temperature,
		HumidityPct:  om.Current.Humidity,
		PrecipMM:     om.Current.Precip,
		WindKmh:      om.Current.WindSpeed,
		Description:  desc,
		Icon:         icon,
		Provider:     "openmeteo",
		Timestamp:    time.Now().UTC(),
	}
	if om.Current.Precip > 0.1 {
		w.IsWet = 1
	}
	return w, nil
}

func wetFromConditions(precipMM float64, main string) int {
	if precipMM > 0.1 {
		return 1
	}
	switch main {
	case "Rain", "Drizzle", "Thunderstorm", "Snow":
		return 1
	}
	return 0
}

// weatherFromCode maps a WMO weather code to description and icon.
var wmoCodes = map[int][2]string{
	0:  {"clear sky", "01d"},
	1:  {"mainly clear", "01d"},
	2:  {"partly cloudy", "02d"},
	3:  {"overcast", "03d"},
	45: {"fog", "50d"},
	48: {"depositing rime fog", "50d"},
	51: {"light drizzle", "09d"},
	53: {"moderate drizzle", "09d"},
	55: {"dense drizzle", "09d"},
	61: {"slight rain", "10d"},
	63: {"moderate rain", "10d"},
	65: {"heavy rain", "10d"},
	71: {"slight snow fall", "13d"},
	73: {"moderate snow fall", "13d"},
	75: {"heavy snow fall", "13d"},
	80: {"slight rain showers", "09d"},
	81: {"moderate rain showers", "09d"},
	82: {"violent rain showers", "09d"},
	95: {"thunderstorm", "11d"},
	96: {"thunderstorm with slight hail", "11d"},
	99: {"thunderstorm with heavy hail", "11d"},
}

func weatherFromCode(code int) (string, string) {
	if w, ok := wmoCodes[code]; ok {
		return w[0], w[1]
	}
	return "unknown conditions", "01d"
}
