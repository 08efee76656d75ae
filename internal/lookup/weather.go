package lookup

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
)

// DefaultWeatherBaseURL is the OpenWeatherMap API root.
const DefaultWeatherBaseURL = "https://api.openweathermap.org"

const weatherPath = "/data/2.5/weather"

// WeatherClient looks up current temperatures from OpenWeatherMap.
type WeatherClient struct {
	client *resty.Client
	apiKey string
}

// NewWeatherClient creates a WeatherClient. Without an API key every lookup
// returns an unknown temperature and no request is made.
func NewWeatherClient(opts ...Option) *WeatherClient {
	cfg := buildOpts(DefaultWeatherBaseURL, opts)
	return &WeatherClient{client: newHTTPClient(cfg), apiKey: cfg.APIKey}
}

// HasCredential reports whether an API key is configured.
func (w *WeatherClient) HasCredential() bool {
	return w.apiKey != ""
}

type weatherResponse struct {
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
}

// FetchTemperature implements TemperatureFetcher.
func (w *WeatherClient) FetchTemperature(ctx context.Context, city string) Temperature {
	city = strings.TrimSpace(city)
	if w.apiKey == "" {
		slog.Debug("WeatherClient.FetchTemperature: no API key configured", "city", city)
		return UnknownTemperature(ReasonMissingCredential)
	}
	if city == "" {
		return UnknownTemperature(ReasonEmptyQuery)
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     city,
			"appid": w.apiKey,
			"units": "metric",
		}).
		Get(weatherPath)
	if err != nil {
		slog.Warn("WeatherClient.FetchTemperature: request failed", "city", city, "error", err)
		return UnknownTemperature(ReasonNetwork)
	}
	if !resp.IsSuccess() {
		slog.Warn("WeatherClient.FetchTemperature: unexpected status", "city", city, "status", resp.StatusCode())
		return UnknownTemperature(ReasonBadStatus)
	}

	var body weatherResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		slog.Warn("WeatherClient.FetchTemperature: malformed body", "city", city, "error", err)
		return UnknownTemperature(ReasonMalformed)
	}
	if body.Main.Temp == nil {
		slog.Warn("WeatherClient.FetchTemperature: body has no temperature", "city", city)
		return UnknownTemperature(ReasonMalformed)
	}

	slog.Debug("WeatherClient.FetchTemperature: ok", "city", city, "celsius", *body.Main.Temp)
	return KnownTemperature(*body.Main.Temp)
}
