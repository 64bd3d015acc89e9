package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/forecast-screen/internal/weather"
)

const (
	// DefaultWeatherAPIBaseURL is the WeatherAPI.com v1 root.
	DefaultWeatherAPIBaseURL = "https://api.weatherapi.com/v1"

	// MaxForecastDays is the longest forecast WeatherAPI serves.
	MaxForecastDays = 14
)

var (
	errMissingAPIKey = errors.New("weatherapi api key is not configured")
	errEmptyQuery    = errors.New("query must not be empty")
)

// WeatherAPIClient implements weather.Client for WeatherAPI.com.
type WeatherAPIClient struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewWeatherAPIClient builds a client. An empty baseURL selects the public
// endpoint; maxRetries of zero means a single attempt per call.
func NewWeatherAPIClient(client *http.Client, apiKey, baseURL string, maxRetries int) *WeatherAPIClient {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIBaseURL
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &WeatherAPIClient{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      maxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIClient) Name() string {
	return p.name
}

// Search calls search.json and returns the matching locations.
func (p *WeatherAPIClient) Search(ctx context.Context, query string) ([]weather.LocationSuggestion, error) {
	const op = "search"

	if err := p.checkRequest(query); err != nil {
		return nil, p.fail(&weather.FetchError{Op: op, Kind: weather.KindRequest, Err: err})
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", query)

	var payload []struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Region  string `json:"region"`
		Country string `json:"country"`
	}
	if err := p.getJSON(ctx, op, "search.json", values, &payload); err != nil {
		return nil, err
	}

	out := make([]weather.LocationSuggestion, 0, len(payload))
	for _, item := range payload {
		out = append(out, weather.LocationSuggestion{
			ID:      item.ID,
			Name:    item.Name,
			Country: item.Country,
		})
	}
	return out, nil
}

// forecastPayload mirrors the subset of forecast.json the screen renders.
// Pointers keep "missing" distinct from zero.
type forecastPayload struct {
	Location *struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current *struct {
		TempC     *float64 `json:"temp_c"`
		WindKph   *float64 `json:"wind_kph"`
		Humidity  *float64 `json:"humidity"`
		Condition *struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Forecast *struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  *struct {
				AvgTempC  *float64 `json:"avgtemp_c"`
				Condition *struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"day"`
			Astro *struct {
				Sunrise string `json:"sunrise"`
			} `json:"astro"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// Forecast calls forecast.json for city and normalizes the payload into a snapshot.
func (p *WeatherAPIClient) Forecast(ctx context.Context, city string, days int) (weather.ForecastSnapshot, error) {
	const op = "forecast"

	if err := p.checkRequest(city); err != nil {
		return weather.ForecastSnapshot{}, p.fail(&weather.FetchError{Op: op, Kind: weather.KindRequest, Err: err})
	}
	if days < 1 || days > MaxForecastDays {
		err := fmt.Errorf("days must be between 1 and %d, got %d", MaxForecastDays, days)
		return weather.ForecastSnapshot{}, p.fail(&weather.FetchError{Op: op, Kind: weather.KindRequest, Err: err})
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", city)
	values.Set("days", strconv.Itoa(days))

	var payload forecastPayload
	if err := p.getJSON(ctx, op, "forecast.json", values, &payload); err != nil {
		return weather.ForecastSnapshot{}, err
	}

	return payload.snapshot(), nil
}

func (f forecastPayload) snapshot() weather.ForecastSnapshot {
	var snap weather.ForecastSnapshot

	if f.Location != nil {
		snap.LocationName = f.Location.Name
		snap.CountryName = f.Location.Country
	}

	if f.Current != nil {
		cur := &weather.CurrentConditions{
			TemperatureC: f.Current.TempC,
			WindKph:      f.Current.WindKph,
			HumidityPct:  f.Current.Humidity,
		}
		if f.Current.Condition != nil {
			cur.ConditionText = f.Current.Condition.Text
		}
		snap.Current = cur
	}

	if f.Forecast != nil {
		days := f.Forecast.ForecastDay
		if len(days) > 0 && days[0].Astro != nil {
			// Sunrise is only shown for today.
			if snap.Current == nil {
				snap.Current = &weather.CurrentConditions{}
			}
			snap.Current.Sunrise = days[0].Astro.Sunrise
		}
		if len(days) > 0 {
			snap.Daily = make([]weather.DailyForecast, 0, len(days))
		}
		for _, d := range days {
			entry := weather.DailyForecast{Date: d.Date}
			if d.Day != nil {
				entry.AvgTemperatureC = d.Day.AvgTempC
				if d.Day.Condition != nil {
					entry.ConditionText = d.Day.Condition.Text
				}
			}
			snap.Daily = append(snap.Daily, entry)
		}
	}

	return snap
}

func (p *WeatherAPIClient) checkRequest(q string) error {
	if p.apiKey == "" {
		return errMissingAPIKey
	}
	if strings.TrimSpace(q) == "" {
		return errEmptyQuery
	}
	return nil
}

// getJSON performs a GET on endpoint and decodes the body into out.
// Failures are logged and returned as *weather.FetchError.
func (p *WeatherAPIClient) getJSON(ctx context.Context, op, endpoint string, values url.Values, out interface{}) error {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return p.fail(classify(op, err))
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return p.fail(&weather.FetchError{Op: op, Kind: weather.KindDecode, Err: err})
	}
	return nil
}

func (p *WeatherAPIClient) fail(fe *weather.FetchError) error {
	log.Printf("ERROR: provider %s %v", p.Name(), fe)
	return fe
}
