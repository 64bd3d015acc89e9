package weather

import (
	"strings"

	"github.com/i474232898/forecast-screen/internal/common"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// ConditionFromText maps provider condition text ("Patchy rain possible",
// "Partly cloudy", ...) to a normalized Condition.
func ConditionFromText(text string) Condition {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return ConditionUnknown
	case common.HasAny(t, "thunder", "storm"):
		return ConditionStorm
	case common.HasAny(t, "snow", "sleet", "blizzard", "ice pellets"):
		return ConditionSnow
	case common.HasAny(t, "rain", "shower", "drizzle"):
		return ConditionRain
	case common.HasAny(t, "mist", "fog"):
		return ConditionMist
	case common.HasAny(t, "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAny(t, "sunny", "clear"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}

// LocationSuggestion is one autocomplete candidate returned by a location search.
type LocationSuggestion struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// CurrentConditions holds the "now" part of a forecast. Numeric fields are nil
// when the provider did not report them.
type CurrentConditions struct {
	TemperatureC  *float64 `json:"temperatureC,omitempty"`
	ConditionText string   `json:"conditionText,omitempty"`
	WindKph       *float64 `json:"windKph,omitempty"`
	HumidityPct   *float64 `json:"humidityPct,omitempty"`
	Sunrise       string   `json:"sunrise,omitempty"`
}

// DailyForecast is a single day of a multi-day forecast.
type DailyForecast struct {
	Date            string   `json:"date"` // YYYY-MM-DD, provider local date
	ConditionText   string   `json:"conditionText,omitempty"`
	AvgTemperatureC *float64 `json:"avgTemperatureC,omitempty"`
}

// ForecastSnapshot is the complete current-plus-multi-day payload for one
// location. The zero value is the empty snapshot produced by a failed fetch.
// Daily entries are ordered by Date ascending.
type ForecastSnapshot struct {
	LocationName string             `json:"locationName,omitempty"`
	CountryName  string             `json:"countryName,omitempty"`
	Current      *CurrentConditions `json:"current,omitempty"`
	Daily        []DailyForecast    `json:"daily,omitempty"`
}

// IsEmpty reports whether the snapshot carries no data at all.
func (s ForecastSnapshot) IsEmpty() bool {
	return s.LocationName == "" && s.CountryName == "" && s.Current == nil && len(s.Daily) == 0
}

// Clone returns a deep copy so callers never share pointers with the owner.
func (s ForecastSnapshot) Clone() ForecastSnapshot {
	out := ForecastSnapshot{
		LocationName: s.LocationName,
		CountryName:  s.CountryName,
	}
	if s.Current != nil {
		cur := *s.Current
		cur.TemperatureC = cloneFloat(s.Current.TemperatureC)
		cur.WindKph = cloneFloat(s.Current.WindKph)
		cur.HumidityPct = cloneFloat(s.Current.HumidityPct)
		out.Current = &cur
	}
	if s.Daily != nil {
		out.Daily = make([]DailyForecast, len(s.Daily))
		for i, d := range s.Daily {
			d.AvgTemperatureC = cloneFloat(d.AvgTemperatureC)
			out.Daily[i] = d
		}
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
