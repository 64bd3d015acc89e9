package tui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/forecast-screen/internal/weather"
)

const placeholder = "--"

// renderForecast draws a snapshot. Every field may be missing; missing
// values render as placeholders.
func renderForecast(snap weather.ForecastSnapshot) string {
	var b strings.Builder

	// location
	b.WriteString(titleStyle.Render(orPlaceholder(snap.LocationName)+",") +
		countryStyle.Render(" "+orPlaceholder(snap.CountryName)) + "\n\n")

	cur := snap.Current
	if cur == nil {
		cur = &weather.CurrentConditions{}
	}

	// icon, temperature and description
	b.WriteString(glyph(weather.ConditionFromText(cur.ConditionText)) + "  " +
		tempStyle.Render(formatNumber(cur.TemperatureC, "°")) + "\n")
	b.WriteString(conditionStyle.Render(orPlaceholder(cur.ConditionText)) + "\n\n")

	// more stats
	stats := []string{
		statStyle.Render("wind " + formatNumber(cur.WindKph, "km")),
		statStyle.Render("humidity " + formatNumber(cur.HumidityPct, "%")),
		statStyle.Render("sunrise " + orPlaceholder(cur.Sunrise)),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, stats...) + "\n\n")

	// next days
	b.WriteString(sectionStyle.Render("Daily Forecast") + "\n")
	if len(snap.Daily) == 0 {
		b.WriteString(dimStyle.Render("no forecast available") + "\n")
		return b.String()
	}
	cards := make([]string, 0, len(snap.Daily))
	for _, d := range snap.Daily {
		cards = append(cards, renderDay(d))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n")

	return b.String()
}

func renderDay(d weather.DailyForecast) string {
	lines := []string{
		glyph(weather.ConditionFromText(d.ConditionText)),
		dayName(d.Date),
		formatNumber(d.AvgTemperatureC, "°"),
	}
	return dayCardStyle.Render(strings.Join(lines, "\n"))
}

func renderSuggestions(list []weather.LocationSuggestion, cursor int) string {
	rows := make([]string, 0, len(list))
	for i, loc := range list {
		label := orPlaceholder(loc.Name) + ", " + orPlaceholder(loc.Country)
		if i == cursor {
			rows = append(rows, selectedSuggestionStyle.Render("> "+label))
			continue
		}
		rows = append(rows, suggestionStyle.Render("  "+label))
	}
	return strings.Join(rows, "\n")
}

// dayName turns a YYYY-MM-DD date into an English weekday name.
func dayName(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return orPlaceholder(date)
	}
	return t.Weekday().String()
}

func formatNumber(v *float64, suffix string) string {
	if v == nil {
		return placeholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + suffix
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func glyph(c weather.Condition) string {
	switch c {
	case weather.ConditionClear:
		return "☀"
	case weather.ConditionCloudy:
		return "☁"
	case weather.ConditionRain:
		return "☂"
	case weather.ConditionSnow:
		return "❄"
	case weather.ConditionStorm:
		return "⚡"
	case weather.ConditionMist:
		return "≈"
	default:
		return "·"
	}
}
