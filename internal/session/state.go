package session

import (
	"fmt"

	"github.com/i474232898/forecast-screen/internal/weather"
)

// ContentState is the loading/displaying half of the screen state.
type ContentState int

const (
	ContentLoading ContentState = iota
	ContentDisplaying
)

func (c ContentState) String() string {
	switch c {
	case ContentLoading:
		return "loading"
	case ContentDisplaying:
		return "displaying"
	default:
		return fmt.Sprintf("content(%d)", int(c))
	}
}

func (c ContentState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// State is a read-only view of a session. Snapshot is only meaningful while
// Content is ContentDisplaying; it is empty while loading and after a failed
// fetch. Suggestions are only meaningful while SearchOpen.
type State struct {
	Content     ContentState                 `json:"content"`
	City        string                       `json:"city,omitempty"`
	Snapshot    weather.ForecastSnapshot     `json:"snapshot"`
	LastError   weather.ErrorKind            `json:"lastError"`
	SearchOpen  bool                         `json:"searchOpen"`
	Suggestions []weather.LocationSuggestion `json:"suggestions"`
}

func (s State) clone() State {
	out := s
	out.Snapshot = s.Snapshot.Clone()
	out.Suggestions = append([]weather.LocationSuggestion{}, s.Suggestions...)
	return out
}
