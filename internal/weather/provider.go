package weather

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts the weather data source used by the forecast screen
// (location autocomplete plus multi-day forecast).
//
// On failure both methods return the empty value (nil slice, zero snapshot)
// together with a *FetchError, so callers can either check for usable data
// or inspect the failure kind.
type Client interface {
	Search(ctx context.Context, query string) ([]LocationSuggestion, error)
	Forecast(ctx context.Context, city string, days int) (ForecastSnapshot, error)
}

// ErrorKind classifies why a fetch produced no usable data.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindRequest
	KindTransport
	KindStatus
	KindDecode
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRequest:
		return "request"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON payloads.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FetchError is returned by Client implementations for every failed call.
type FetchError struct {
	Op         string // "search" or "forecast"
	Kind       ErrorKind
	StatusCode int // set for KindStatus
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: %s error (http %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err. A nil error is KindNone; an error
// that is not a *FetchError is treated as a transport failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransport
}
