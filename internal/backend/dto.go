package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puntomas/panel/internal/commission"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var localZone atomic.Pointer[time.Location]

// SetLocation sets the zone that timestamps without an offset are read in. It
// applies process wide and defaults to UTC.
func SetLocation(loc *time.Location) {
	if loc != nil {
		localZone.Store(loc)
	}
}

func zone() *time.Location {
	if loc := localZone.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

// Timestamp accepts the date formats the backend emits and null.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	loc := zone()
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", raw)
}

// MarshalJSON keeps zero timestamps as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

func (t *Timestamp) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type personDTO struct {
	ID        int64   `json:"id" validate:"gte=0"`
	Nombre    string  `json:"nombre"`
	Email     string  `json:"email"`
	Localidad *string `json:"localidad"`
	Provincia *string `json:"provincia"`
}

func (p *personDTO) ref() *commission.PersonRef {
	if p == nil {
		return nil
	}
	return &commission.PersonRef{
		ID:       p.ID,
		Name:     p.Nombre,
		Email:    p.Email,
		Locality: deref(p.Localidad),
		Province: deref(p.Provincia),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func boolOr(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}

// okEnvelope is the {ok, error} wrapper some endpoints return with a 200.
type okEnvelope struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

func (e okEnvelope) check(status int) error {
	if e.OK != nil && !*e.OK {
		msg := e.Error
		if msg == "" {
			msg = "operation rejected"
		}
		return &APIError{Status: status, Message: msg}
	}
	return nil
}
