package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestWeatherRecord_JSONKeepsNulls(t *testing.T) {
	temp := 0.0
	rec := WeatherRecord{
		ID:        7,
		Timestamp: time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC),
		TempOut:   &temp,
	}

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)

	for _, want := range []string{`"id":7`, `"timestamp":"2025-01-20T12:00:00Z"`, `"temp_out":0`, `"uv_index":null`, `"pressure_rel":null`} {
		if !strings.Contains(out, want) {
			t.Errorf("json = %s; missing %s", out, want)
		}
	}
}

func TestWeatherRecord_Newer(t *testing.T) {
	base := time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b WeatherRecord
		want bool
	}{
		{name: "later timestamp", a: WeatherRecord{ID: 1, Timestamp: base.Add(time.Second)}, b: WeatherRecord{ID: 2, Timestamp: base}, want: true},
		{name: "earlier timestamp", a: WeatherRecord{ID: 5, Timestamp: base}, b: WeatherRecord{ID: 2, Timestamp: base.Add(time.Second)}, want: false},
		{name: "tie higher id", a: WeatherRecord{ID: 3, Timestamp: base}, b: WeatherRecord{ID: 2, Timestamp: base}, want: true},
		{name: "tie lower id", a: WeatherRecord{ID: 1, Timestamp: base}, b: WeatherRecord{ID: 2, Timestamp: base}, want: false},
		{name: "same record", a: WeatherRecord{ID: 2, Timestamp: base}, b: WeatherRecord{ID: 2, Timestamp: base}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Newer(tt.b); got != tt.want {
				t.Errorf("Newer() = %v; want %v", got, tt.want)
			}
		})
	}
}
