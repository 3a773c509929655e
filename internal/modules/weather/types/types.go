package types

import "time"

// WeatherRecord is one immutable observation snapshot. Sensor fields are
// pointers: nil means the station did not report the value, which is distinct
// from a reported zero.
type WeatherRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	TempOut        *float64 `json:"temp_out"`
	HumidityOut    *int     `json:"humidity_out"`
	WindDir        *int     `json:"wind_dir"`
	WindSpeed      *float64 `json:"wind_speed"`
	RainDaily      *float64 `json:"rain_daily"`
	SolarRadiation *float64 `json:"solar_radiation"`
	UVIndex        *float64 `json:"uv_index"`

	TempIn      *float64 `json:"temp_in"`
	HumidityIn  *int     `json:"humidity_in"`
	PressureRel *float64 `json:"pressure_rel"`
}

// Newer reports whether r sorts after other in recency order: later
// timestamp first, higher id on equal timestamps.
func (r WeatherRecord) Newer(other WeatherRecord) bool {
	if !r.Timestamp.Equal(other.Timestamp) {
		return r.Timestamp.After(other.Timestamp)
	}
	return r.ID > other.ID
}
