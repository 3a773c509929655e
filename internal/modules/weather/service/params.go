package service

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"wslink-server/internal/modules/weather/types"
)

// WSLink callback parameter names.
const (
	ParamStationID = "wsid"
	ParamPassword  = "wspw"
	ParamDateTime  = "datetime"
)

// ErrInvalidParameter is matched by every *ParamError.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParamError reports a sensor value that does not parse as its field type.
type ParamError struct {
	Name  string
	Value string
	Want  string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid value %q for %s (expected %s)", e.Value, e.Name, e.Want)
}

func (e *ParamError) Is(target error) bool { return target == ErrInvalidParameter }

type sensorParam struct {
	name string
	set  func(rec *types.WeatherRecord, v string) error
}

var sensorParams = []sensorParam{
	{"t1tem", floatField(func(r *types.WeatherRecord) **float64 { return &r.TempOut })},
	{"t1hum", intField(func(r *types.WeatherRecord) **int { return &r.HumidityOut })},
	{"t1wdir", intField(func(r *types.WeatherRecord) **int { return &r.WindDir })},
	{"t1ws", floatField(func(r *types.WeatherRecord) **float64 { return &r.WindSpeed })},
	{"t1raindy", floatField(func(r *types.WeatherRecord) **float64 { return &r.RainDaily })},
	{"t1solrad", floatField(func(r *types.WeatherRecord) **float64 { return &r.SolarRadiation })},
	{"t1uvi", floatField(func(r *types.WeatherRecord) **float64 { return &r.UVIndex })},
	{"intem", floatField(func(r *types.WeatherRecord) **float64 { return &r.TempIn })},
	{"inhum", intField(func(r *types.WeatherRecord) **int { return &r.HumidityIn })},
	{"rbar", floatField(func(r *types.WeatherRecord) **float64 { return &r.PressureRel })},
}

func floatField(field func(*types.WeatherRecord) **float64) func(*types.WeatherRecord, string) error {
	return func(rec *types.WeatherRecord, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New("number")
		}
		*field(rec) = &f
		return nil
	}
}

func intField(field func(*types.WeatherRecord) **int) func(*types.WeatherRecord, string) error {
	return func(rec *types.WeatherRecord, v string) error {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return errors.New("32-bit integer")
		}
		i := int(n)
		*field(rec) = &i
		return nil
	}
}

// recordFromParams maps the sensor parameters onto a record without id or
// timestamp. Absent and empty parameters stay nil.
func recordFromParams(params url.Values) (types.WeatherRecord, error) {
	var rec types.WeatherRecord
	for _, p := range sensorParams {
		v := strings.TrimSpace(params.Get(p.name))
		if v == "" {
			continue
		}
		if err := p.set(&rec, v); err != nil {
			return types.WeatherRecord{}, &ParamError{Name: p.name, Value: v, Want: err.Error()}
		}
	}
	return rec, nil
}

// summarizeParams flattens the callback parameters into slog attributes in a
// fixed order. The password is reported only as present or not.
func summarizeParams(params url.Values) []any {
	attrs := make([]any, 0, 2*(len(sensorParams)+3))
	attrs = append(attrs,
		ParamStationID, params.Get(ParamStationID),
		"wspw_set", params.Get(ParamPassword) != "",
		ParamDateTime, params.Get(ParamDateTime),
	)
	for _, p := range sensorParams {
		if v, ok := params[p.name]; ok && len(v) > 0 {
			attrs = append(attrs, p.name, v[0])
		}
	}
	return attrs
}
