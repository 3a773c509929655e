package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrUnauthorized = errors.New("station credentials rejected")

// CredentialVerifier decides whether a callback's wsid/wspw pair may write.
type CredentialVerifier interface {
	Verify(ctx context.Context, stationID, password string) error
}

// AllowAll accepts every caller, with or without credentials.
type AllowAll struct{}

func (AllowAll) Verify(context.Context, string, string) error { return nil }

// StaticCredentials accepts only the station ids listed, with matching
// passwords.
type StaticCredentials struct {
	stations map[string]string
}

type credentialsFile struct {
	Stations []struct {
		ID       string `yaml:"id"`
		Password string `yaml:"password"`
	} `yaml:"stations"`
}

// LoadStaticCredentials reads a YAML file of the form
//
//	stations:
//	  - id: station-1
//	    password: secret
func LoadStaticCredentials(path string) (*StaticCredentials, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return ParseStaticCredentials(b)
}

func ParseStaticCredentials(b []byte) (*StaticCredentials, error) {
	var f credentialsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if len(f.Stations) == 0 {
		return nil, errors.New("parse credentials: no stations defined")
	}
	sc := &StaticCredentials{stations: make(map[string]string, len(f.Stations))}
	for i, s := range f.Stations {
		if s.ID == "" {
			return nil, fmt.Errorf("parse credentials: station %d has no id", i)
		}
		if _, dup := sc.stations[s.ID]; dup {
			return nil, fmt.Errorf("parse credentials: duplicate station %q", s.ID)
		}
		sc.stations[s.ID] = s.Password
	}
	return sc, nil
}

func (s *StaticCredentials) Verify(_ context.Context, stationID, password string) error {
	want, ok := s.stations[stationID]
	if !ok {
		return fmt.Errorf("%w: unknown station %q", ErrUnauthorized, stationID)
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(password)) != 1 {
		return fmt.Errorf("%w: bad password for station %q", ErrUnauthorized, stationID)
	}
	return nil
}
