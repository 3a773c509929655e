package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// MessageSubscriber is the part of the MQTT subscriber the weather module
// attaches to.
type MessageSubscriber interface {
	SetMessageHandler(handler func(ctx context.Context, topic string, payload []byte) error)
}

// RegisterMQTTHandler feeds MQTT payloads through the same ingestion path as
// the HTTP callback. A payload is the callback's URL-encoded query string,
// with or without the leading "?" or the "/data/upload.php?" prefix.
func RegisterMQTTHandler(subscriber MessageSubscriber, svc WeatherService, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(ctx context.Context, topic string, payload []byte) error {
		params, err := ParsePayload(payload)
		if err != nil {
			return err
		}

		id, err := svc.Ingest(ctx, Callback{Origin: "mqtt:" + topic, Params: params})
		if err != nil {
			return err
		}

		logger.Debug("stored mqtt upload", "topic", topic, "id", id)
		return nil
	})
}

func ParsePayload(payload []byte) (url.Values, error) {
	raw := strings.TrimSpace(string(payload))
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	if raw == "" {
		return nil, errors.New("empty payload")
	}
	params, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return params, nil
}
