package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
)

const defaultReportTimeout = 10 * time.Second

// APIClient talks to the geofence API. It serves as both the RegionFeed and
// the PositionReporter of a Monitor.
type APIClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewAPIClient builds a client for baseURL. Every request is bounded by
// timeout; a nil client uses a fresh http.Client.
func NewAPIClient(baseURL string, timeout time.Duration, client *http.Client) *APIClient {
	if timeout <= 0 {
		timeout = defaultReportTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout, client: client}
}

type regionsPayload struct {
	Regions []domain.Region `json:"regions"`
}

type reportPayload struct {
	Namespace      string   `json:"namespace"`
	EntityID       string   `json:"entityId"`
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	AccuracyMeters float64  `json:"accuracyMeters"`
	TimestampMs    int64    `json:"timestampMs,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
	Heading        *float64 `json:"heading,omitempty"`
}

type eventsPayload struct {
	Events []struct {
		Type         string        `json:"type"`
		Region       domain.Region `json:"region"`
		TimestampISO string        `json:"timestampIso"`
	} `json:"events"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("geofence api: status %d: %s", e.Status, e.Message)
}

// EnabledRegions fetches the public region feed of namespace.
func (c *APIClient) EnabledRegions(ctx context.Context, namespace string) ([]domain.Region, error) {
	var out regionsPayload
	target := c.baseURL + "/v1/regions?namespace=" + url.QueryEscape(namespace)
	if err := c.do(ctx, http.MethodGet, target, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch regions: %w", err)
	}
	for i := range out.Regions {
		out.Regions[i].Namespace = namespace
	}
	return out.Regions, nil
}

// Report sends one position and returns the transitions the server computed.
func (c *APIClient) Report(ctx context.Context, in ports.PositionInput) ([]domain.TransitionEvent, error) {
	body := reportPayload{
		Namespace:      in.Namespace,
		EntityID:       in.EntityID,
		Lat:            in.Position.Lat,
		Lng:            in.Position.Lng,
		AccuracyMeters: in.AccuracyMeters,
		Speed:          in.Speed,
		Heading:        in.Heading,
	}
	if !in.Timestamp.IsZero() {
		body.TimestampMs = in.Timestamp.UnixMilli()
	}

	var out eventsPayload
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/positions", body, &out); err != nil {
		return nil, fmt.Errorf("report position: %w", err)
	}

	key := domain.TrackingKey{Namespace: in.Namespace, EntityID: in.EntityID}
	events := make([]domain.TransitionEvent, 0, len(out.Events))
	for _, e := range out.Events {
		ts, err := time.Parse(time.RFC3339Nano, e.TimestampISO)
		if err != nil {
			return nil, fmt.Errorf("report position: event timestamp %q: %w", e.TimestampISO, err)
		}
		region := e.Region
		region.Namespace = in.Namespace
		events = append(events, domain.TransitionEvent{
			Key:       key,
			Region:    region,
			Kind:      domain.TransitionKind(e.Type),
			Position:  in.Position,
			Timestamp: ts,
		})
	}
	return events, nil
}

func (c *APIClient) do(ctx context.Context, method, target string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&envelope)
		return &APIError{Status: resp.StatusCode, Message: envelope.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
