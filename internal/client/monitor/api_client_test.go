package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
)

func TestAPIClient_EnabledRegions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/regions" || r.URL.Query().Get("namespace") != "app 1" {
			t.Errorf("unexpected request: %s", r.URL)
		}
		_, _ = w.Write([]byte(`{"regions":[{"id":"office","name":"Office","enabled":true,"boundary":{"center":{"lat":1,"lng":2},"radiusMeters":100}}]}`))
	}))
	defer srv.Close()

	regions, err := NewAPIClient(srv.URL+"/", time.Second, nil).EnabledRegions(context.Background(), "app 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 || regions[0].Boundary.Kind() != domain.BoundaryCircle || regions[0].Namespace != "app 1" {
		t.Fatalf("unexpected regions: %+v", regions)
	}
}

func TestAPIClient_Report(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body reportPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		if body.EntityID != "u1" || body.Lat != 1 || body.TimestampMs != 1700000000000 {
			t.Errorf("unexpected body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"events":[{"type":"enter","region":{"id":"office","name":"Office"},"timestampIso":"2023-11-14T22:13:20Z"}]}`))
	}))
	defer srv.Close()

	events, err := NewAPIClient(srv.URL, time.Second, nil).Report(context.Background(), ports.PositionInput{
		Namespace: "app1",
		EntityID:  "u1",
		Position:  domain.LatLng{Lat: 1, Lng: 2},
		Timestamp: time.UnixMilli(1700000000000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Kind != domain.TransitionEnter || events[0].Region.ID != "office" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].Key.String() != "app1/u1" || !events[0].Timestamp.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("unexpected event metadata: %+v", events[0])
	}
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"region store unavailable, retry later"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, time.Second, nil).Report(context.Background(), ports.PositionInput{Namespace: "app1", EntityID: "u1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 APIError, got: %v", err)
	}
}

func TestAPIClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewAPIClient(srv.URL, 20*time.Millisecond, nil).EnabledRegions(context.Background(), "app1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got: %v", err)
	}
}
