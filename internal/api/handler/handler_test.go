package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/geofence-system/internal/api/middleware"
	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stub services
// ---------------------------------------------------------------------------

type stubEvaluationService struct {
	evaluateFn func(ctx context.Context, in ports.PositionInput) ([]domain.TransitionEvent, error)
	stateFn    func(ctx context.Context, key domain.TrackingKey) (*domain.EntityRegionState, error)
}

func (s *stubEvaluationService) Evaluate(ctx context.Context, in ports.PositionInput) ([]domain.TransitionEvent, error) {
	return s.evaluateFn(ctx, in)
}

func (s *stubEvaluationService) State(ctx context.Context, key domain.TrackingKey) (*domain.EntityRegionState, error) {
	return s.stateFn(ctx, key)
}

type stubRegionService struct {
	listFn      func(ctx context.Context, namespace string) ([]domain.Region, error)
	upsertFn    func(ctx context.Context, in ports.UpsertRegionInput) (*domain.Region, error)
	deleteFn    func(ctx context.Context, namespace, id string) error
	invalidated []string
}

func (s *stubRegionService) ListEnabled(ctx context.Context, namespace string) ([]domain.Region, error) {
	return s.listFn(ctx, namespace)
}

func (s *stubRegionService) Upsert(ctx context.Context, in ports.UpsertRegionInput) (*domain.Region, error) {
	return s.upsertFn(ctx, in)
}

func (s *stubRegionService) Delete(ctx context.Context, namespace, id string) error {
	return s.deleteFn(ctx, namespace, id)
}

func (s *stubRegionService) Invalidate(namespace string) {
	s.invalidated = append(s.invalidated, namespace)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withClaims(c echo.Context, role, namespace string) {
	c.Set(middleware.CtxRole, role)
	c.Set(middleware.CtxNamespace, namespace)
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got: %v", err)
	}
	return he.Code
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

func TestPositionHandler_Report_Success(t *testing.T) {
	stub := &stubEvaluationService{
		evaluateFn: func(_ context.Context, in ports.PositionInput) ([]domain.TransitionEvent, error) {
			if in.Namespace != "app1" || in.EntityID != "u1" {
				t.Fatalf("unexpected key: %s/%s", in.Namespace, in.EntityID)
			}
			if in.Position.Lat != 37.7749 || in.Position.Lng != -122.4194 {
				t.Fatalf("unexpected position: %+v", in.Position)
			}
			if !in.Timestamp.Equal(time.UnixMilli(1700000000000)) {
				t.Fatalf("unexpected timestamp: %v", in.Timestamp)
			}
			return []domain.TransitionEvent{{
				Kind:      domain.TransitionEnter,
				Region:    domain.Region{ID: "office", Name: "Office"},
				Timestamp: in.Timestamp,
			}}, nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/v1/positions",
		`{"namespace":"app1","entityId":"u1","lat":37.7749,"lng":-122.4194,"accuracyMeters":5,"timestampMs":1700000000000}`)

	if err := NewPositionHandler(stub).Report(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp positionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Type != "enter" || resp.Events[0].Region.ID != "office" {
		t.Fatalf("unexpected events: %+v", resp.Events)
	}
	if resp.Events[0].TimestampISO != "2023-11-14T22:13:20Z" {
		t.Fatalf("unexpected timestamp: %s", resp.Events[0].TimestampISO)
	}
}

func TestPositionHandler_Report_NoEventsIsEmptyArray(t *testing.T) {
	stub := &stubEvaluationService{
		evaluateFn: func(context.Context, ports.PositionInput) ([]domain.TransitionEvent, error) {
			return nil, nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/v1/positions", `{"namespace":"app1","entityId":"u1","lat":0,"lng":0}`)

	if err := NewPositionHandler(stub).Report(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Fatalf("expected empty events array, got: %s", rec.Body.String())
	}
}

func TestPositionHandler_Report_InvalidPayload(t *testing.T) {
	stub := &stubEvaluationService{
		evaluateFn: func(context.Context, ports.PositionInput) ([]domain.TransitionEvent, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newTestContext(http.MethodPost, "/v1/positions", "not-json")

	if code := httpCode(t, NewPositionHandler(stub).Report(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestPositionHandler_Report_ValidationErrors(t *testing.T) {
	stub := &stubEvaluationService{
		evaluateFn: func(context.Context, ports.PositionInput) ([]domain.TransitionEvent, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	cases := map[string]string{
		"missing lat":       `{"namespace":"app1","entityId":"u1","lng":0}`,
		"lat out of range":  `{"namespace":"app1","entityId":"u1","lat":91,"lng":0}`,
		"lng out of range":  `{"namespace":"app1","entityId":"u1","lat":0,"lng":-181}`,
		"missing entity":    `{"namespace":"app1","lat":0,"lng":0}`,
		"negative accuracy": `{"namespace":"app1","entityId":"u1","lat":0,"lng":0,"accuracyMeters":-1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodPost, "/v1/positions", body)
			if code := httpCode(t, NewPositionHandler(stub).Report(c)); code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", code)
			}
		})
	}
}

func TestPositionHandler_Report_ServiceErrorPropagates(t *testing.T) {
	stub := &stubEvaluationService{
		evaluateFn: func(context.Context, ports.PositionInput) ([]domain.TransitionEvent, error) {
			return nil, domain.ErrRegionStoreUnavailable
		},
	}
	c, _ := newTestContext(http.MethodPost, "/v1/positions", `{"namespace":"app1","entityId":"u1","lat":0,"lng":0}`)

	if err := NewPositionHandler(stub).Report(c); !errors.Is(err, domain.ErrRegionStoreUnavailable) {
		t.Fatalf("expected ErrRegionStoreUnavailable, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Regions
// ---------------------------------------------------------------------------

func TestRegionHandler_List(t *testing.T) {
	center := domain.LatLng{Lat: 1, Lng: 2}
	stub := &stubRegionService{
		listFn: func(_ context.Context, namespace string) ([]domain.Region, error) {
			if namespace != "app1" {
				t.Fatalf("unexpected namespace: %s", namespace)
			}
			return []domain.Region{{ID: "a", Name: "A", Enabled: true, Boundary: domain.Boundary{Center: &center, RadiusMeters: 50}}}, nil
		},
	}
	c, rec := newTestContext(http.MethodGet, "/v1/regions?namespace=app1", "")

	if err := NewRegionHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp regionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Regions) != 1 || resp.Regions[0].Boundary.RadiusMeters != 50 || *resp.Regions[0].Boundary.Center.Lat != 1 {
		t.Fatalf("unexpected regions: %+v", resp.Regions)
	}
}

func TestRegionHandler_List_RequiresNamespace(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/v1/regions", "")
	if code := httpCode(t, NewRegionHandler(&stubRegionService{}).List(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestRegionHandler_Upsert_DefaultsEnabled(t *testing.T) {
	stub := &stubRegionService{
		upsertFn: func(_ context.Context, in ports.UpsertRegionInput) (*domain.Region, error) {
			if in.ID != "office" || in.Namespace != "app1" || !in.Enabled {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Boundary.Kind() != domain.BoundaryCircle {
				t.Fatalf("expected circle boundary, got: %s", in.Boundary.Kind())
			}
			return &domain.Region{ID: in.ID, Namespace: in.Namespace, Name: in.Name, Boundary: in.Boundary, Enabled: in.Enabled}, nil
		},
	}
	c, rec := newTestContext(http.MethodPut, "/v1/admin/regions/office",
		`{"namespace":"app1","name":"Office","boundary":{"center":{"lat":1,"lng":2},"radiusMeters":100}}`)
	c.SetParamNames("id")
	c.SetParamValues("office")
	withClaims(c, domain.RoleClient, "app1")

	if err := NewRegionHandler(stub).Upsert(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRegionHandler_Upsert_ForeignNamespaceForbidden(t *testing.T) {
	stub := &stubRegionService{
		upsertFn: func(context.Context, ports.UpsertRegionInput) (*domain.Region, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newTestContext(http.MethodPut, "/v1/admin/regions/office",
		`{"namespace":"app2","name":"Office","boundary":{"center":{"lat":1,"lng":2},"radiusMeters":100}}`)
	withClaims(c, domain.RoleClient, "app1")

	if err := NewRegionHandler(stub).Upsert(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got: %v", err)
	}
}

func TestRegionHandler_Delete(t *testing.T) {
	var deleted string
	stub := &stubRegionService{
		deleteFn: func(_ context.Context, namespace, id string) error {
			deleted = namespace + "/" + id
			return nil
		},
	}
	c, rec := newTestContext(http.MethodDelete, "/v1/admin/regions/office?namespace=app1", "")
	c.SetParamNames("id")
	c.SetParamValues("office")
	withClaims(c, domain.RoleAdmin, "")

	if err := NewRegionHandler(stub).Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || deleted != "app1/office" {
		t.Fatalf("expected 204 for app1/office, got %d for %q", rec.Code, deleted)
	}
}

func TestRegionHandler_Invalidate(t *testing.T) {
	t.Run("client own namespace", func(t *testing.T) {
		stub := &stubRegionService{}
		c, rec := newTestContext(http.MethodPost, "/v1/admin/cache/invalidate", `{"namespace":"app1"}`)
		withClaims(c, domain.RoleClient, "app1")

		if err := NewRegionHandler(stub).Invalidate(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK || len(stub.invalidated) != 1 || stub.invalidated[0] != "app1" {
			t.Fatalf("expected app1 invalidated, got %d %v", rec.Code, stub.invalidated)
		}
	})

	t.Run("client cannot invalidate all", func(t *testing.T) {
		stub := &stubRegionService{}
		c, _ := newTestContext(http.MethodPost, "/v1/admin/cache/invalidate", `{}`)
		withClaims(c, domain.RoleClient, "app1")

		if err := NewRegionHandler(stub).Invalidate(c); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got: %v", err)
		}
		if len(stub.invalidated) != 0 {
			t.Fatalf("expected nothing invalidated, got: %v", stub.invalidated)
		}
	})

	t.Run("admin invalidates all", func(t *testing.T) {
		stub := &stubRegionService{}
		c, _ := newTestContext(http.MethodPost, "/v1/admin/cache/invalidate", `{}`)
		withClaims(c, domain.RoleAdmin, "")

		if err := NewRegionHandler(stub).Invalidate(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if len(stub.invalidated) != 1 || stub.invalidated[0] != "" {
			t.Fatalf("expected global invalidation, got: %v", stub.invalidated)
		}
	})
}

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

func TestStateHandler_Get(t *testing.T) {
	reported := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stub := &stubEvaluationService{
		stateFn: func(_ context.Context, key domain.TrackingKey) (*domain.EntityRegionState, error) {
			return &domain.EntityRegionState{
				Key:             key,
				ActiveRegionIDs: []string{"a", "b"},
				LastPosition:    domain.LatLng{Lat: 1, Lng: 2},
				LastReportedAt:  reported,
			}, nil
		},
	}
	c, rec := newTestContext(http.MethodGet, "/v1/entities/app1/u1/state", "")
	c.SetParamNames("namespace", "entityId")
	c.SetParamValues("app1", "u1")
	withClaims(c, domain.RoleClient, "app1")

	if err := NewStateHandler(stub).Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.EntityID != "u1" || len(resp.ActiveRegionIDs) != 2 || resp.LastReportedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected state: %+v", resp)
	}
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestReadiness(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		h := NewHealthDependenciesHandler(map[string]Check{
			"mongo": func(context.Context) error { return nil },
		})
		c, rec := newTestContext(http.MethodGet, "/health/ready", "")
		if err := h.Readiness(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("one failing", func(t *testing.T) {
		h := NewHealthDependenciesHandler(map[string]Check{
			"mongo": func(context.Context) error { return nil },
			"redis": func(context.Context) error { return errors.New("connection refused") },
		})
		c, rec := newTestContext(http.MethodGet, "/health/ready", "")
		if err := h.Readiness(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}

		var resp readinessResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if resp.Status != "degraded" || resp.Dependencies["redis"].Error != "connection refused" {
			t.Fatalf("unexpected readiness payload: %+v", resp)
		}
	})
}
