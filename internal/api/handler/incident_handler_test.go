package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

// stubIncidentService embeds the interface so tests only implement what they
// exercise; anything else panics.
type stubIncidentService struct {
	ports.IncidentService
	triggerFn  func(ctx context.Context, in ports.TriggerInput) (*ports.TriggerResult, error)
	respondFn  func(ctx context.Context, incidentID, userID string, p domain.Point) (*domain.Responder, error)
	statusFn   func(ctx context.Context, incidentID, userID, progress string) error
	resolveFn  func(ctx context.Context, incidentID, userID string) error
	nearbyFn   func(ctx context.Context, p domain.Point, radius float64) ([]domain.NearbyIncident, error)
	locationFn func(ctx context.Context, userID string, p domain.Point) error
}

func (s *stubIncidentService) Trigger(ctx context.Context, in ports.TriggerInput) (*ports.TriggerResult, error) {
	return s.triggerFn(ctx, in)
}

func (s *stubIncidentService) Respond(ctx context.Context, incidentID, userID string, p domain.Point) (*domain.Responder, error) {
	return s.respondFn(ctx, incidentID, userID, p)
}

func (s *stubIncidentService) UpdateResponderStatus(ctx context.Context, incidentID, userID, progress string) error {
	return s.statusFn(ctx, incidentID, userID, progress)
}

func (s *stubIncidentService) Resolve(ctx context.Context, incidentID, userID string) error {
	return s.resolveFn(ctx, incidentID, userID)
}

func (s *stubIncidentService) Nearby(ctx context.Context, p domain.Point, radius float64) ([]domain.NearbyIncident, error) {
	return s.nearbyFn(ctx, p, radius)
}

func (s *stubIncidentService) UpdateLocation(ctx context.Context, userID string, p domain.Point) error {
	return s.locationFn(ctx, userID, p)
}

type stubChatService struct {
	sendFn func(ctx context.Context, incidentID, sender, text string) (*domain.Message, error)
}

func (s *stubChatService) Send(ctx context.Context, incidentID, sender, text string) (*domain.Message, error) {
	return s.sendFn(ctx, incidentID, sender, text)
}

func (s *stubChatService) History(context.Context, string) ([]domain.Message, error) {
	return []domain.Message{}, nil
}

type stubGuidanceService struct {
	res *ports.GuidanceResult
	err error
}

func (s *stubGuidanceService) ForIncident(context.Context, string) (*ports.GuidanceResult, error) {
	return s.res, s.err
}

func TestIncidentHandler_Trigger(t *testing.T) {
	svc := &stubIncidentService{
		triggerFn: func(ctx context.Context, in ports.TriggerInput) (*ports.TriggerResult, error) {
			if in.RequesterID != "U" || in.CrisisType != "Medical" || in.Radius != 500 {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Origin != (domain.Point{}) {
				t.Fatalf("(0,0) must pass through unchanged, got %+v", in.Origin)
			}
			return &ports.TriggerResult{Incident: &domain.Incident{ID: "inc-1", Status: domain.StatusActive}, Notified: 2}, nil
		},
	}
	h := NewIncidentHandler(svc, nil, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/incidents", `{"crisis_type":"Medical","lat":0,"lng":0,"radius":500}`, "U")
	if err := h.Trigger(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp triggerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Incident.ID != "inc-1" || resp.Notified != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestIncidentHandler_Trigger_Validation(t *testing.T) {
	svc := &stubIncidentService{
		triggerFn: func(context.Context, ports.TriggerInput) (*ports.TriggerResult, error) {
			t.Fatal("should not be called")
			return nil, nil
		},
	}
	h := NewIncidentHandler(svc, nil, nil)

	bodies := []string{
		`{"crisis_type":"Medical","lng":0}`,
		`{"crisis_type":"Medical","lat":95,"lng":0}`,
		`{"crisis_type":"Medical","lat":1,"lng":1,"radius":750}`,
		`{"lat":1,"lng":1}`,
		`{"crisis_type":"Flood","lat":1,"lng":1}`,
	}
	for _, b := range bodies {
		c, _ := newTestContext(http.MethodPost, "/v1/incidents", b, "U")
		if code := httpCode(h.Trigger(c)); code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d", b, code)
		}
	}

	c, _ := newTestContext(http.MethodPost, "/v1/incidents", `{"crisis_type":"Fire","lat":1,"lng":1}`, "")
	if code := httpCode(h.Trigger(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without claims, got %d", code)
	}
}

func TestIncidentHandler_Respond(t *testing.T) {
	now := time.Now()
	svc := &stubIncidentService{
		respondFn: func(ctx context.Context, incidentID, userID string, p domain.Point) (*domain.Responder, error) {
			if incidentID != "inc-1" || userID != "V" || p.Lat != 12.5 {
				t.Fatalf("unexpected args: %s %s %+v", incidentID, userID, p)
			}
			return &domain.Responder{UserID: userID, Progress: domain.ProgressEnRoute, JoinedAt: now}, nil
		},
	}
	h := NewIncidentHandler(svc, nil, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/incidents/inc-1/respond", `{"lat":12.5,"lng":77.1}`, "V")
	c.SetParamNames("id")
	c.SetParamValues("inc-1")
	if err := h.Respond(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestIncidentHandler_Respond_ServiceErrorPassesThrough(t *testing.T) {
	svc := &stubIncidentService{
		respondFn: func(context.Context, string, string, domain.Point) (*domain.Responder, error) {
			return nil, domain.ErrAlreadyResponding
		},
	}
	c, _ := newTestContext(http.MethodPost, "/v1/incidents/inc-1/respond", `{"lat":1,"lng":1}`, "V")
	c.SetParamNames("id")
	c.SetParamValues("inc-1")

	if err := NewIncidentHandler(svc, nil, nil).Respond(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestIncidentHandler_UpdateStatus(t *testing.T) {
	var got string
	svc := &stubIncidentService{
		statusFn: func(ctx context.Context, incidentID, userID, progress string) error {
			got = progress
			return nil
		},
	}
	h := NewIncidentHandler(svc, nil, nil)

	c, rec := newTestContext(http.MethodPatch, "/v1/incidents/inc-1/status", `{"progress":"arrived"}`, "V")
	if err := h.UpdateStatus(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent || got != "arrived" {
		t.Fatalf("unexpected result: %d %q", rec.Code, got)
	}

	c, _ = newTestContext(http.MethodPatch, "/v1/incidents/inc-1/status", `{"progress":"lost"}`, "V")
	if code := httpCode(h.UpdateStatus(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestIncidentHandler_Resolve(t *testing.T) {
	svc := &stubIncidentService{
		resolveFn: func(ctx context.Context, incidentID, userID string) error {
			if userID != "U" {
				return domain.ErrNotTriggerer
			}
			return nil
		},
	}
	h := NewIncidentHandler(svc, nil, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/incidents/inc-1/resolve", "", "U")
	c.SetParamNames("id")
	c.SetParamValues("inc-1")
	if err := h.Resolve(c); err != nil {
		t.Fatal(err)
	}
	var resp resolveResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.IncidentID != "inc-1" || resp.Status != domain.StatusResolved {
		t.Fatalf("unexpected response: %+v", resp)
	}

	c, _ = newTestContext(http.MethodPost, "/v1/incidents/inc-1/resolve", "", "W")
	if err := h.Resolve(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestIncidentHandler_Nearby(t *testing.T) {
	var radius float64
	svc := &stubIncidentService{
		nearbyFn: func(ctx context.Context, p domain.Point, r float64) ([]domain.NearbyIncident, error) {
			radius = r
			return []domain.NearbyIncident{{IncidentSummary: domain.IncidentSummary{ID: "inc-1"}, DistanceMeters: 40}}, nil
		},
	}
	h := NewIncidentHandler(svc, nil, nil)

	c, rec := newTestContext(http.MethodGet, "/v1/incidents/nearby?lat=1&lng=2", "", "V")
	if err := h.Nearby(c); err != nil {
		t.Fatal(err)
	}
	if radius != defaultNearbyRadius {
		t.Fatalf("expected default radius, got %f", radius)
	}
	var resp nearbyResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Incidents) != 1 || resp.Incidents[0].ID != "inc-1" {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}

	c, _ = newTestContext(http.MethodGet, "/v1/incidents/nearby?lat=abc&lng=2", "", "V")
	if code := httpCode(h.Nearby(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestIncidentHandler_PostMessage_UsesTokenName(t *testing.T) {
	chat := &stubChatService{
		sendFn: func(ctx context.Context, incidentID, sender, text string) (*domain.Message, error) {
			if sender != "name V" || text != "coming" {
				t.Fatalf("unexpected args: %q %q", sender, text)
			}
			return &domain.Message{ID: "m1", IncidentID: incidentID, SenderName: sender, Text: text}, nil
		},
	}
	h := NewIncidentHandler(&stubIncidentService{}, chat, nil)

	c, rec := newTestContext(http.MethodPost, "/v1/incidents/inc-1/messages", `{"text":"coming"}`, "V")
	c.SetParamNames("id")
	c.SetParamValues("inc-1")
	if err := h.PostMessage(c); err != nil {
		t.Fatal(err)
	}
	var resp messageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusCreated || resp.ID != "m1" || resp.Persisted {
		t.Fatalf("unexpected response: %d %+v", rec.Code, resp)
	}
}

func TestIncidentHandler_Guidance(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"json text is embedded", `{"call_numbers":["112"]}`, `{"call_numbers":["112"]}`},
		{"plain text is quoted", "stay calm", `"stay calm"`},
		{"quotes and newlines are escaped", "say \"help\"\n", `"say \"help\"\n"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewIncidentHandler(nil, nil, &stubGuidanceService{res: &ports.GuidanceResult{Text: tt.text, Cached: true}})
			c, rec := newTestContext(http.MethodGet, "/v1/incidents/inc-1/guidance", "", "V")
			if err := h.Guidance(c); err != nil {
				t.Fatal(err)
			}
			var resp struct {
				Guidance json.RawMessage `json:"guidance"`
				Cached   bool            `json:"cached"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if string(resp.Guidance) != tt.want || !resp.Cached {
				t.Fatalf("unexpected body: %s", rec.Body.String())
			}
		})
	}
}

func TestIncidentHandler_UpdateLocation(t *testing.T) {
	var got domain.Point
	svc := &stubIncidentService{
		locationFn: func(ctx context.Context, userID string, p domain.Point) error {
			got = p
			return nil
		},
	}
	h := NewIncidentHandler(svc, nil, nil)

	c, rec := newTestContext(http.MethodPatch, "/v1/users/me/location", `{"lat":-33.9,"lng":18.4}`, "V")
	if err := h.UpdateLocation(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent || got.Lat != -33.9 || got.Lng != 18.4 {
		t.Fatalf("unexpected result: %d %+v", rec.Code, got)
	}

	c, _ = newTestContext(http.MethodPatch, "/v1/users/me/location", `{"lat":10}`, "V")
	if code := httpCode(h.UpdateLocation(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without lng, got %d", code)
	}
}
