package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

func TestAddResponderFilter_RequiresActiveAndAbsent(t *testing.T) {
	f := addResponderFilter("inc-1", "u-1")

	if f["_id"] != "inc-1" {
		t.Fatalf("unexpected _id: %v", f["_id"])
	}
	if f["status"] != "active" {
		t.Fatalf("expected active status guard, got %v", f["status"])
	}
	ne, ok := f["responders.user_id"].(bson.M)
	if !ok || ne["$ne"] != "u-1" {
		t.Fatalf("expected $ne guard on responder id, got %v", f["responders.user_id"])
	}
}

func TestSetProgressFilter_MatchesListedResponder(t *testing.T) {
	f := setProgressFilter("inc-1", "u-1")
	if f["responders.user_id"] != "u-1" || f["status"] != "active" {
		t.Fatalf("unexpected filter: %v", f)
	}
}

func TestCountFilter(t *testing.T) {
	if f := countFilter(ports.IncidentCountFilter{}); len(f) != 0 {
		t.Fatalf("expected empty filter, got %v", f)
	}

	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f := countFilter(ports.IncidentCountFilter{Status: domain.StatusResolved, CreatedSince: since})
	if f["status"] != "resolved" {
		t.Fatalf("unexpected status: %v", f["status"])
	}
	gte, ok := f["created_at"].(bson.M)
	if !ok || gte["$gte"] != since {
		t.Fatalf("unexpected created_at: %v", f["created_at"])
	}
}

func TestNearbyUsersQuery(t *testing.T) {
	q := nearbyUsersQuery("")
	if _, ok := q["_id"]; ok {
		t.Fatalf("no exclusion expected, got %v", q)
	}
	if q["suspended"].(bson.M)["$ne"] != true {
		t.Fatalf("suspended users must be excluded: %v", q)
	}

	q = nearbyUsersQuery("me")
	if q["_id"].(bson.M)["$ne"] != "me" {
		t.Fatalf("expected requester exclusion, got %v", q)
	}
}

func TestGeoNearStage(t *testing.T) {
	stage := geoNearStage(domain.Point{Lng: 3.38, Lat: 6.52}, 1000, bson.M{})
	if stage[0].Key != "$geoNear" {
		t.Fatalf("expected $geoNear, got %s", stage[0].Key)
	}
	opts := stage[0].Value.(bson.D).Map()
	near := opts["near"].(geoPoint)
	if near.Type != "Point" || near.Coordinates[0] != 3.38 || near.Coordinates[1] != 6.52 {
		t.Fatalf("coordinates must be [lng, lat], got %+v", near)
	}
	if opts["maxDistance"] != float64(1000) || opts["key"] != "location" {
		t.Fatalf("unexpected options: %v", opts)
	}
}

func TestGeoRoundTrip(t *testing.T) {
	p := domain.Point{Lng: -0.1276, Lat: 51.5072}
	g := toGeo(p)
	back := fromGeo(&g)
	if back == nil || *back != p {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if fromGeo(nil) != nil {
		t.Fatal("nil geo point must map to no location")
	}
}

func TestReputationPipeline_FalseAlertChecksThreshold(t *testing.T) {
	p := reputationPipeline(domain.DeltaFor(domain.RepFalseAlert), time.Unix(0, 0))
	if len(p) != 2 {
		t.Fatalf("expected score stage plus suspension stage, got %d stages", len(p))
	}
	suspend := p[1][0].Value.(bson.D).Map()["suspended"].(bson.M)
	cond := suspend["$cond"].(bson.A)
	gte := cond[0].(bson.M)["$gte"].(bson.A)
	if gte[0] != "$false_alert_count" || gte[1] != domain.FalseAlertSuspendThreshold {
		t.Fatalf("unexpected threshold check: %v", gte)
	}
}

func TestReputationPipeline_UnsuspendResetsCount(t *testing.T) {
	p := reputationPipeline(domain.DeltaFor(domain.RepAdminUnsuspend), time.Unix(0, 0))
	if len(p) != 1 {
		t.Fatalf("expected one stage, got %d", len(p))
	}
	set := p[0][0].Value.(bson.D).Map()
	if set["false_alert_count"] != 0 {
		t.Fatalf("expected reset count, got %v", set["false_alert_count"])
	}
	if set["suspended"] != false {
		t.Fatalf("expected suspended=false, got %v", set["suspended"])
	}
}

func TestIncidentDoc_RoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in := &domain.Incident{
		ID:          "inc-1",
		CrisisType:  domain.CrisisFire,
		Origin:      domain.Point{Lng: 1, Lat: 2},
		Radius:      domain.Radius2000,
		TriggeredBy: "u-1",
		Status:      domain.StatusActive,
		CreatedAt:   now,
	}
	doc := newIncidentDoc(in)
	if doc.Responders == nil || doc.Messages == nil {
		t.Fatal("arrays must be initialised so $push works")
	}
	out := doc.toDomain()
	if out.Origin != in.Origin || out.Radius != in.Radius || out.CrisisType != in.CrisisType {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
