package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

const collectionIncidents = "incidents"

// IncidentRepository implements ports.IncidentRepository and
// ports.MessageRepository on a single collection; the coordination log is an
// array embedded in the incident document.
type IncidentRepository struct {
	col *mongo.Collection
}

func NewIncidentRepository(db *mongo.Database) *IncidentRepository {
	return &IncidentRepository{col: db.Collection(collectionIncidents)}
}

type incidentDoc struct {
	ID              string             `bson:"_id"`
	CrisisType      string             `bson:"crisis_type"`
	Location        geoPoint           `bson:"location"`
	Radius          int                `bson:"radius_m"`
	TriggeredBy     string             `bson:"triggered_by"`
	TriggeredByName string             `bson:"triggered_by_name"`
	Status          string             `bson:"status"`
	Responders      []domain.Responder `bson:"responders"`
	Messages        []domain.Message   `bson:"messages"`
	FlaggedFalse    bool               `bson:"flagged_false_alert"`
	CreatedAt       time.Time          `bson:"created_at"`
	ResolvedAt      *time.Time         `bson:"resolved_at,omitempty"`
}

func newIncidentDoc(i *domain.Incident) incidentDoc {
	responders := i.Responders
	if responders == nil {
		responders = []domain.Responder{}
	}
	return incidentDoc{
		ID:              i.ID,
		CrisisType:      string(i.CrisisType),
		Location:        toGeo(i.Origin),
		Radius:          int(i.Radius),
		TriggeredBy:     i.TriggeredBy,
		TriggeredByName: i.TriggeredByName,
		Status:          string(i.Status),
		Responders:      responders,
		Messages:        []domain.Message{},
		FlaggedFalse:    i.FlaggedFalse,
		CreatedAt:       i.CreatedAt.UTC(),
		ResolvedAt:      i.ResolvedAt,
	}
}

func (d incidentDoc) toDomain() *domain.Incident {
	var origin domain.Point
	if p := fromGeo(&d.Location); p != nil {
		origin = *p
	}
	responders := d.Responders
	if responders == nil {
		responders = []domain.Responder{}
	}
	return &domain.Incident{
		ID:              d.ID,
		CrisisType:      domain.CrisisType(d.CrisisType),
		Origin:          origin,
		Radius:          domain.AlertRadius(d.Radius),
		TriggeredBy:     d.TriggeredBy,
		TriggeredByName: d.TriggeredByName,
		Status:          domain.IncidentStatus(d.Status),
		Responders:      responders,
		FlaggedFalse:    d.FlaggedFalse,
		CreatedAt:       d.CreatedAt,
		ResolvedAt:      d.ResolvedAt,
	}
}

// withoutMessages keeps the log out of lifecycle reads.
var withoutMessages = bson.M{"messages": 0}

// Create inserts a new incident document.
func (r *IncidentRepository) Create(ctx context.Context, i *domain.Incident) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, newIncidentDoc(i)); err != nil {
		return storeErr("insert incident", err)
	}
	return nil
}

// FindByID retrieves an incident without its coordination log.
func (r *IncidentRepository) FindByID(ctx context.Context, id string) (*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc incidentDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutMessages)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIncidentNotFound
		}
		return nil, storeErr("find incident", err)
	}
	return doc.toDomain(), nil
}

// ListActive returns open incidents, newest first.
func (r *IncidentRepository) ListActive(ctx context.Context) ([]*domain.Incident, error) {
	return r.list(ctx, bson.M{"status": string(domain.StatusActive)})
}

// ListAll returns every incident, newest first.
func (r *IncidentRepository) ListAll(ctx context.Context) ([]*domain.Incident, error) {
	return r.list(ctx, bson.M{})
}

func (r *IncidentRepository) list(ctx context.Context, filter bson.M) ([]*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetProjection(withoutMessages).
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeErr("list incidents", err)
	}
	defer cur.Close(ctx)

	var docs []incidentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storeErr("decode incidents", err)
	}
	out := make([]*domain.Incident, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func addResponderFilter(incidentID, userID string) bson.M {
	return bson.M{
		"_id":                incidentID,
		"status":             string(domain.StatusActive),
		"responders.user_id": bson.M{"$ne": userID},
	}
}

// AddResponder appends r only while the incident is active and r.UserID is
// absent, in one conditional update.
func (r *IncidentRepository) AddResponder(ctx context.Context, incidentID string, resp domain.Responder) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		addResponderFilter(incidentID, resp.UserID),
		bson.M{"$push": bson.M{"responders": resp}},
	)
	if err != nil {
		return storeErr("add responder", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return r.classifyMiss(ctx, incidentID, func(i *domain.Incident) error {
		if i.HasResponder(resp.UserID) {
			return domain.ErrAlreadyResponding
		}
		return nil
	})
}

func setProgressFilter(incidentID, userID string) bson.M {
	return bson.M{
		"_id":                incidentID,
		"status":             string(domain.StatusActive),
		"responders.user_id": userID,
	}
}

// SetResponderProgress overwrites the progress of a listed responder.
func (r *IncidentRepository) SetResponderProgress(ctx context.Context, incidentID, userID string, p domain.Progress) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		setProgressFilter(incidentID, userID),
		bson.M{"$set": bson.M{"responders.$.progress": string(p)}},
	)
	if err != nil {
		return storeErr("set responder progress", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return r.classifyMiss(ctx, incidentID, func(*domain.Incident) error {
		return domain.ErrResponderNotFound
	})
}

// MarkResolved closes an active incident.
func (r *IncidentRepository) MarkResolved(ctx context.Context, incidentID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": incidentID, "status": string(domain.StatusActive)},
		bson.M{"$set": bson.M{"status": string(domain.StatusResolved), "resolved_at": at.UTC()}},
	)
	if err != nil {
		return storeErr("resolve incident", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return r.classifyMiss(ctx, incidentID, nil)
}

// MarkFlagged sets the false alert flag the first time only. Flagging does
// not depend on status.
func (r *IncidentRepository) MarkFlagged(ctx context.Context, incidentID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": incidentID, "flagged_false_alert": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"flagged_false_alert": true}},
	)
	if err != nil {
		return storeErr("flag incident", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if _, err := r.FindByID(ctx, incidentID); err != nil {
		return err
	}
	return domain.ErrAlreadyFlagged
}

// classifyMiss explains why a conditional update matched nothing.
func (r *IncidentRepository) classifyMiss(ctx context.Context, incidentID string, active func(*domain.Incident) error) error {
	i, err := r.FindByID(ctx, incidentID)
	if err != nil {
		return err
	}
	if i.IsResolved() {
		return domain.ErrIncidentResolved
	}
	if active != nil {
		if err := active(i); err != nil {
			return err
		}
	}
	// Lost a race with a concurrent writer; report as a conflict.
	return domain.ErrConflict
}

func countFilter(f ports.IncidentCountFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if !f.CreatedSince.IsZero() {
		filter["created_at"] = bson.M{"$gte": f.CreatedSince.UTC()}
	}
	return filter
}

func (r *IncidentRepository) Count(ctx context.Context, f ports.IncidentCountFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, countFilter(f))
	if err != nil {
		return 0, storeErr("count incidents", err)
	}
	return n, nil
}

// Append pushes m onto the incident's log while the incident is active.
func (r *IncidentRepository) Append(ctx context.Context, incidentID string, m domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	m.SentAt = m.SentAt.UTC()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": incidentID, "status": string(domain.StatusActive)},
		bson.M{"$push": bson.M{"messages": m}},
	)
	if err != nil {
		return storeErr("append message", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return r.classifyMiss(ctx, incidentID, nil)
}

// History returns the log in append order.
func (r *IncidentRepository) History(ctx context.Context, incidentID string) ([]domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc struct {
		Messages []domain.Message `bson:"messages"`
	}
	opts := options.FindOne().SetProjection(bson.M{"messages": 1})
	if err := r.col.FindOne(ctx, bson.M{"_id": incidentID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIncidentNotFound
		}
		return nil, storeErr("load messages", err)
	}
	if doc.Messages == nil {
		return []domain.Message{}, nil
	}
	return doc.Messages, nil
}

// EnsureIndexes creates necessary indexes on the incidents collection.
func (r *IncidentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "triggered_by", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

var (
	_ ports.IncidentRepository = (*IncidentRepository)(nil)
	_ ports.MessageRepository  = (*IncidentRepository)(nil)
)
