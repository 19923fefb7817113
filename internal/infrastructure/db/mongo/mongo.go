package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// Transactor runs a unit of work inside a multi-document transaction.
// Transactions require a replica set or sharded cluster.
type Transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// WithinTx commits every write fn makes with the session context, or none.
// Errors returned by fn are passed through unchanged.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := t.client.StartSession()
	if err != nil {
		return domain.Unavailable("start session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && !isDomainError(err) {
		return domain.Unavailable("transaction", err)
	}
	return err
}

// storeErr passes domain errors through and marks everything else as a
// store outage.
func storeErr(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return domain.Unavailable(op, err)
}

func isDomainError(err error) bool {
	for _, class := range []error{
		domain.ErrInvalidInput,
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrForbidden,
		domain.ErrUnavailable,
	} {
		if errors.Is(err, class) {
			return true
		}
	}
	return false
}

// geoPoint is the GeoJSON form used by 2dsphere indexes.
type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

func toGeo(p domain.Point) geoPoint {
	return geoPoint{Type: "Point", Coordinates: []float64{p.Lng, p.Lat}}
}

func fromGeo(g *geoPoint) *domain.Point {
	if g == nil || len(g.Coordinates) != 2 {
		return nil
	}
	return &domain.Point{Lng: g.Coordinates[0], Lat: g.Coordinates[1]}
}
