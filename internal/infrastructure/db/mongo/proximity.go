package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

// ProximityIndex answers radius queries with $geoNear over the 2dsphere
// indexes on users.location and incidents.location. Distances are spherical
// meters as computed by the server.
type ProximityIndex struct {
	users     *mongo.Collection
	incidents *mongo.Collection
	now       func() time.Time
}

func NewProximityIndex(db *mongo.Database) *ProximityIndex {
	return &ProximityIndex{
		users:     db.Collection(collectionUsers),
		incidents: db.Collection(collectionIncidents),
		now:       time.Now,
	}
}

func geoNearStage(p domain.Point, radiusMeters float64, query bson.M) bson.D {
	return bson.D{{Key: "$geoNear", Value: bson.D{
		{Key: "near", Value: toGeo(p)},
		{Key: "key", Value: "location"},
		{Key: "distanceField", Value: "distance_m"},
		{Key: "maxDistance", Value: radiusMeters},
		{Key: "spherical", Value: true},
		{Key: "query", Value: query},
	}}}
}

func nearbyUsersQuery(excludeID string) bson.M {
	q := bson.M{"suspended": bson.M{"$ne": true}}
	if excludeID != "" {
		q["_id"] = bson.M{"$ne": excludeID}
	}
	return q
}

// NearbyUsers returns eligible users within radiusMeters of p, nearest first.
func (x *ProximityIndex) NearbyUsers(ctx context.Context, p domain.Point, radiusMeters float64, excludeID string) ([]domain.NearbyUser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		geoNearStage(p, radiusMeters, nearbyUsersQuery(excludeID)),
		{{Key: "$project", Value: bson.M{"name": 1, "skills": 1, "trust_score": 1, "distance_m": 1}}},
	}
	cur, err := x.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storeErr("nearby users", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID         string   `bson:"_id"`
		Name       string   `bson:"name"`
		Skills     []string `bson:"skills"`
		TrustScore int      `bson:"trust_score"`
		Distance   float64  `bson:"distance_m"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, storeErr("decode nearby users", err)
	}

	out := make([]domain.NearbyUser, 0, len(rows))
	for _, row := range rows {
		skills := make([]domain.Skill, 0, len(row.Skills))
		for _, s := range row.Skills {
			skills = append(skills, domain.Skill(s))
		}
		out = append(out, domain.NearbyUser{
			PublicProfile: domain.PublicProfile{
				ID:         row.ID,
				Name:       row.Name,
				Skills:     skills,
				TrustScore: row.TrustScore,
			},
			DistanceMeters: row.Distance,
		})
	}
	return out, nil
}

// NearbyIncidents returns active incidents within radiusMeters of p, nearest first.
func (x *ProximityIndex) NearbyIncidents(ctx context.Context, p domain.Point, radiusMeters float64) ([]domain.NearbyIncident, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		geoNearStage(p, radiusMeters, bson.M{"status": string(domain.StatusActive)}),
		{{Key: "$project", Value: withoutMessages}},
	}
	cur, err := x.incidents.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storeErr("nearby incidents", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Doc      incidentDoc `bson:",inline"`
		Distance float64     `bson:"distance_m"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, storeErr("decode nearby incidents", err)
	}

	out := make([]domain.NearbyIncident, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.NearbyIncident{
			IncidentSummary: row.Doc.toDomain().Summary(),
			DistanceMeters:  row.Distance,
		})
	}
	return out, nil
}

// UpdateUserLocation replaces the user's last known location.
func (x *ProximityIndex) UpdateUserLocation(ctx context.Context, userID string, p domain.Point) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := x.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"location": toGeo(p), "updated_at": x.now().UTC()}},
	)
	if err != nil {
		return storeErr("update location", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

var _ ports.ProximityIndex = (*ProximityIndex)(nil)
