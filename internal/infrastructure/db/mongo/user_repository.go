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

const collectionUsers = "users"

// UserRepository implements ports.UserRepository using MongoDB.
type UserRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers), now: time.Now}
}

// userDoc omits location entirely until the user reports one, so users
// without a location never match a 2dsphere query.
type userDoc struct {
	ID              string    `bson:"_id"`
	Name            string    `bson:"name"`
	Email           string    `bson:"email"`
	PasswordHash    string    `bson:"password_hash"`
	Role            string    `bson:"role"`
	Skills          []string  `bson:"skills"`
	Location        *geoPoint `bson:"location,omitempty"`
	TrustScore      int       `bson:"trust_score"`
	FalseAlertCount int       `bson:"false_alert_count"`
	Suspended       bool      `bson:"suspended"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func newUserDoc(u *domain.User) userDoc {
	skills := make([]string, 0, len(u.Skills))
	for _, s := range u.Skills {
		skills = append(skills, string(s))
	}
	doc := userDoc{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		Role:            u.Role,
		Skills:          skills,
		TrustScore:      u.TrustScore,
		FalseAlertCount: u.FalseAlertCount,
		Suspended:       u.Suspended,
		CreatedAt:       u.CreatedAt.UTC(),
		UpdatedAt:       u.UpdatedAt.UTC(),
	}
	if u.Location != nil {
		g := toGeo(*u.Location)
		doc.Location = &g
	}
	return doc
}

func (d userDoc) toDomain() *domain.User {
	skills := make([]domain.Skill, 0, len(d.Skills))
	for _, s := range d.Skills {
		skills = append(skills, domain.Skill(s))
	}
	return &domain.User{
		ID:              d.ID,
		Name:            d.Name,
		Email:           d.Email,
		PasswordHash:    d.PasswordHash,
		Role:            d.Role,
		Skills:          skills,
		Location:        fromGeo(d.Location),
		TrustScore:      d.TrustScore,
		FalseAlertCount: d.FalseAlertCount,
		Suspended:       d.Suspended,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, newUserDoc(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, storeErr("insert user", err)
	}
	created := *user
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeErr("find user", err)
	}
	return doc.toDomain(), nil
}

// List returns every account, newest first.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storeErr("decode users", err)
	}
	out := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// reputationPipeline expresses d as an update pipeline so the floor and the
// suspension threshold are evaluated by the server against current values.
func reputationPipeline(d domain.ReputationDelta, now time.Time) mongo.Pipeline {
	trust := bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$trust_score", d.Trust}}}}

	var falseAlerts interface{} = bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$false_alert_count", d.FalseAlerts}}}}
	if d.ResetFalseAlerts {
		falseAlerts = d.FalseAlerts
		if d.FalseAlerts < 0 {
			falseAlerts = 0
		}
	}

	set := bson.D{
		{Key: "trust_score", Value: trust},
		{Key: "false_alert_count", Value: falseAlerts},
		{Key: "updated_at", Value: now.UTC()},
	}
	if d.Unsuspend {
		set = append(set, bson.E{Key: "suspended", Value: false})
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}

	if d.CheckSuspend {
		pipeline = append(pipeline, bson.D{{Key: "$set", Value: bson.D{{
			Key: "suspended",
			Value: bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$false_alert_count", domain.FalseAlertSuspendThreshold}},
				true,
				"$suspended",
			}},
		}}}})
	}
	return pipeline
}

// ApplyReputation applies d in one atomic update and returns the user after it.
func (r *UserRepository) ApplyReputation(ctx context.Context, userID string, d domain.ReputationDelta) (*domain.User, error) {
	return r.findAndUpdate(ctx, userID, reputationPipeline(d, r.now()), "apply reputation")
}

func (r *UserRepository) SetSuspended(ctx context.Context, userID string, suspended bool) (*domain.User, error) {
	update := bson.M{"$set": bson.M{"suspended": suspended, "updated_at": r.now().UTC()}}
	return r.findAndUpdate(ctx, userID, update, "set suspended")
}

func (r *UserRepository) findAndUpdate(ctx context.Context, userID string, update interface{}, op string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeErr(op, err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) Count(ctx context.Context, suspendedOnly bool) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if suspendedOnly {
		filter["suspended"] = true
	}
	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, storeErr("count users", err)
	}
	return n, nil
}

// EnsureIndexes creates necessary indexes on the users collection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "suspended", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

var _ ports.UserRepository = (*UserRepository)(nil)
