package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/core/ports"
)

const (
	auditCollection       = "auth_events"
	defaultAuditRetention = 90 * 24 * time.Hour
	ensureIndexesTimeout  = 30 * time.Second
)

// AuditRepository implements ports.AuditRecorder using MongoDB.
type AuditRepository struct {
	col       *mongo.Collection
	retention time.Duration
	now       func() time.Time
}

// NewAuditRepository creates a new AuditRepository. Events older than
// retention are expired by MongoDB; zero selects 90 days.
func NewAuditRepository(db *mongo.Database, retention time.Duration) *AuditRepository {
	if retention <= 0 {
		retention = defaultAuditRetention
	}
	return &AuditRepository{
		col:       db.Collection(auditCollection),
		retention: retention,
		now:       time.Now,
	}
}

// Record persists an authentication event to the auth_events collection.
func (r *AuditRepository) Record(ctx context.Context, event *domain.AuthEvent) error {
	doc := bson.M{
		"type":        string(event.Type),
		"occurred_at": event.OccurredAt.UTC(),
		"recorded_at": r.now().UTC(),
	}
	if event.OccurredAt.IsZero() {
		doc["occurred_at"] = doc["recorded_at"]
	}
	if event.IdentityID != "" {
		doc["identity_id"] = event.IdentityID
	}
	if event.ActorID != "" {
		doc["actor_id"] = event.ActorID
	}
	if event.Email != "" {
		doc["email"] = domain.NormalizeEmail(event.Email)
	}
	if len(event.Detail) > 0 {
		doc["detail"] = event.Detail
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes and the retention TTL index on
// the auth_events collection.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ensureIndexesTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "identity_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{
			Keys:    bson.D{{Key: "recorded_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(r.retention.Seconds())),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

var _ ports.AuditRecorder = (*AuditRepository)(nil)
