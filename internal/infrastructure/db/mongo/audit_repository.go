package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

const collectionAuthEvents = "auth_events"

// auditRetention bounds how long audit entries are kept.
const auditRetention = 90 * 24 * time.Hour

// AuditRepository writes the authentication audit trail.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAuthEvents)}
}

// Insert persists one audit entry.
func (r *AuditRepository) Insert(ctx context.Context, event *domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"event_id":    event.ID,
		"kind":        string(event.Kind),
		"outcome":     event.Outcome,
		"occurred_at": event.OccurredAt.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if event.Username != "" {
		doc["username"] = event.Username
	}
	if event.Reason != "" {
		doc["reason"] = event.Reason
	}
	if event.RemoteIP != "" {
		doc["remote_ip"] = event.RemoteIP
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup index and the retention TTL index.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "occurred_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(auditRetention / time.Second)),
		},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("ensure audit indexes: %w", err)
	}
	return nil
}
