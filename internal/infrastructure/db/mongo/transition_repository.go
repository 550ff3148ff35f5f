package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

const collectionTransitionEvents = "transition_events"

// TransitionRepository is the append-only audit trail of transition events.
type TransitionRepository struct {
	col *mongo.Collection
}

func NewTransitionRepository(db *mongo.Database) *TransitionRepository {
	return &TransitionRepository{col: db.Collection(collectionTransitionEvents)}
}

// InsertTransition persists a transition event to the transition_events collection.
func (r *TransitionRepository) InsertTransition(ctx context.Context, event *domain.TransitionEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"event_id":     event.ID,
		"namespace":    event.Key.Namespace,
		"entity_id":    event.Key.EntityID,
		"region_id":    event.Region.ID,
		"region_name":  event.Region.Name,
		"type":         string(event.Kind),
		"timestamp":    event.Timestamp.UTC(),
		"processed_at": time.Now().UTC(),
		"location": bson.M{
			"lat": event.Position.Lat,
			"lng": event.Position.Lng,
		},
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}

// EnsureIndexes creates the history lookup index.
func (r *TransitionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "namespace", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}}},
	})
	return err
}
