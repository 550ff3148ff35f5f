package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

const collectionEntityStates = "entity_states"

// StateRepository persists one EntityRegionState document per tracking key.
type StateRepository struct {
	col *mongo.Collection
}

func NewStateRepository(db *mongo.Database) *StateRepository {
	return &StateRepository{col: db.Collection(collectionEntityStates)}
}

func keyFilter(key domain.TrackingKey) bson.M {
	return bson.M{"key.namespace": key.Namespace, "key.entity_id": key.EntityID}
}

func (r *StateRepository) Get(ctx context.Context, key domain.TrackingKey) (*domain.EntityRegionState, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var st domain.EntityRegionState
	if err := r.col.FindOne(ctx, keyFilter(key)).Decode(&st); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrStateNotFound
		}
		return nil, err
	}
	return &st, nil
}

// Save replaces the state document for st.Key, creating it on first save.
func (r *StateRepository) Save(ctx context.Context, st *domain.EntityRegionState) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := *st
	if doc.ActiveRegionIDs == nil {
		doc.ActiveRegionIDs = []string{}
	}
	doc.LastReportedAt = doc.LastReportedAt.UTC()

	_, err := r.col.ReplaceOne(ctx, keyFilter(st.Key), doc, options.Replace().SetUpsert(true))
	return err
}

// EnsureIndexes creates the unique tracking key index.
func (r *StateRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key.namespace", Value: 1}, {Key: "key.entity_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
