package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

const collectionRegions = "regions"

// RegionRepository is the region store backed by the regions collection.
type RegionRepository struct {
	col *mongo.Collection
}

func NewRegionRepository(db *mongo.Database) *RegionRepository {
	return &RegionRepository{col: db.Collection(collectionRegions)}
}

// FetchEnabled returns every enabled region of namespace.
func (r *RegionRepository) FetchEnabled(ctx context.Context, namespace string) ([]domain.Region, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"namespace": namespace, "enabled": true}
	opts := options.Find().SetSort(bson.D{{Key: "region_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find regions: %w", err)
	}
	defer cur.Close(ctx)

	regions := make([]domain.Region, 0)
	if err := cur.All(ctx, &regions); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	return regions, nil
}

func (r *RegionRepository) FindByID(ctx context.Context, namespace, id string) (*domain.Region, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var region domain.Region
	err := r.col.FindOne(ctx, bson.M{"namespace": namespace, "region_id": id}).Decode(&region)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRegionNotFound
		}
		return nil, err
	}
	return &region, nil
}

// Upsert replaces the region identified by (namespace, id), creating it if absent.
func (r *RegionRepository) Upsert(ctx context.Context, region *domain.Region) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"namespace": region.Namespace, "region_id": region.ID}
	_, err := r.col.ReplaceOne(ctx, filter, region, options.Replace().SetUpsert(true))
	return err
}

func (r *RegionRepository) Delete(ctx context.Context, namespace, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"namespace": namespace, "region_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrRegionNotFound
	}
	return nil
}

// EnsureIndexes creates the lookup indexes on the regions collection.
func (r *RegionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "namespace", Value: 1}, {Key: "region_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "namespace", Value: 1}, {Key: "enabled", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
