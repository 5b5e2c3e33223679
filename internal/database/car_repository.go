package database

import (
	"context"
	"errors"
	"time"

	"car-listing-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CarRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewCarRepository(db *mongo.Database) *CarRepository {
	return &CarRepository{collection: db.Collection(CarsCollection), now: time.Now}
}

// Insert validates the car against the schema, stamps id and timestamps and
// writes it.
func (r *CarRepository) Insert(ctx context.Context, car *models.Car) error {
	if err := car.Validate(); err != nil {
		return err
	}

	now := r.now().UTC().Truncate(time.Millisecond)
	car.ID = primitive.NewObjectID()
	car.CreatedAt = now
	car.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, car)
	return err
}

// List returns one page of cars, newest first, with the owner's public
// profile attached.
func (r *CarRepository) List(ctx context.Context, skip, limit int64) ([]models.CarWithOwner, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$skip", Value: skip}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UsersCollection},
			{Key: "let", Value: bson.D{{Key: "uid", Value: "$user"}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$_id", "$$uid"}}}}}}},
				bson.D{{Key: "$project", Value: bson.D{{Key: "username", Value: 1}, {Key: "profileImage", Value: 1}}}},
			}},
			{Key: "as", Value: "owner"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$owner"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	cars := []models.CarWithOwner{}
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

func (r *CarRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// ListByOwner returns every car owned by ownerID, newest first.
func (r *CarRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Car, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	cars := []models.Car{}
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// FindByID treats a malformed id like an unknown one.
func (r *CarRepository) FindByID(ctx context.Context, id string) (*models.Car, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var car models.Car
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&car)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *CarRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
