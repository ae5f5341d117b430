package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/pharmacy/internal/cart"
	"github.com/mamadbah2/pharmacy/internal/domain/models"
)

const (
	cartCollection   = "cart_snapshots"
	reportCollection = "inventory_reports"
)

// ReportRepository stores inventory reports.
type ReportRepository interface {
	SaveInventoryReport(ctx context.Context, report models.InventoryReport) error
}

// MongoDBRepository persists cart snapshots and inventory reports in MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	now    func() time.Time
}

type cartDocument struct {
	Key       string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

var (
	_ cart.Storage     = (*MongoDBRepository)(nil)
	_ ReportRepository = (*MongoDBRepository)(nil)
)

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName, now: time.Now}, nil
}

// Load returns the cart snapshot stored under key.
func (r *MongoDBRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var doc cartDocument
	err := r.collection(cartCollection).FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to find cart snapshot: %w", err)
	}
	return []byte(doc.Data), nil
}

// Save upserts the cart snapshot under key.
func (r *MongoDBRepository) Save(ctx context.Context, key string, data []byte) error {
	doc := cartDocument{Key: key, Data: string(data), UpdatedAt: r.now().UTC()}
	_, err := r.collection(cartCollection).ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert cart snapshot: %w", err)
	}
	return nil
}

// Remove deletes the cart snapshot under key.
func (r *MongoDBRepository) Remove(ctx context.Context, key string) error {
	if _, err := r.collection(cartCollection).DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete cart snapshot: %w", err)
	}
	return nil
}

// SaveInventoryReport inserts an inventory report.
func (r *MongoDBRepository) SaveInventoryReport(ctx context.Context, report models.InventoryReport) error {
	_, err := r.collection(reportCollection).InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert inventory report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}
