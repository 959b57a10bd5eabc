package repository

import (
	"brandwatch/internal/model"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MonitorRepo handles MongoDB operations for brand monitors
type MonitorRepo interface {
	// ListActive returns active monitors for brandID, or for every brand when brandID is empty
	ListActive(ctx context.Context, brandID string) ([]*model.Monitor, error)
	GetByID(ctx context.Context, id string) (*model.Monitor, error)
	Upsert(ctx context.Context, monitor *model.Monitor) error
}

type monitorRepo struct {
	monitors *mongo.Collection
}

// NewMonitorRepo creates a new monitor repository
func NewMonitorRepo(db *mongo.Database) MonitorRepo {
	return &monitorRepo{monitors: db.Collection(monitorsCollection)}
}

func (r *monitorRepo) ListActive(ctx context.Context, brandID string) ([]*model.Monitor, error) {
	filter := bson.M{"active": true}
	if brandID != "" {
		filter["brandId"] = brandID
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.monitors.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var monitors []*model.Monitor
	if err := cursor.All(ctx, &monitors); err != nil {
		return nil, err
	}
	return monitors, nil
}

func (r *monitorRepo) GetByID(ctx context.Context, id string) (*model.Monitor, error) {
	var monitor model.Monitor
	err := r.monitors.FindOne(ctx, bson.M{"_id": id}).Decode(&monitor)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &monitor, nil
}

func (r *monitorRepo) Upsert(ctx context.Context, monitor *model.Monitor) error {
	if monitor.CreatedAt.IsZero() {
		monitor.CreatedAt = time.Now()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.monitors.ReplaceOne(ctx, bson.M{"_id": monitor.ID}, monitor, opts)
	return err
}
