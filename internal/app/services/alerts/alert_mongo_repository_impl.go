package alerts

import (
	"context"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/lab_dto"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const mongoCollectionAlerts = "critical_value_alerts"

type AlertMongoRepository struct {
	Collection *mongo.Collection
}

func NewAlertMongoRepository(db *mongo.Database) contracts.AlertRepository {
	return &AlertMongoRepository{
		Collection: db.Collection(mongoCollectionAlerts),
	}
}

func (r *AlertMongoRepository) CreateAlert(ctx context.Context, alert *lab_dto.CriticalValueAlert) error {
	_, err := r.Collection.InsertOne(ctx, alert)
	if err != nil {
		return exceptions.ErrMongoDBInsertDocument(err)
	}
	return nil
}

func (r *AlertMongoRepository) FindAlertByID(ctx context.Context, alertID string) (*lab_dto.CriticalValueAlert, error) {
	var alert lab_dto.CriticalValueAlert
	err := r.Collection.FindOne(ctx, bson.M{"_id": alertID}).Decode(&alert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &alert, nil
}

func (r *AlertMongoRepository) FindAlertByLabValueID(ctx context.Context, labValueID string) (*lab_dto.CriticalValueAlert, error) {
	var alert lab_dto.CriticalValueAlert
	err := r.Collection.FindOne(ctx, bson.M{"lab_value_id": labValueID}).Decode(&alert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &alert, nil
}

func (r *AlertMongoRepository) UpdateAlert(ctx context.Context, alert *lab_dto.CriticalValueAlert) error {
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": alert.ID}, alert)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}
