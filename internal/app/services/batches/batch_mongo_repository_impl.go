package batches

import (
	"context"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/lab_dto"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const mongoCollectionBatches = "lab_batches"

type BatchMongoRepository struct {
	Collection *mongo.Collection
}

func NewBatchMongoRepository(db *mongo.Database) contracts.BatchRepository {
	return &BatchMongoRepository{
		Collection: db.Collection(mongoCollectionBatches),
	}
}

func (r *BatchMongoRepository) CreateBatch(ctx context.Context, batch *lab_dto.LabBatch) error {
	_, err := r.Collection.InsertOne(ctx, batch)
	if err != nil {
		return exceptions.ErrMongoDBInsertDocument(err)
	}
	return nil
}

func (r *BatchMongoRepository) FindBatchByID(ctx context.Context, batchID string) (*lab_dto.LabBatch, error) {
	var batch lab_dto.LabBatch
	err := r.Collection.FindOne(ctx, bson.M{"_id": batchID}).Decode(&batch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &batch, nil
}

func (r *BatchMongoRepository) UpdateBatch(ctx context.Context, batch *lab_dto.LabBatch) error {
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": batch.ID}, batch)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}
