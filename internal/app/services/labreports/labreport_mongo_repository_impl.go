package labreports

import (
	"context"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/lab_dto"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoCollectionReports   = "lab_reports"
	mongoCollectionLabValues = "lab_values"
)

type LabReportMongoRepository struct {
	ReportCollection *mongo.Collection
	ValueCollection  *mongo.Collection
}

func NewLabReportMongoRepository(db *mongo.Database) contracts.LabReportRepository {
	return &LabReportMongoRepository{
		ReportCollection: db.Collection(mongoCollectionReports),
		ValueCollection:  db.Collection(mongoCollectionLabValues),
	}
}

func (r *LabReportMongoRepository) CreateReport(ctx context.Context, report *lab_dto.LabReport) error {
	_, err := r.ReportCollection.InsertOne(ctx, report)
	if err != nil {
		return exceptions.ErrMongoDBInsertDocument(err)
	}
	return nil
}

func (r *LabReportMongoRepository) FindReportByID(ctx context.Context, reportID string) (*lab_dto.LabReport, error) {
	var report lab_dto.LabReport
	err := r.ReportCollection.FindOne(ctx, bson.M{"_id": reportID}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &report, nil
}

func (r *LabReportMongoRepository) FindReportByExternalID(ctx context.Context, externalID string) (*lab_dto.LabReport, error) {
	var report lab_dto.LabReport
	err := r.ReportCollection.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &report, nil
}

func (r *LabReportMongoRepository) FindRecentReportsByPatient(ctx context.Context, patientID string, limit int) ([]lab_dto.LabReport, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "reported_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.ReportCollection.Find(ctx, bson.M{"patient_id": patientID}, opts)
	if err != nil {
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	defer cursor.Close(ctx)

	var reports []lab_dto.LabReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, exceptions.ErrMongoDBIterateDocuments(err)
	}
	return reports, nil
}

func (r *LabReportMongoRepository) MarkAIAnalysisCompleted(ctx context.Context, reportID string) error {
	update := bson.M{"$set": bson.M{"ai_analysis_completed": true}}
	_, err := r.ReportCollection.UpdateOne(ctx, bson.M{"_id": reportID}, update)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *LabReportMongoRepository) CreateLabValue(ctx context.Context, value *lab_dto.LabValue) error {
	_, err := r.ValueCollection.InsertOne(ctx, value)
	if err != nil {
		return exceptions.ErrMongoDBInsertDocument(err)
	}
	return nil
}

func (r *LabReportMongoRepository) FindLabValuesByReport(ctx context.Context, reportID string) ([]lab_dto.LabValue, error) {
	cursor, err := r.ValueCollection.Find(ctx, bson.M{"report_id": reportID})
	if err != nil {
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	defer cursor.Close(ctx)

	var values []lab_dto.LabValue
	if err := cursor.All(ctx, &values); err != nil {
		return nil, exceptions.ErrMongoDBIterateDocuments(err)
	}
	return values, nil
}
