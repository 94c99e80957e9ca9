package aianalysis

import (
	"context"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/lab_dto"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const mongoCollectionSessions = "ai_analysis_sessions"

type SessionMongoRepository struct {
	Collection *mongo.Collection
}

func NewSessionMongoRepository(db *mongo.Database) contracts.AnalysisSessionRepository {
	return &SessionMongoRepository{
		Collection: db.Collection(mongoCollectionSessions),
	}
}

func (r *SessionMongoRepository) CreateSession(ctx context.Context, session *lab_dto.AIAnalysisSession) error {
	_, err := r.Collection.InsertOne(ctx, session)
	if err != nil {
		return exceptions.ErrMongoDBInsertDocument(err)
	}
	return nil
}

func (r *SessionMongoRepository) FindSessionByID(ctx context.Context, sessionID string) (*lab_dto.AIAnalysisSession, error) {
	var session lab_dto.AIAnalysisSession
	err := r.Collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &session, nil
}

func (r *SessionMongoRepository) FindSessionByReportID(ctx context.Context, reportID string) (*lab_dto.AIAnalysisSession, error) {
	var session lab_dto.AIAnalysisSession
	err := r.Collection.FindOne(ctx, bson.M{"report_id": reportID}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &session, nil
}

// AttachPhaseOutput persists one phase slot so a crashed process resumes
// from the first empty slot instead of restarting the session.
func (r *SessionMongoRepository) AttachPhaseOutput(ctx context.Context, sessionID, phase string, response *lab_dto.ModelResponse) error {
	update := bson.M{
		"$set": bson.M{phase: response},
		"$inc": bson.M{
			"total_cost":         response.Cost,
			"processing_time_ms": response.ProcessingTimeMs,
		},
	}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": sessionID}, update)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *SessionMongoRepository) AttachConsensus(ctx context.Context, sessionID string, consensus *lab_dto.ConsensusAnalysis) error {
	update := bson.M{"$set": bson.M{"consensus": consensus}}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": sessionID}, update)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *SessionMongoRepository) UpdateSessionStatus(ctx context.Context, sessionID, status, failureReason string) error {
	set := bson.M{"status": status}
	if failureReason != "" {
		set["failure_reason"] = failureReason
	}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": sessionID}, bson.M{"$set": set})
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *SessionMongoRepository) FinalizeSession(ctx context.Context, session *lab_dto.AIAnalysisSession) error {
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}
