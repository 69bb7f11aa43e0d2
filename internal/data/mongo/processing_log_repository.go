// Package mongo provides the MongoDB implementation of the append-only
// batch processing log.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/al3-renewal-pipeline/internal/domain/processinglog"
)

const (
	// ProcessingLogCollectionName is the name of the processing-log collection in MongoDB
	ProcessingLogCollectionName = "batch_processing_log"
)

// ProcessingLogRepository implements the processinglog.Repository interface for MongoDB
type ProcessingLogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewProcessingLogRepository creates a new MongoDB processing-log repository
func NewProcessingLogRepository(logger *slog.Logger, db *mongo.Database) processinglog.Repository {
	return &ProcessingLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a new log entry. Entries are immutable once written.
func (r *ProcessingLogRepository) Append(ctx context.Context, entry *processinglog.Entry) error {
	collection := r.db.Collection(ProcessingLogCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to append processing log entry",
			"batch_id", entry.BatchID.String(),
			"event", entry.Event,
			"error", err)
		return fmt.Errorf("failed to append processing log entry: %w", err)
	}

	return nil
}

// ListByBatch retrieves paginated log entries for a batch in chronological
// order, so the log reads as a narrative of the run.
func (r *ProcessingLogRepository) ListByBatch(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*processinglog.Entry, error) {
	collection := r.db.Collection(ProcessingLogCollectionName)

	filter := bson.M{"batch_id": batchID}
	opts := options.Find().
		SetSort(bson.M{"created_at": 1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list processing log entries",
			"batch_id", batchID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list processing log entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*processinglog.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode processing log entries",
			"batch_id", batchID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode processing log entries: %w", err)
	}

	return entries, nil
}

// CountByBatch counts the total number of log entries for a batch
func (r *ProcessingLogRepository) CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	collection := r.db.Collection(ProcessingLogCollectionName)

	filter := bson.M{"batch_id": batchID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count processing log entries",
			"batch_id", batchID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count processing log entries: %w", err)
	}

	return count, nil
}
