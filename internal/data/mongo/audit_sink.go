// Package mongo provides the MongoDB audit event sink. Audit events are the
// read-optimized trail admin dashboards query; the Postgres ledger remains
// the source of truth.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storefront-ledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit event collection
	AuditCollectionName = "audit_events"
)

// AuditSink implements audit.Sink backed by MongoDB
type AuditSink struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditSink creates a new MongoDB audit sink
func NewAuditSink(logger *slog.Logger, db *mongo.Database) audit.Sink {
	return &AuditSink{
		db:     db,
		logger: logger,
	}
}

// Record stores an audit event. Re-publishing the same event id is a no-op
// so the outbox poller can safely retry.
func (s *AuditSink) Record(ctx context.Context, event *audit.Event) error {
	collection := s.db.Collection(AuditCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"event_id": event.ID})
	if err != nil {
		s.logger.Error("Failed to check for existing audit event", "event_id", event.ID.String(), "error", err)
		return fmt.Errorf("failed to check for existing audit event: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := collection.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		s.logger.Error("Failed to record audit event", "event_id", event.ID.String(), "error", err)
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// FindByOrder returns the audit trail for one order, oldest first
func (s *AuditSink) FindByOrder(ctx context.Context, orderID string) ([]*audit.Event, error) {
	collection := s.db.Collection(AuditCollectionName)

	cursor, err := collection.Find(ctx, bson.M{"order_id": orderID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		s.logger.Error("Failed to find audit events", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to find audit events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*audit.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode audit events: %w", err)
	}

	return events, nil
}
