// Package mongo provides a store.ConversationStore backed by MongoDB,
// for deployments that need thread history to survive a scheduler
// restart.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/convorun/message"
	"goa.design/convorun/store"
)

// threadDoc is the BSON shape of a thread document.
type threadDoc struct {
	ID              string            `bson:"_id"`
	Status          string            `bson:"status"`
	CreatedAt       time.Time         `bson:"created_at"`
	LastActivityAt  time.Time         `bson:"last_activity_at"`
	CurrentRunID    string            `bson:"current_run_id,omitempty"`
	LatestRunID     string            `bson:"latest_run_id,omitempty"`
	SessionMappings map[string]string `bson:"session_mappings,omitempty"`
	Metadata        bson.M            `bson:"metadata,omitempty"`
}

// messageDoc is the BSON shape of one persisted message row.
type messageDoc struct {
	ThreadID        string    `bson:"thread_id"`
	GenerationID    string    `bson:"generation_id"`
	MessageOrderIdx int64     `bson:"message_order_idx"`
	Kind            string    `bson:"kind"`
	Payload         []byte    `bson:"payload"`
	CreatedAt       time.Time `bson:"created_at"`
}

// Store is a store.ConversationStore implementation over two MongoDB
// collections: one thread document per thread, and an append-only
// collection of message rows indexed by (thread_id, message_order_idx).
type Store struct {
	threads  *mongo.Collection
	messages *mongo.Collection
}

// New wraps the "threads" and "messages" collections of db as a
// store.ConversationStore. Callers are responsible for creating the
// compound index on messages over (thread_id, message_order_idx) ahead of
// production use; EnsureIndexes does this for callers that want it.
func New(db *mongo.Database) *Store {
	return &Store{
		threads:  db.Collection("threads"),
		messages: db.Collection("messages"),
	}
}

// EnsureIndexes creates the indexes Store relies on for efficient history
// queries. It is idempotent and safe to call on every process start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "message_order_idx", Value: 1}},
	})
	return err
}

// CreateThread implements store.ConversationStore.
func (s *Store) CreateThread(ctx context.Context, threadID string, createdAt time.Time) (message.ThreadMetadata, error) {
	existing, err := s.LoadThread(ctx, threadID)
	switch err {
	case nil:
		if existing.Status == message.ThreadStatusEnded {
			return message.ThreadMetadata{}, store.ErrThreadEnded
		}
		return existing, nil
	case store.ErrThreadNotFound:
		// fall through to insert below
	default:
		return message.ThreadMetadata{}, err
	}

	doc := threadDoc{
		ID:             threadID,
		Status:         string(message.ThreadStatusActive),
		CreatedAt:      createdAt,
		LastActivityAt: createdAt,
	}
	_, err = s.threads.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return s.LoadThread(ctx, threadID)
	}
	if err != nil {
		return message.ThreadMetadata{}, err
	}
	return docToThread(doc), nil
}

// LoadThread implements store.ConversationStore.
func (s *Store) LoadThread(ctx context.Context, threadID string) (message.ThreadMetadata, error) {
	var doc threadDoc
	err := s.threads.FindOne(ctx, bson.M{"_id": threadID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return message.ThreadMetadata{}, store.ErrThreadNotFound
	}
	if err != nil {
		return message.ThreadMetadata{}, err
	}
	return docToThread(doc), nil
}

// EndThread implements store.ConversationStore.
func (s *Store) EndThread(ctx context.Context, threadID string, endedAt time.Time) (message.ThreadMetadata, error) {
	res := s.threads.FindOneAndUpdate(ctx,
		bson.M{"_id": threadID},
		bson.M{"$set": bson.M{"status": string(message.ThreadStatusEnded), "last_activity_at": endedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var doc threadDoc
	if err := res.Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return message.ThreadMetadata{}, store.ErrThreadNotFound
		}
		return message.ThreadMetadata{}, err
	}
	return docToThread(doc), nil
}

// SaveMetadata implements store.ConversationStore, replacing the thread
// document wholesale.
func (s *Store) SaveMetadata(ctx context.Context, threadID string, metadata message.ThreadMetadata) error {
	doc := threadDoc{
		ID:              threadID,
		Status:          string(metadata.Status),
		CreatedAt:       metadata.CreatedAt,
		LastActivityAt:  metadata.LastActivityAt,
		CurrentRunID:    metadata.CurrentRunID,
		LatestRunID:     metadata.LatestRunID,
		SessionMappings: metadata.SessionMappings,
	}
	_, err := s.threads.ReplaceOne(ctx, bson.M{"_id": threadID}, doc, options.Replace().SetUpsert(true))
	return err
}

// AppendMessages implements store.ConversationStore.
func (s *Store) AppendMessages(ctx context.Context, threadID string, msgs []store.PersistedMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	docs := make([]any, 0, len(msgs))
	var lastActivity time.Time
	for _, pm := range msgs {
		docs = append(docs, messageDoc{
			ThreadID:        threadID,
			GenerationID:    pm.GenerationID,
			MessageOrderIdx: pm.MessageOrderIdx,
			Kind:            string(pm.Kind),
			Payload:         pm.Payload,
			CreatedAt:       pm.CreatedAt,
		})
		lastActivity = pm.CreatedAt
	}
	if _, err := s.messages.InsertMany(ctx, docs); err != nil {
		return err
	}
	_, err := s.threads.UpdateOne(ctx, bson.M{"_id": threadID}, bson.M{"$set": bson.M{"last_activity_at": lastActivity}})
	return err
}

// LoadHistory implements store.ConversationStore.
func (s *Store) LoadHistory(ctx context.Context, threadID string, afterOrderIdx int64) ([]store.PersistedMessage, error) {
	cur, err := s.messages.Find(ctx,
		bson.M{"thread_id": threadID, "message_order_idx": bson.M{"$gt": afterOrderIdx}},
		options.Find().SetSort(bson.D{{Key: "message_order_idx", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []store.PersistedMessage
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, store.PersistedMessage{
			ThreadID:        doc.ThreadID,
			GenerationID:    doc.GenerationID,
			MessageOrderIdx: doc.MessageOrderIdx,
			Kind:            message.Kind(doc.Kind),
			Payload:         doc.Payload,
			CreatedAt:       doc.CreatedAt,
		})
	}
	return out, cur.Err()
}

func docToThread(doc threadDoc) message.ThreadMetadata {
	return message.ThreadMetadata{
		ThreadID:        doc.ID,
		Status:          message.ThreadStatus(doc.Status),
		CreatedAt:       doc.CreatedAt,
		LastActivityAt:  doc.LastActivityAt,
		CurrentRunID:    doc.CurrentRunID,
		LatestRunID:     doc.LatestRunID,
		SessionMappings: doc.SessionMappings,
		Metadata:        message.NewMetadata(),
	}
}
