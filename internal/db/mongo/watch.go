package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kailas-cloud/vecsync/internal/db"
)

// Watch opens a change subscription on a collection. Insert, update and
// replace events are delivered with a full document snapshot (updates use
// updateLookup so partial updates still carry current field values).
// A nil resumeToken subscribes from "now".
func (s *Store) Watch(ctx context.Context, collection string, resumeToken []byte) (db.ChangeStream, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{db.OpInsert, db.OpUpdate, db.OpReplace}},
		}}},
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if len(resumeToken) > 0 {
		opts = opts.SetResumeAfter(bson.Raw(resumeToken))
	}

	cs, err := s.database.Collection(collection).Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, &db.Error{Op: db.OpWatch, Err: err}
	}
	return &changeStream{collection: collection, cs: cs}, nil
}

type changeStream struct {
	collection string
	cs         *mongo.ChangeStream
}

type changeEventDTO struct {
	OperationType string `bson:"operationType"`
	FullDocument  bson.M `bson:"fullDocument"`
	DocumentKey   struct {
		ID any `bson:"_id"`
	} `bson:"documentKey"`
}

// Next blocks for the next event. A subscription-level failure is returned
// as an error; the caller owns the reconnect policy.
func (c *changeStream) Next(ctx context.Context) (db.Event, error) {
	if !c.cs.Next(ctx) {
		if err := ctx.Err(); err != nil {
			return db.Event{}, err
		}
		err := c.cs.Err()
		if err == nil {
			err = mongo.ErrClientDisconnected
		}
		return db.Event{}, &db.Error{Op: db.OpWatch, Err: err}
	}

	var dto changeEventDTO
	if err := c.cs.Decode(&dto); err != nil {
		return db.Event{}, &db.Error{Op: db.OpWatch, Err: err}
	}

	ev := db.Event{
		Collection:  c.collection,
		Operation:   dto.OperationType,
		DocumentID:  normalizeValue(dto.DocumentKey.ID),
		ResumeToken: append([]byte(nil), c.cs.ResumeToken()...),
	}
	if dto.FullDocument != nil {
		ev.Document = normalize(dto.FullDocument)
	}
	return ev, nil
}

// Close releases the server-side cursor.
func (c *changeStream) Close(ctx context.Context) error {
	if err := c.cs.Close(ctx); err != nil {
		return &db.Error{Op: db.OpWatch, Err: err}
	}
	return nil
}
