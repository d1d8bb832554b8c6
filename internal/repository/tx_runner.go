package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTxRunner executes a function inside a MongoDB session transaction.
// Repository methods called with the session context participate in the
// transaction, so state transitions spanning several collections commit
// atomically.
type MongoTxRunner struct {
	client *mongo.Client
}

// NewMongoTxRunner creates a transaction runner over the given client.
func NewMongoTxRunner(client *mongo.Client) *MongoTxRunner {
	return &MongoTxRunner{client: client}
}

// RunTransaction runs fn inside a transaction, committing when fn returns nil
// and aborting otherwise.
func (r *MongoTxRunner) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %v", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
