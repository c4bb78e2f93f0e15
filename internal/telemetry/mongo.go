package telemetry

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/amrinderguler/ilo-collector/internal/errors"
	"github.com/amrinderguler/ilo-collector/internal/logger"
)

const serverSelectionTimeout = 5 * time.Second

type mongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewRepository connects the driver. An unreachable store at startup is not
// fatal: the driver reconnects on its own and writes fail per cycle until it
// does. Only a malformed connection string errors here.
func NewRepository(ctx context.Context, cfg Config) (Repository, error) {
	errFactory := errors.New()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(serverSelectionTimeout))
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreConnect, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		logger.Warn().
			Err(err).
			Msg("Document store not reachable at startup, writes will fail until it is")
	}

	return &mongoRepository{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (r *mongoRepository) Insert(ctx context.Context, document bson.M) (string, error) {
	errFactory := errors.New()

	result, err := r.collection.InsertOne(ctx, document)
	if err != nil {
		return "", errFactory.Wrap(ErrStoreWrite, err)
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		return id.Hex(), nil
	}

	return "", nil
}

func (r *mongoRepository) Close(ctx context.Context) error {
	if err := r.client.Disconnect(ctx); err != nil {
		return errors.New().Wrap(ErrStoreClose, err)
	}

	return nil
}
