package telemetry

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/amrinderguler/ilo-collector/internal/redfish"
)

// Sink is the terminal consumer of the collection loop. Store must report
// failure to the caller but a failure only ever costs the one sample.
type Sink interface {
	Store(ctx context.Context, record *redfish.MetricRecord) error
	Close(ctx context.Context) error
}

// Repository abstracts the document store. Insert returns the store-assigned
// document identity for logging.
type Repository interface {
	Insert(ctx context.Context, document bson.M) (string, error)
	Close(ctx context.Context) error
}
