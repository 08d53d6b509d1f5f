package repository

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/cluster"
	"github.com/m-mizutani/memoir/pkg/service/vecindex"
)

var (
	// ErrNotInitialized is returned when a collection is queried before
	// ingestion has ever run
	ErrNotInitialized = goerr.New("collection not initialized")
)

// Axis is one semantic similarity axis with its own persisted index
type Axis string

const (
	AxisCaption    Axis = "caption"
	AxisText       Axis = "text"
	AxisObjects    Axis = "objects"
	AxisPeople     Axis = "people"
	AxisActivities Axis = "activities"
	AxisLocation   Axis = "location"
	AxisComposite  Axis = "composite"
	AxisKnowledge  Axis = "knowledge"
	AxisRAG        Axis = "rag"
)

// Axes lists every persisted similarity axis
var Axes = []Axis{
	AxisCaption, AxisText, AxisObjects, AxisPeople, AxisActivities,
	AxisLocation, AxisComposite, AxisKnowledge, AxisRAG,
}

// Repository persists one collection's memory store, similarity indices,
// composite events, and face clusters. Every Load method tolerates files
// absent on first run and returns an empty value instead of an error, except
// LoadMemories which reports ErrNotInitialized.
type Repository interface {
	// Initialized reports whether the collection store exists
	Initialized() bool

	// ModTime returns the newest modification time of any store file
	ModTime() (time.Time, error)

	// LoadMemories retrieves the ordered memory list
	LoadMemories(ctx context.Context) ([]*model.Memory, error)

	// SaveMemories persists the ordered memory list
	SaveMemories(ctx context.Context, memories []*model.Memory) error

	// LoadIndex retrieves the similarity index of one axis
	LoadIndex(ctx context.Context, axis Axis) (*vecindex.Index, error)

	// SaveIndex persists the similarity index of one axis
	SaveIndex(ctx context.Context, axis Axis, index *vecindex.Index) error

	// LoadCompositeEvents retrieves the inferred composite events
	LoadCompositeEvents(ctx context.Context) ([]*model.CompositeEvent, error)

	// SaveCompositeEvents persists the inferred composite events
	SaveCompositeEvents(ctx context.Context, events []*model.CompositeEvent) error

	// LoadKnowledge retrieves the inferred knowledge entries
	LoadKnowledge(ctx context.Context) ([]*model.Knowledge, error)

	// SaveKnowledge persists the inferred knowledge entries
	SaveKnowledge(ctx context.Context, entries []*model.Knowledge) error

	// LoadFaceClusters retrieves the face identity clusters
	LoadFaceClusters(ctx context.Context) ([]*cluster.FaceCluster, error)

	// SaveFaceClusters persists the face identity clusters
	SaveFaceClusters(ctx context.Context, clusters []*cluster.FaceCluster) error
}
