package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

const defaultCollection = "memory_snapshots"

// Store keeps memory bank snapshots as Firestore documents, one per store name.
type Store struct {
	client     *firestore.Client
	collection string
}

// NewStore creates a Firestore snapshot store.
// Uses the project passed (MEALPREP_GCP_PROJECT).
func NewStore(ctx context.Context, projectID, collection string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	if collection == "" {
		collection = defaultCollection
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, collection: collection}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) snapshotDoc(name string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(name)
}

type snapshotDoc struct {
	Data      []byte    `firestore:"data"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	snap, err := s.snapshotDoc(name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("firestore Load: %w", err)
	}

	var doc snapshotDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore Load decode: %w", err)
	}
	return doc.Data, nil
}

// Save replaces the whole document; Firestore writes are atomic per document.
func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	doc := snapshotDoc{
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := s.snapshotDoc(name).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore Save: %w", err)
	}
	return nil
}
