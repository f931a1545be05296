package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/log"
)

// dimensionStore builds a store without a live pool; the dimension check
// runs before any connection is touched.
func dimensionStore(dim int) *Store {
	return &Store{dimension: dim, logger: log.NewNop()}
}

func TestStoreInsertRejectsWrongDimension(t *testing.T) {
	store := dimensionStore(4)

	_, err := store.Insert(context.Background(), "some content", []float32{1, 2, 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Insert error = %v, want ErrDimensionMismatch", err)
	}
}

func TestStoreSearchRejectsWrongDimension(t *testing.T) {
	store := dimensionStore(4)

	_, err := store.SearchNearest(context.Background(), []float32{1, 2, 3, 4, 5}, DefaultSearchLimit)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("SearchNearest error = %v, want ErrDimensionMismatch", err)
	}
}

func TestStoreSearchRejectsEmptyEmbedding(t *testing.T) {
	store := dimensionStore(4)

	_, err := store.SearchNearest(context.Background(), nil, DefaultSearchLimit)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("SearchNearest error = %v, want ErrDimensionMismatch", err)
	}
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(nil, 4, log.NewNop()); err == nil {
		t.Error("expected error for nil pool")
	}
}
