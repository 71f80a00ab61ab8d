package usecase

import (
	"context"
	"fmt"

	"github.com/velikanov/hybrid-query-engine/internal/core/ports"
)

// RemoveDocumentUseCase deletes a document and cascades: chunks leave
// every collection first, then the stored payload, then the metadata
// row. A missing payload is tolerated; dangling chunks are not.
type RemoveDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	vector  ports.VectorStore
}

func NewRemoveDocumentUseCase(repo ports.DocumentRepository, storage ports.ObjectStorage, vector ports.VectorStore) *RemoveDocumentUseCase {
	return &RemoveDocumentUseCase{repo: repo, storage: storage, vector: vector}
}

func (uc *RemoveDocumentUseCase) Remove(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}

	for _, collection := range uc.vector.Collections() {
		if err := uc.vector.DeleteByDocument(ctx, collection, doc.ID); err != nil {
			return fmt.Errorf("delete chunks from %s: %w", collection, err)
		}
	}

	if doc.StoragePath != "" {
		if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
			return fmt.Errorf("remove stored payload: %w", err)
		}
	}

	if err := uc.repo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	return nil
}
