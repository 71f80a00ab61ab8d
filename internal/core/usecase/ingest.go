package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
	"github.com/velikanov/hybrid-query-engine/internal/core/ports"
)

// IngestDocumentUseCase accepts an upload, persists the raw bytes and
// metadata, and hands indexing off to the queue. The caller gets the
// document back in "uploaded" state; chunking happens asynchronously.
type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(repo ports.DocumentRepository, storage ports.ObjectStorage, queue ports.MessageQueue) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{repo: repo, storage: storage, queue: queue}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, filename, mimeType, category string, body io.Reader) (*domain.Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("filename is required"))
	}
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("empty body"))
	}
	if category != "" {
		if _, ok := categoryCollections[category]; !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("unknown category %q", category))
		}
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		MimeType:    mimeType,
		Category:    category,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc.StoragePath = doc.ID + filepath.Ext(filename)

	if err := uc.storage.Save(ctx, doc.StoragePath, body); err != nil {
		return nil, fmt.Errorf("save document payload: %w", err)
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}
	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		// the record stays in "uploaded" state and can be re-enqueued
		return nil, fmt.Errorf("enqueue document for indexing: %w", err)
	}
	return doc, nil
}

// GetDocumentUseCase reads document metadata and indexing state.
type GetDocumentUseCase struct {
	repo ports.DocumentRepository
}

func NewGetDocumentUseCase(repo ports.DocumentRepository) *GetDocumentUseCase {
	return &GetDocumentUseCase{repo: repo}
}

func (uc *GetDocumentUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return uc.repo.GetByID(ctx, id)
}
