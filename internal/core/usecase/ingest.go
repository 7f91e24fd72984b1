package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/ports"
)

// MaxFileSize matches the blob store bucket limit.
const MaxFileSize = 10 * 1024 * 1024

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

type IngestDocumentUseCase struct {
	repo      ports.DocumentRepository
	storage   ports.ObjectStorage
	queue     ports.JobQueue
	inspector ports.FileInspector
	logger    *slog.Logger
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.JobQueue,
	inspector ports.FileInspector,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestDocumentUseCase{
		repo:      repo,
		storage:   storage,
		queue:     queue,
		inspector: inspector,
		logger:    logger,
	}
}

// Upload stores the blob, creates a pending record, and dispatches a
// processing run with a fresh run id.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	organizationID, fileName, mimeType string,
	size int64,
	body io.Reader,
) (*domain.Document, error) {
	if organizationID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("organization id is required"))
	}
	if !allowedMimeTypes[mimeType] {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("unsupported mime type %q", mimeType))
	}
	if size > MaxFileSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("file exceeds %d bytes", MaxFileSize))
	}

	// Buffer for inspection; the size cap keeps this bounded.
	data, err := io.ReadAll(io.LimitReader(body, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("file exceeds %d bytes", MaxFileSize))
	}

	info, err := uc.inspector.Inspect(ctx, fileName, mimeType, data)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "inspect upload", err)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s_%s", organizationID, id, sanitizeFileName(fileName))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:             id,
		OrganizationID: organizationID,
		FileName:       fileName,
		FilePath:       storageKey,
		FileSize:       int64(len(data)),
		MimeType:       mimeType,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	runID := uuid.NewString()
	if err := uc.queue.PublishProcessRequest(ctx, doc.ID, runID); err != nil {
		return nil, fmt.Errorf("dispatch processing run: %w", err)
	}

	uc.logger.Info("ingest.accepted",
		"document_id", doc.ID,
		"organization_id", organizationID,
		"file_name", fileName,
		"mime_type", mimeType,
		"bytes", len(data),
		"pages", info.Pages,
		"run_id", runID,
	)
	return doc, nil
}

func sanitizeFileName(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
