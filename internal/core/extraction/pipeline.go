// Package extraction implements the two-stage classify-then-extract
// pipeline. Stage two's instruction and schema choice depend on stage
// one's output, so the calls are strictly sequential; a document
// classified "unknown" never reaches stage two.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/ports"
	"github.com/avelinsk/finpaper/internal/core/schema"
)

type Result struct {
	Classification domain.Classification
	Extracted      *domain.ExtractedData
	ModelID        string
}

type Pipeline struct {
	model    ports.StructuredModel
	registry *schema.Registry
	logger   *slog.Logger
}

func NewPipeline(model ports.StructuredModel, registry *schema.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		model:    model,
		registry: registry,
		logger:   logger,
	}
}

// Extract classifies the document and, unless it is unknown, extracts
// fields per the matching schema. Any model or validation failure
// propagates hard; retry policy belongs to the job scheduler, not here.
func (p *Pipeline) Extract(ctx context.Context, content ports.DocumentContent) (Result, error) {
	start := time.Now()
	modelID := p.model.ModelID()

	classification, err := p.classify(ctx, content)
	if err != nil {
		return Result{}, err
	}

	p.logger.Info("extraction.classified",
		"document_type", classification.DocumentType,
		"confidence", classification.Confidence,
		"model", modelID,
	)

	// Unknown short-circuits: no second model call is made.
	if !classification.DocumentType.Extractable() {
		return Result{Classification: classification, ModelID: modelID}, nil
	}

	extracted, err := p.extractTyped(ctx, content, classification.DocumentType)
	if err != nil {
		return Result{}, err
	}

	p.logger.Info("extraction.ok",
		"document_type", classification.DocumentType,
		"model", modelID,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return Result{
		Classification: classification,
		Extracted:      extracted,
		ModelID:        modelID,
	}, nil
}

func (p *Pipeline) classify(ctx context.Context, content ports.DocumentContent) (domain.Classification, error) {
	raw, err := p.model.GenerateStructured(ctx, routerSystemPrompt, classifyInstruction, &content, p.registry.RouterSchema())
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify document: %w", err)
	}
	classification, err := p.registry.ValidateRouter(raw)
	if err != nil {
		return domain.Classification{}, domain.WrapError(domain.ErrExtraction, "validate router output", err)
	}
	return classification, nil
}

// extractTyped issues the second model call. A failure here is a
// distinct failure mode and must never degrade to "unknown".
func (p *Pipeline) extractTyped(ctx context.Context, content ports.DocumentContent, t domain.DocumentType) (*domain.ExtractedData, error) {
	outputSchema, err := p.registry.ExtractionSchema(t)
	if err != nil {
		return nil, err
	}
	raw, err := p.model.GenerateStructured(ctx, extractionPrompts[t], extractInstruction, &content, outputSchema)
	if err != nil {
		return nil, fmt.Errorf("extract %s fields: %w", t, err)
	}
	extracted, err := p.registry.Validate(t, raw)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, fmt.Sprintf("validate %s output", t), err)
	}
	return extracted, nil
}
