package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

// ExtractionInput is what the clinical extractor works from.
type ExtractionInput struct {
	// DocumentID is recorded on detected conditions.
	DocumentID string

	// Text is the document's full normalised text.
	Text string

	// Context holds retrieved chunks from earlier documents. May be empty.
	Context []domain.SearchHit

	// ReportDate anchors relative follow-up cues.
	ReportDate time.Time
}

// ClinicalExtractor runs the condition detectors and field extractors.
type ClinicalExtractor interface {
	// Extract never fails on missing fields; absence is a valid state.
	// It only returns an error if ctx is done.
	Extract(ctx context.Context, in ExtractionInput) (*domain.Extraction, error)
}

// Recommender maps detected conditions to a merged recommendation bundle.
type Recommender interface {
	Recommend(conditions []domain.Condition) domain.Recommendation
}

// AssemblyInput carries everything the assembler merges into a report.
type AssemblyInput struct {
	Document        domain.Document
	Extraction      *domain.Extraction
	Recommendation  *domain.Recommendation
	Context         []domain.SearchHit
	RetrievalStatus domain.RetrievalStatus
}

// ReportAssembler validates pipeline output and builds the immutable report.
type ReportAssembler interface {
	// Assemble fails with domain.ErrAssembly if a required section is missing.
	Assemble(in AssemblyInput) (*domain.Report, error)
}
