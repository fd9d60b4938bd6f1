package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
	"github.com/custodia-labs/medreport/internal/logger"
)

// Ensure ReportService implements the interface.
var _ driving.ReportService = (*ReportService)(nil)

// Default pipeline settings.
const (
	DefaultTopK       = 5
	DefaultQueryChars = 500
	DefaultWorkers    = 4
)

// documentNamespace scopes document IDs derived from content hashes.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://medreport.local/documents"))

// DocumentID returns the stable ID of a document with the given content hash.
func DocumentID(contentHash string) string {
	return uuid.NewSHA1(documentNamespace, []byte(contentHash)).String()
}

// ReportDeps holds the collaborators of the report pipeline.
// Indexer, Reports and Progress are optional.
type ReportDeps struct {
	Extractors  driven.ExtractorRegistry
	Normaliser  driven.TextNormaliser
	Chunker     driven.PostProcessorPipeline
	Indexer     *Indexer
	Extractor   driven.ClinicalExtractor
	Recommender driven.Recommender
	Assembler   driven.ReportAssembler
	Reports     driven.ReportStore
	Progress    driven.ProgressSink
}

// validate checks that the required collaborators are present.
func (d ReportDeps) validate() error {
	switch {
	case d.Normaliser == nil:
		return fmt.Errorf("%w: normaliser is required", domain.ErrInvalidInput)
	case d.Chunker == nil:
		return fmt.Errorf("%w: chunking pipeline is required", domain.ErrInvalidInput)
	case d.Extractor == nil:
		return fmt.Errorf("%w: clinical extractor is required", domain.ErrInvalidInput)
	case d.Recommender == nil:
		return fmt.Errorf("%w: recommender is required", domain.ErrInvalidInput)
	case d.Assembler == nil:
		return fmt.Errorf("%w: assembler is required", domain.ErrInvalidInput)
	}
	return nil
}

// ReportOption configures a ReportService.
type ReportOption func(*ReportService)

// WithTopK sets how many context chunks are retrieved per document.
func WithTopK(k int) ReportOption {
	return func(s *ReportService) {
		if k >= 0 {
			s.topK = k
		}
	}
}

// WithQueryChars sets how much of the document text forms the retrieval query.
func WithQueryChars(n int) ReportOption {
	return func(s *ReportService) {
		if n > 0 {
			s.queryChars = n
		}
	}
}

// WithWorkers bounds batch concurrency.
func WithWorkers(n int) ReportOption {
	return func(s *ReportService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMaxFileBytes sets the upload size ceiling. Zero disables the check.
func WithMaxFileBytes(n int64) ReportOption {
	return func(s *ReportService) {
		if n >= 0 {
			s.maxFileBytes = n
		}
	}
}

// WithClock replaces the time source used for ingestion timestamps.
func WithClock(now func() time.Time) ReportOption {
	return func(s *ReportService) {
		if now != nil {
			s.now = now
		}
	}
}

// ReportService runs uploads through the clinical document pipeline.
type ReportService struct {
	deps         ReportDeps
	topK         int
	queryChars   int
	workers      int
	maxFileBytes int64
	now          func() time.Time
}

// NewReportService creates a report service.
func NewReportService(deps ReportDeps, opts ...ReportOption) (*ReportService, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	s := &ReportService{
		deps:       deps,
		topK:       DefaultTopK,
		queryChars: DefaultQueryChars,
		workers:    DefaultWorkers,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// run tracks one document through the stages.
type run struct {
	svc        *ReportService
	sink       driven.ProgressSink
	followUp   *time.Time
	documentID string
	filename   string
	started    time.Time
}

func (s *ReportService) newRun(filename string, opts []driving.ProcessOption) *run {
	o := driving.ApplyProcessOptions(opts...)
	return &run{svc: s, sink: o.Progress, followUp: o.FollowUp, filename: filename, started: s.now()}
}

func (r *run) emit(stage domain.Stage, status domain.StageStatus, message string) {
	logger.Stage(r.documentID, string(stage), string(status))
	event := domain.ProgressEvent{
		DocumentID: r.documentID,
		Filename:   r.filename,
		Stage:      stage,
		Status:     status,
		Message:    message,
		At:         r.svc.now(),
	}
	if r.svc.deps.Progress != nil {
		r.svc.deps.Progress.Emit(event)
	}
	if r.sink != nil {
		r.sink.Emit(event)
	}
}

func (r *run) start(stage domain.Stage) {
	r.emit(stage, domain.StatusStarted, "")
}

func (r *run) done(stage domain.Stage, message string) {
	r.emit(stage, domain.StatusCompleted, message)
}

func (r *run) degrade(stage domain.Stage, err error) {
	logger.Warn("%s %s degraded: %v", r.filename, stage, err)
	r.emit(stage, domain.StatusDegraded, err.Error())
}

// fail emits a failure event and returns the error a caller sees.
func (r *run) fail(stage domain.Stage, err error) error {
	r.emit(stage, domain.StatusFailed, err.Error())
	logger.Debug("%s failed at %s: %v", r.filename, stage, err)
	return &domain.StageError{Stage: stage, DocumentID: r.documentID, Filename: r.filename, Err: err}
}

// checkpoint aborts the run if ctx is done.
func (r *run) checkpoint(ctx context.Context, stage domain.Stage) error {
	if err := ctx.Err(); err != nil {
		return r.fail(stage, err)
	}
	return nil
}

// Process extracts text from an upload and runs the pipeline on it.
func (s *ReportService) Process(ctx context.Context, upload domain.Upload, opts ...driving.ProcessOption) (*domain.Report, error) {
	r := s.newRun(upload.Filename, opts)
	logger.Section("Processing " + upload.Filename)

	r.start(domain.StageValidating)
	format, ok := domain.FormatFromFilename(upload.Filename)
	if !ok {
		return nil, r.fail(domain.StageValidating,
			fmt.Errorf("%w: unsupported file type %q", domain.ErrValidation, upload.Filename))
	}
	if err := s.checkSize(upload.Filename, int64(len(upload.Content))); err != nil {
		return nil, r.fail(domain.StageValidating, err)
	}
	if len(upload.Content) == 0 {
		return nil, r.fail(domain.StageValidating,
			fmt.Errorf("%w: %s is empty", domain.ErrValidation, upload.Filename))
	}
	r.done(domain.StageValidating, string(format))

	if err := r.checkpoint(ctx, domain.StageExtracting); err != nil {
		return nil, err
	}
	r.start(domain.StageExtracting)
	text, err := s.extract(ctx, format, upload)
	if err != nil {
		if ctx.Err() != nil {
			return nil, r.fail(domain.StageExtracting, ctx.Err())
		}
		return nil, r.fail(domain.StageExtracting, err)
	}
	r.done(domain.StageExtracting, fmt.Sprintf("%d characters", utf8.RuneCountInString(text)))

	return s.runPipeline(ctx, r, domain.RawText{
		Text:      text,
		Format:    format,
		Filename:  upload.Filename,
		SizeBytes: int64(len(upload.Content)),
	})
}

func (s *ReportService) extract(ctx context.Context, format domain.Format, upload domain.Upload) (string, error) {
	if s.deps.Extractors == nil {
		return "", fmt.Errorf("%w: no extractor registry configured", domain.ErrExtraction)
	}
	extractor, err := s.deps.Extractors.For(format)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	text, err := extractor.Extract(ctx, upload)
	if err != nil {
		if errors.Is(err, domain.ErrExtraction) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	return text, nil
}

// ProcessText runs the pipeline on already extracted text.
func (s *ReportService) ProcessText(ctx context.Context, raw domain.RawText, opts ...driving.ProcessOption) (*domain.Report, error) {
	r := s.newRun(raw.Filename, opts)
	logger.Section("Processing " + raw.Filename)

	r.start(domain.StageValidating)
	if raw.Format == "" {
		raw.Format = domain.FormatText
	}
	if !raw.Format.IsValid() {
		return nil, r.fail(domain.StageValidating,
			fmt.Errorf("%w: unsupported format %q", domain.ErrValidation, raw.Format))
	}
	if raw.SizeBytes == 0 {
		raw.SizeBytes = int64(len(raw.Text))
	}
	if err := s.checkSize(raw.Filename, raw.SizeBytes); err != nil {
		return nil, r.fail(domain.StageValidating, err)
	}
	r.done(domain.StageValidating, string(raw.Format))

	return s.runPipeline(ctx, r, raw)
}

func (s *ReportService) checkSize(filename string, size int64) error {
	if s.maxFileBytes > 0 && size > s.maxFileBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d bytes", domain.ErrValidation, filename, size, s.maxFileBytes)
	}
	return nil
}

// runPipeline executes the stages from normalising onwards.
func (s *ReportService) runPipeline(ctx context.Context, r *run, raw domain.RawText) (*domain.Report, error) {
	// Normalising
	if err := r.checkpoint(ctx, domain.StageNormalising); err != nil {
		return nil, err
	}
	r.start(domain.StageNormalising)
	normalised, err := s.deps.Normaliser.Normalise(raw)
	if err != nil {
		return nil, r.fail(domain.StageNormalising, err)
	}
	doc := domain.Document{
		ID:          DocumentID(normalised.Hash),
		Filename:    raw.Filename,
		Format:      raw.Format,
		IngestedAt:  s.now(),
		Content:     normalised.Text,
		ContentHash: normalised.Hash,
		SizeBytes:   raw.SizeBytes,
	}
	r.documentID = doc.ID
	r.done(domain.StageNormalising, "")

	// Chunking
	if err := r.checkpoint(ctx, domain.StageChunking); err != nil {
		return nil, err
	}
	r.start(domain.StageChunking)
	chunks, err := s.deps.Chunker.Process(ctx, &doc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, r.fail(domain.StageChunking, ctx.Err())
		}
		if !errors.Is(err, domain.ErrChunking) {
			err = fmt.Errorf("%w: %w", domain.ErrChunking, err)
		}
		return nil, r.fail(domain.StageChunking, err)
	}
	r.done(domain.StageChunking, fmt.Sprintf("%d chunks", len(chunks)))

	// Retrieving
	if err := r.checkpoint(ctx, domain.StageRetrieving); err != nil {
		return nil, err
	}
	hits, status, err := s.retrieve(ctx, r, doc)
	if err != nil {
		return nil, err
	}

	// Indexing
	if err := r.checkpoint(ctx, domain.StageIndexing); err != nil {
		return nil, err
	}
	if err := s.index(ctx, r, doc, chunks); err != nil {
		return nil, err
	}

	// Analysing
	if err := r.checkpoint(ctx, domain.StageAnalysing); err != nil {
		return nil, err
	}
	r.start(domain.StageAnalysing)
	extraction, err := s.deps.Extractor.Extract(ctx, driven.ExtractionInput{
		DocumentID: doc.ID,
		Text:       doc.Content,
		Context:    hits,
		ReportDate: doc.IngestedAt,
	})
	if err != nil {
		return nil, r.fail(domain.StageAnalysing, err)
	}
	var conditions []domain.Condition
	if extraction != nil {
		conditions = extraction.Conditions
	}
	r.done(domain.StageAnalysing, fmt.Sprintf("%d conditions", len(conditions)))

	// Recommending
	if err := r.checkpoint(ctx, domain.StageRecommending); err != nil {
		return nil, err
	}
	r.start(domain.StageRecommending)
	recommendation := s.deps.Recommender.Recommend(conditions)
	r.done(domain.StageRecommending, "")

	// Assembling
	if err := r.checkpoint(ctx, domain.StageAssembling); err != nil {
		return nil, err
	}
	r.start(domain.StageAssembling)
	report, err := s.deps.Assembler.Assemble(driven.AssemblyInput{
		Document:        doc,
		Extraction:      extraction,
		Recommendation:  &recommendation,
		Context:         hits,
		RetrievalStatus: status,
	})
	if err != nil {
		return nil, r.fail(domain.StageAssembling, err)
	}
	if r.followUp != nil {
		date := *r.followUp
		report.FollowUpDate = &date
		report.FollowUpCue = domain.FollowUpUserCue
	}
	report.ProcessingTime = s.now().Sub(r.started).Seconds()
	r.done(domain.StageAssembling, "")

	// Saving
	s.save(ctx, r, report)

	r.done(domain.StageComplete, "")
	return report, nil
}

// retrieve looks up context from earlier documents. Only cancellation is fatal.
func (s *ReportService) retrieve(ctx context.Context, r *run, doc domain.Document) ([]domain.SearchHit, domain.RetrievalStatus, error) {
	r.start(domain.StageRetrieving)
	if !s.deps.Indexer.Enabled() {
		r.done(domain.StageRetrieving, "retrieval disabled")
		return nil, domain.RetrievalDisabled, nil
	}

	hits, err := s.deps.Indexer.Search(ctx, truncateRunes(doc.Content, s.queryChars), domain.SearchOptions{
		K:                 s.topK,
		ExcludeDocumentID: doc.ID,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", r.fail(domain.StageRetrieving, ctx.Err())
		}
		r.degrade(domain.StageRetrieving, err)
		return nil, domain.RetrievalDegraded, nil
	}
	r.done(domain.StageRetrieving, fmt.Sprintf("%d related chunks", len(hits)))
	return hits, domain.RetrievalOK, nil
}

// index stores the document's chunks for future retrieval. Only
// cancellation is fatal.
func (s *ReportService) index(ctx context.Context, r *run, doc domain.Document, chunks []domain.Chunk) error {
	r.start(domain.StageIndexing)
	if !s.deps.Indexer.Enabled() {
		r.done(domain.StageIndexing, "retrieval disabled")
		return nil
	}
	if err := s.deps.Indexer.EmbedAndStore(ctx, doc, chunks); err != nil {
		if ctx.Err() != nil {
			return r.fail(domain.StageIndexing, ctx.Err())
		}
		r.degrade(domain.StageIndexing, err)
		return nil
	}
	r.done(domain.StageIndexing, fmt.Sprintf("%d chunks", len(chunks)))
	return nil
}

// save records the report in history. Failures only warn.
func (s *ReportService) save(ctx context.Context, r *run, report *domain.Report) {
	r.start(domain.StageSaving)
	if s.deps.Reports == nil {
		r.done(domain.StageSaving, "history disabled")
		return
	}
	if err := s.deps.Reports.Save(ctx, report); err != nil {
		r.degrade(domain.StageSaving, err)
		return
	}
	r.done(domain.StageSaving, "")
}

// ProcessBatch processes uploads concurrently, bounded by the worker count.
func (s *ReportService) ProcessBatch(ctx context.Context, uploads []domain.Upload, opts ...driving.ProcessOption) []domain.BatchResult {
	results := make([]domain.BatchResult, len(uploads))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, upload := range uploads {
		g.Go(func() error {
			report, err := s.Process(ctx, upload, opts...)
			results[i] = domain.BatchResult{Filename: upload.Filename, Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Get returns a stored report.
func (s *ReportService) Get(ctx context.Context, documentID string) (*domain.Report, error) {
	if s.deps.Reports == nil {
		return nil, domain.ErrNotFound
	}
	return s.deps.Reports.Get(ctx, documentID)
}

// List returns report history, most recent first.
func (s *ReportService) List(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	if s.deps.Reports == nil {
		return []domain.ReportSummary{}, nil
	}
	return s.deps.Reports.List(ctx, limit)
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
