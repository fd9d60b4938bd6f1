package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medreport/internal/clinical/assembler"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// defaultSearchLimit is used when search_context is called without a limit.
const defaultSearchLimit = 5

// SummarizeInput is the input schema for the summarize_report tool.
type SummarizeInput struct {
	Text     string `json:"text" jsonschema:"the full text of the medical report"`
	Filename string `json:"filename,omitempty" jsonschema:"a name for the document (default report.txt)"`
	FollowUp string `json:"follow_up,omitempty" jsonschema:"follow-up date to record instead of the one in the text (YYYY-MM-DD)"`
}

// ProcessFileInput is the input schema for the process_file tool.
type ProcessFileInput struct {
	Path     string `json:"path" jsonschema:"path to a PDF, DOCX, TXT or image file on the local machine"`
	FollowUp string `json:"follow_up,omitempty" jsonschema:"follow-up date to record instead of the one in the file (YYYY-MM-DD)"`
}

// GetReportInput is the input schema for the get_report tool.
type GetReportInput struct {
	DocumentID string `json:"document_id" jsonschema:"the id of a previously processed document"`
}

// SearchInput is the input schema for the search_context tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to find in previously processed documents"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

// ReportOutput is the output schema for tools that return a report.
type ReportOutput struct {
	DocumentID          string             `json:"document_id"`
	Filename            string             `json:"filename"`
	Timestamp           string             `json:"timestamp"`
	Name                string             `json:"name"`
	Age                 string             `json:"age"`
	Gender              string             `json:"gender"`
	Findings            []string           `json:"findings"`
	Conditions          []string           `json:"conditions"`
	Medications         []MedicationOutput `json:"medications"`
	Prescribed          []MedicationOutput `json:"prescribed_medications"`
	RecoveryEstimate    string             `json:"recovery_estimate"`
	DietEat             []string           `json:"diet_eat"`
	DietAvoid           []string           `json:"diet_avoid"`
	FollowUpDate        string             `json:"follow_up_date,omitempty"`
	FollowUpCue         string             `json:"follow_up_cue,omitempty"`
	ProcessingTime      float64            `json:"processing_time"`
	RetrievalStatus     string             `json:"retrieval_status"`
	RetrievalProvenance []string           `json:"retrieval_provenance"`
	Summary             string             `json:"summary"`
}

// MedicationOutput represents a suggested or prescribed medication.
type MedicationOutput struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
	Notes  string `json:"notes,omitempty"`
}

// SearchOutput is the output schema for the search_context tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize_report",
		Description: "Analyse the text of a medical report and return a structured clinical summary",
	}, s.handleSummarize)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_file",
		Description: "Analyse a medical report file (PDF, DOCX, TXT or image) and return a structured clinical summary",
	}, s.handleProcessFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_report",
		Description: "Fetch a previously generated report by document id",
	}, s.handleGetReport)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_context",
		Description: "Search previously processed medical documents",
	}, s.handleSearch)
}

// handleSummarize handles the summarize_report tool invocation.
func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SummarizeInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	filename := input.Filename
	if filename == "" {
		filename = "report.txt"
	}
	opts, err := processOptions(input.FollowUp)
	if err != nil {
		return nil, ReportOutput{}, err
	}

	report, err := s.ports.Reports.ProcessText(ctx, domain.RawText{
		Text:     input.Text,
		Format:   domain.FormatText,
		Filename: filename,
	}, opts...)
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return reportResult(report)
}

// handleProcessFile handles the process_file tool invocation.
func (s *Server) handleProcessFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProcessFileInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	if input.Path == "" {
		return nil, ReportOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
	opts, err := processOptions(input.FollowUp)
	if err != nil {
		return nil, ReportOutput{}, err
	}

	content, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, ReportOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}

	report, err := s.ports.Reports.Process(ctx, domain.Upload{
		Filename: filepath.Base(input.Path),
		Content:  content,
	}, opts...)
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return reportResult(report)
}

// processOptions turns the optional follow-up argument into run options.
func processOptions(followUp string) ([]driving.ProcessOption, error) {
	if followUp == "" {
		return nil, nil
	}
	date, err := domain.ParseDate(followUp, time.Local)
	if err != nil {
		return nil, err
	}
	return []driving.ProcessOption{driving.WithFollowUp(date)}, nil
}

// handleGetReport handles the get_report tool invocation.
func (s *Server) handleGetReport(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetReportInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	report, err := s.ports.Reports.Get(ctx, input.DocumentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ReportOutput{}, fmt.Errorf("no report for document %q", input.DocumentID)
	}
	if err != nil {
		return nil, ReportOutput{}, fmt.Errorf("getting report: %w", err)
	}
	return reportResult(report)
}

// handleSearch handles the search_context tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if s.ports.Context == nil {
		return nil, SearchOutput{}, fmt.Errorf("%w: context search is not configured", domain.ErrIndexUnavailable)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits, err := s.ports.Context.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i, hit := range hits {
		output.Results[i] = SearchResultOutput{
			DocumentID: hit.Record.DocumentID,
			Filename:   hit.Record.Filename,
			ChunkID:    hit.Record.ChunkID,
			Score:      hit.Score,
			Content:    hit.Record.Content,
		}
	}

	return nil, output, nil
}

// reportResult converts a report into tool output with a readable text block.
func reportResult(report *domain.Report) (*mcp.CallToolResult, ReportOutput, error) {
	output := toReportOutput(report)

	var buf bytes.Buffer
	if err := assembler.Render(&buf, report); err != nil {
		return nil, ReportOutput{}, fmt.Errorf("rendering report: %w", err)
	}
	output.Summary = buf.String()

	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: output.Summary}},
	}
	return result, output, nil
}

// toReportOutput flattens a report. Slices are never nil.
func toReportOutput(r *domain.Report) ReportOutput {
	out := ReportOutput{
		DocumentID:          r.DocumentID,
		Filename:            r.Filename,
		Timestamp:           r.Timestamp.Format(time.RFC3339),
		Name:                orUnknown(r.Demographics.Name),
		Age:                 domain.Unknown,
		Gender:              orUnknown(r.Demographics.Gender),
		Findings:            nonNil(r.Findings),
		Conditions:          nonNil(r.ConditionLabels()),
		Medications:         make([]MedicationOutput, 0, len(r.Medications)),
		Prescribed:          make([]MedicationOutput, 0, len(r.Prescribed)),
		RecoveryEstimate:    r.RecoveryEstimate.String(),
		DietEat:             nonNil(r.Diet.Eat),
		DietAvoid:           nonNil(r.Diet.Avoid),
		RetrievalStatus:     string(r.RetrievalStatus),
		RetrievalProvenance: nonNil(r.RetrievalProvenance),
		ProcessingTime:      r.ProcessingTime,
	}
	if r.Demographics.HasAge() {
		out.Age = fmt.Sprint(*r.Demographics.Age)
	}
	for _, m := range r.Medications {
		out.Medications = append(out.Medications, MedicationOutput{Name: m.Name, Dosage: m.Dosage, Notes: m.Notes})
	}
	for _, m := range r.Prescribed {
		out.Prescribed = append(out.Prescribed, MedicationOutput{Name: m.Name, Dosage: m.Dosage, Notes: m.Frequency})
	}
	if r.FollowUpDate != nil {
		out.FollowUpDate = r.FollowUpDate.Format(time.DateOnly)
		out.FollowUpCue = r.FollowUpCue
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return domain.Unknown
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
