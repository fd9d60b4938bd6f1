// Package ocr extracts text from scanned images with the tesseract CLI.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

var _ driven.TextExtractor = (*Extractor)(nil)

// ErrEngineNotFound is returned when the OCR binary is not installed.
var ErrEngineNotFound = errors.New("ocr engine unavailable: tesseract not found in PATH")

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Extractor runs tesseract over an image written to a temporary file.
type Extractor struct {
	command  string
	language string
	runner   CommandRunner
}

// Option configures the extractor.
type Option func(*Extractor)

// WithCommand sets the tesseract executable.
func WithCommand(command string) Option {
	return func(e *Extractor) {
		if command != "" {
			e.command = command
		}
	}
}

// WithLanguage sets the tesseract language code.
func WithLanguage(lang string) Option {
	return func(e *Extractor) {
		if lang != "" {
			e.language = lang
		}
	}
}

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) Option {
	return func(e *Extractor) {
		e.runner = r
	}
}

// New creates an OCR extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{command: "tesseract", language: "eng", runner: execRunner{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Formats returns the handled formats.
func (e *Extractor) Formats() []domain.Format {
	return []domain.Format{domain.FormatImage}
}

// Available reports whether the OCR engine can be found.
func (e *Extractor) Available() error {
	if _, err := e.runner.LookPath(e.command); err != nil {
		return ErrEngineNotFound
	}
	return nil
}

// Extract writes the image to a temporary file and returns tesseract's stdout.
func (e *Extractor) Extract(ctx context.Context, upload domain.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := e.Available(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	dir, err := os.MkdirTemp("", "medreport-ocr-*")
	if err != nil {
		return "", fmt.Errorf("%w: creating temp dir: %v", domain.ErrExtraction, err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "input"+strings.ToLower(filepath.Ext(upload.Filename)))
	if err := os.WriteFile(path, upload.Content, 0o600); err != nil {
		return "", fmt.Errorf("%w: writing image: %v", domain.ErrExtraction, err)
	}

	out, err := e.runner.Run(ctx, e.command, path, "stdout", "-l", e.language)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: tesseract failed on %s: %v", domain.ErrExtraction, upload.Filename, err)
	}
	return string(out), nil
}
