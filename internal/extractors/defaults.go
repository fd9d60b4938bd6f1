package extractors

import (
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/extractors/docx"
	"github.com/custodia-labs/medreport/internal/extractors/ocr"
	"github.com/custodia-labs/medreport/internal/extractors/pdf"
	"github.com/custodia-labs/medreport/internal/extractors/plaintext"
)

// Default returns a registry with every built-in extractor.
func Default(cfg domain.OCRSettings) *Registry {
	return NewRegistry(
		plaintext.New(),
		docx.New(),
		pdf.New(),
		ocr.New(ocr.WithCommand(cfg.Command), ocr.WithLanguage(cfg.Language)),
	)
}
