// Package domain defines the core business entities for medreport.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded report after text normalisation
//   - Chunk: An overlapping segment of a document, the unit of retrieval
//   - EmbeddingRecord: A stored chunk vector owned by the index
//   - Extraction: What the clinical detectors found in a document
//   - Recommendation: The merged medication, diet and recovery bundle
//   - Report: The immutable, assembled output for one document
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
