// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - TextExtractor / ExtractorRegistry: Decode uploads into raw text
//   - TextNormaliser: Canonicalise and validate raw text
//   - PostProcessorPipeline: Split documents into chunks
//   - ClinicalExtractor: Detect conditions, demographics, findings, follow-up
//   - Recommender: Build medication, diet and recovery bundles
//   - ReportAssembler: Validate and assemble the final report
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - VectorIndex: Embedding record storage/search. Without it, reports carry no context.
//   - EmbeddingService: Generates vectors. Without it, VectorIndex is also disabled.
//   - ReportStore: Report history. Without it, reports are not kept.
//   - ProgressSink: Stage notifications for UIs.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or postprocessor package
package driven
