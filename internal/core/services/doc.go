// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// ReportService runs an upload through validation, extraction,
// normalisation, chunking, retrieval, indexing, clinical analysis,
// recommendation and assembly. Retrieval failures degrade a report
// instead of failing it.
package services
