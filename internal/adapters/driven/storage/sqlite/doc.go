// Package sqlite provides the persistent SQLite implementation of the
// vector index and report history ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. A single database file serves both interfaces:
//
//   - VectorIndex: Embedding records with brute-force cosine search
//   - ReportStore: Assembled report history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.medreport/data/medreport.db
//
// # Atomicity
//
// A document's records are replaced inside one transaction, so searches never
// observe a partial record set and a cancelled Store leaves the previous
// records in place.
package sqlite
