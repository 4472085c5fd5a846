// Package parquet exports the session log to Parquet files and reads
// such exports back.
//
// The package provides:
//   - SessionWriter/SessionReader for measure.Record rows
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
package parquet
