// Package exim exports record collections to a password-protected archive
// and imports them back.
//
// An export writes each collection to its own parquet file, packs the files
// into an AES-256 zip, checks that the zip parses and streams it to the
// caller's writer. An import runs the same stages in reverse and merges the
// records into their stores using a MergeStrategy.
//
// Stages are chained with result.Pipe: the first failure stops the run and
// is returned unchanged. Temporary files live in a per-run directory that is
// removed however the run ends.
package exim
