// Package convert turns a stable CSV file into a JSON document. It covers
// input decoding, dialect detection, row parsing, serialization in array or
// line-delimited form, and the atomic write of the output file. The pipeline
// re-checks the source fingerprint right before reading so a file that moved
// underneath a job is retried instead of converted stale.
package convert
