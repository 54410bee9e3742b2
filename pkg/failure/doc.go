// Package failure captures the raw records a load job could not parse or
// insert, one file per source under <jobdir>/failures/<run-timestamp>/.
//
// Each line of a failure file is one raw input record, preceded by a
// "# <reason>" header whenever the cause changes. Files are plain text in
// the source's own format, which is what lets a later run with
// --retry-failures read them back and re-ingest the records.
//
// Trackers are created once per source by the job context and closed as
// part of the shutdown sequence; a source with no failures leaves no file
// behind.
package failure
