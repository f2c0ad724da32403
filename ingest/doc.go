// Package ingest runs the fetch, parse, annotate, store pipeline for
// single feeds and fans it out concurrently across feed sets.
//
// Failure containment is the package's contract: every error in any step
// becomes a failed Outcome and a log line. Nothing crosses from one feed's
// task to a sibling or to the scheduler, including panics.
package ingest
