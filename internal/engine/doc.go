// Package engine provides the execution plane orchestrator. It couples an
// admission-controlled worker pool, per-execution deadlines, and a
// topic-keyed event bus that fans log events out to streaming subscribers,
// and drives the configured sandbox runner to produce a complete result.
package engine
