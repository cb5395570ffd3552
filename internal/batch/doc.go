// Package batch orchestrates metadata fetching and preview generation for a
// set of named assets.
//
// A run goes through four steps:
//
//  1. Selection consults the availability index and picks the assets the
//     requested Mode asks for.
//  2. The scheduler splits the selection into chunks of BatchSize and each
//     chunk into sub-groups of MaxConcurrency. A sub-group's pipelines start
//     together, staggered by StaggerDelay, and are awaited together.
//  3. Each item pipeline fetches metadata with retry, filters media, and
//     generates a preview with retry. It always yields one ItemOutcome.
//  4. The aggregator folds outcomes into the RunReport after every sub-group
//     and writes placeholders for items that had no usable media.
//
// Cancellation is cooperative. Runner.Cancel (or the reporter's external
// flag, or the run context) stops new chunks and sub-groups from starting;
// work already in flight settles and is still aggregated. Placeholder writes
// for settled outcomes are not skipped on cancellation, so a later run does
// not fetch those assets again.
//
// Collaborators (catalog, media processor, storage, availability index) are
// injected through the interfaces in interfaces.go.
package batch
