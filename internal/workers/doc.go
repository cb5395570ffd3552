/*
Package workers sizes the goroutine pools used for availability checks and
asset-tree walks.

Sizes are derived from GOMAXPROCS rather than runtime.NumCPU so that container
CPU limits are respected:

	checks := workers.ForIO(16)  // 2 per CPU, at most 16
	walkers := workers.ForCPU(8) // 1 per CPU, at most 8

# Environment Variable Override

PREVIEW_WORKERS forces a fixed count for every helper (still capped by the
helper's limit):

	PREVIEW_WORKERS=4 fetchpreviews run --mode missing

The batch scheduler itself does not use this package: its concurrency is
governed by RunConfig.MaxConcurrency so that request pacing against the
remote catalog stays predictable.
*/
package workers
