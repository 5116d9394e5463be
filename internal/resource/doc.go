// Package resource implements the Controller that bounds result memory and
// shard concurrency.
//
// Go cannot recover from a failed heap allocation, so every allocating stage
// reserves its bytes against a budget first. A reservation that does not fit
// is the "out of memory" outcome callers observe:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	if err := rc.Acquire("pair buffer", 16*1024); err != nil {
//	    // *AllocError wrapping ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(16 * 1024)
//
// Worker slots bound how many shards run at once across every call sharing
// the controller:
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
package resource
