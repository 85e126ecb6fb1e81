// Package resource implements the Controller that bounds shared resources
// across termdict readers and writers.
//
// The Controller manages three resource types:
//
//   - Memory: cached term blocks and in-flight field buffers (non-blocking, fail-fast)
//   - Build slots: how many fields are compiled concurrently
//   - Write bandwidth: token bucket for segment uploads
//
// # Memory Management
//
// AcquireMemory is non-blocking and returns ErrMemoryLimitExceeded if the
// limit would be exceeded; TryAcquireMemory is the boolean form used by the
// block cache, which simply skips caching when memory is short:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 256 << 20,
//	})
//	if err := rc.AcquireMemory(n); err != nil {
//	    // caller decides
//	}
//	defer rc.ReleaseMemory(n)
//
// # Build Slots
//
//	if err := rc.AcquireBuild(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBuild()
//
// # Write Throttling
//
//	w := resource.NewRateLimitedWriter(ctx, blob, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
