// Package resource implements the write-side governance of a map.
//
// The Controller bundles two limits the writer consults before publishing:
//
//   - Publish rate: a token bucket that spaces out publishes, so a hot writer
//     does not make readers chase a new copy on every operation
//   - Pending threshold: the number of logged operations after which the
//     writer publishes on its own
//
// # Publish Rate
//
//	rc := resource.NewController(resource.Config{
//	    PublishesPerSec: 100,
//	    PublishBurst:    10,
//	})
//
//	if rc.AllowPublish() {
//	    // publish now
//	}
//
//	// or block until a token is available
//	if err := rc.WaitPublish(ctx); err != nil {
//	    return err
//	}
//
// # Pending Threshold
//
//	rc := resource.NewController(resource.Config{MaxPendingOps: 4096})
//	if rc.ShouldPublish(pending) {
//	    // publish now
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully: publishing is always
// allowed and never forced.
package resource
