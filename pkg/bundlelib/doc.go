// Package bundlelib loads named, interdependent content bundles from a
// configurable origin under a fixed transport concurrency budget.
//
// A Manager first loads the platform manifest, then admits load requests
// as LoadOperations: a bundle plus its transitive dependencies, with each
// name rewritten to the variant the device needs. The manager loop hands
// eligible bundles to a Transporter while slots are free, retries failed
// transfers up to MaxAttempts and reports each operation's outcome once
// through its LoadStatus.
package bundlelib
