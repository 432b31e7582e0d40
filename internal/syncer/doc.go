// Package syncer reconciles the live snapshot with the replica tier.
//
// One Sync call compares the caller's snapshot against the newest replica
// and the last recorded sync time, then does exactly one of:
//
//	no replica yet            write current            ActionCreated
//	replica newer than current return replica data     ActionPulled
//	current newer than lastSync write current          ActionPushed
//	otherwise                  nothing                 ActionNone
//
// Divergence is resolved by whole-snapshot last-write-wins on lastModified.
// Sync never panics or returns an error past the coordinator; failures end
// in StateError with the cause on the Outcome. There is no internal retry.
package syncer
