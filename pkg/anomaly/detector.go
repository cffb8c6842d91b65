// Package anomaly derives boolean anomaly flags from aggregate snapshots.
// Detection is a pure function of the snapshot; all history lives in the
// aggregation store.
package anomaly

import "github.com/therealutkarshpriyadarshi/loginflow/pkg/aggregate"

// Flags are the anomaly indicators attached to an enriched event.
type Flags struct {
	// SuspiciousLogin is set when the user has been observed from more
	// than one distinct IP address.
	SuspiciousLogin bool
	// LogsFromMultipleLocations is set when the user has been observed
	// with more than one distinct locale.
	LogsFromMultipleLocations bool
	// SharedDevice is set when the device has been used by more than one
	// distinct user.
	SharedDevice bool
}

// Evaluate computes the flags for the event that produced the snapshot.
func Evaluate(snap aggregate.Snapshot) Flags {
	return Flags{
		SuspiciousLogin:           snap.UserIPCount > 1,
		LogsFromMultipleLocations: snap.UserLocaleCount > 1,
		SharedDevice:              snap.DeviceUserCount > 1,
	}
}
