// Package enrich assembles the output record from the raw event, the
// normalized timestamp, the aggregate snapshot and the anomaly flags.
// Pure assembly, no side effects.
package enrich

import (
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/aggregate"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/anomaly"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/event"
)

// Assemble builds the ProcessedEvent for one accepted input event.
func Assemble(raw *event.RawEvent, normalizedTimestamp string, snap aggregate.Snapshot, flags anomaly.Flags) *event.ProcessedEvent {
	return &event.ProcessedEvent{
		UserID:                    raw.UserID,
		AppVersion:                raw.AppVersion,
		TotalLoginsForVersion:     snap.VersionLogins,
		IP:                        raw.IP,
		SuspiciousLogin:           flags.SuspiciousLogin,
		LogsFromMultipleLocations: flags.LogsFromMultipleLocations,
		NormalizedTimestamp:       normalizedTimestamp,
		Locale:                    raw.Locale,
		TotalLoginsFromLocale:     snap.LocaleLogins,
		DeviceID:                  raw.DeviceID,
		SharedDevice:              flags.SharedDevice,
		DeviceType:                event.NormalizeDeviceType(raw.DeviceType),
		MostCommonDeviceType:      snap.MostCommonDeviceType,
	}
}
