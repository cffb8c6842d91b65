package enrich

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/loginflow/pkg/aggregate"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/anomaly"
	"github.com/therealutkarshpriyadarshi/loginflow/pkg/event"
)

func TestAssemble(t *testing.T) {
	raw := &event.RawEvent{
		UserID:     "u1",
		AppVersion: "2.3.0",
		DeviceType: "Android",
		IP:         "1.2.3.4",
		Locale:     "NC",
		DeviceID:   "d1",
		Timestamp:  "1711302636",
	}
	snap := aggregate.Snapshot{
		UserIPCount:          2,
		UserLocaleCount:      1,
		VersionLogins:        7,
		LocaleLogins:         3,
		DeviceUserCount:      1,
		MostCommonDeviceType: "android",
	}
	flags := anomaly.Flags{SuspiciousLogin: true}

	processed := Assemble(raw, "2024-03-24 17:50:36", snap, flags)

	assert.Equal(t, "u1", processed.UserID)
	assert.Equal(t, "2.3.0", processed.AppVersion)
	assert.Equal(t, int64(7), processed.TotalLoginsForVersion)
	assert.Equal(t, "1.2.3.4", processed.IP)
	assert.True(t, processed.SuspiciousLogin)
	assert.False(t, processed.LogsFromMultipleLocations)
	assert.Equal(t, "2024-03-24 17:50:36", processed.NormalizedTimestamp)
	assert.Equal(t, "NC", processed.Locale)
	assert.Equal(t, int64(3), processed.TotalLoginsFromLocale)
	assert.Equal(t, "d1", processed.DeviceID)
	assert.False(t, processed.SharedDevice)
	assert.Equal(t, "android", processed.DeviceType)
	assert.Equal(t, "android", processed.MostCommonDeviceType)
}

func TestAssemble_OutputContract(t *testing.T) {
	raw := &event.RawEvent{
		UserID:     "u1",
		AppVersion: "1.0",
		DeviceType: "iOS",
		IP:         "9.9.9.9",
		Locale:     "FR",
		DeviceID:   "d9",
		Timestamp:  "0",
	}

	processed := Assemble(raw, "1970-01-01 00:00:00", aggregate.Snapshot{
		VersionLogins:        1,
		LocaleLogins:         1,
		UserIPCount:          1,
		UserLocaleCount:      1,
		DeviceUserCount:      1,
		MostCommonDeviceType: "ios",
	}, anomaly.Flags{})

	data, err := json.Marshal(processed)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Every published field must be present, even when false or zero.
	for _, field := range []string{
		"user_id",
		"app_version",
		"total_logins_for_version",
		"ip",
		"suspicious_login",
		"logs_from_multiple_locations",
		"normalized_timestamp",
		"locale",
		"total_logins_from_locale",
		"device_id",
		"shared_device",
		"device_type",
		"most_common_device_type",
	} {
		assert.Contains(t, decoded, field)
	}

	assert.Equal(t, "ios", decoded["device_type"], "device type is lowercased on output")
	assert.Equal(t, false, decoded["suspicious_login"])
}
