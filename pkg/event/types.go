package event

// RawEvent is a single user-login event as it arrives on the input topic.
// It is immutable once decoded; all downstream stages operate on this typed
// record, never on raw JSON maps.
type RawEvent struct {
	UserID     string `json:"user_id"`
	AppVersion string `json:"app_version"`
	DeviceType string `json:"device_type"`
	IP         string `json:"ip"`
	Locale     string `json:"locale"`
	DeviceID   string `json:"device_id"`
	Timestamp  string `json:"timestamp"` // unix epoch seconds, as a string
}

// ProcessedEvent is the enriched record published to the output topic.
// Field names and casing are part of the output contract. DeviceType and
// MostCommonDeviceType are always lowercased.
type ProcessedEvent struct {
	UserID                    string `json:"user_id"`
	AppVersion                string `json:"app_version"`
	TotalLoginsForVersion     int64  `json:"total_logins_for_version"`
	IP                        string `json:"ip"`
	SuspiciousLogin           bool   `json:"suspicious_login"`
	LogsFromMultipleLocations bool   `json:"logs_from_multiple_locations"`
	NormalizedTimestamp       string `json:"normalized_timestamp"`
	Locale                    string `json:"locale"`
	TotalLoginsFromLocale     int64  `json:"total_logins_from_locale"`
	DeviceID                  string `json:"device_id"`
	SharedDevice              bool   `json:"shared_device"`
	DeviceType                string `json:"device_type"`
	MostCommonDeviceType      string `json:"most_common_device_type"`
}
