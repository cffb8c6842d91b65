package event

import "strings"

// mobileDeviceTypes is the set of device types the pipeline accepts.
// Anything else is dropped before the aggregator is touched.
var mobileDeviceTypes = map[string]struct{}{
	"android": {},
	"ios":     {},
}

// NormalizeDeviceType lowercases a device type for comparison and output.
func NormalizeDeviceType(deviceType string) string {
	return strings.ToLower(deviceType)
}

// IsMobile reports whether a device type (case-insensitive) is one the
// pipeline processes.
func IsMobile(deviceType string) bool {
	_, ok := mobileDeviceTypes[NormalizeDeviceType(deviceType)]
	return ok
}
