package event

import (
	"fmt"
	"strconv"
	"time"

	"github.com/therealutkarshpriyadarshi/loginflow/pkg/pipeerr"
)

// timestampLayout is the canonical human-readable form on the output topic.
const timestampLayout = "2006-01-02 15:04:05"

// NormalizeTimestamp converts an epoch-seconds string to its canonical UTC
// form. A value that is not a parseable non-negative integer fails with
// InvalidTimestamp; the caller treats the event as malformed.
func NormalizeTimestamp(ts string) (string, error) {
	seconds, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", pipeerr.New(pipeerr.KindInvalidTimestamp, fmt.Errorf("not an integer: %q", ts))
	}
	if seconds < 0 {
		return "", pipeerr.New(pipeerr.KindInvalidTimestamp, fmt.Errorf("negative timestamp: %q", ts))
	}

	return time.Unix(seconds, 0).UTC().Format(timestampLayout), nil
}
