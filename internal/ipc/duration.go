package ipc

import "time"

// secondsToDuration turns a config.Config.IdleTimeoutSeconds value
// into a time.Duration, preserving the "0 means disabled" convention
// through to idle.Timer.
func secondsToDuration(seconds uint) time.Duration {
	return time.Duration(seconds) * time.Second
}
