package godesk_test

import (
	"time"

	"github.com/mlsorensen/godesk"
)

// fastOptions shrinks every wait so the state machines run in milliseconds.
func fastOptions() godesk.Options {
	o := godesk.DefaultOptions()
	o.KnownScanWindow = 5 * time.Millisecond
	o.FreshScanWindow = 5 * time.Millisecond
	o.ScanSettle = 0
	o.RetryPause = time.Millisecond
	o.ReleasePause = time.Millisecond
	o.ConnectTimeout = 50 * time.Millisecond
	o.DiscoverTimeout = 50 * time.Millisecond
	o.IOTimeout = 50 * time.Millisecond
	o.TeardownTimeout = 50 * time.Millisecond
	o.SettleDelay = time.Millisecond
	o.PollInterval = time.Millisecond
	o.MoveTimeout = 5 * time.Second
	return o
}
