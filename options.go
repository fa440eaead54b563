package godesk

import (
	"time"

	"github.com/mlsorensen/godesk/pkg/desks/linak/comms"
)

// Options holds the timings and bounds of the connection and movement state machines.
// The zero value is not usable; start from DefaultOptions.
type Options struct {
	// Keywords filter advertised names during discovery. Defaults to the Linak keywords.
	Keywords []string

	// KnownScanWindow and KnownScanAttempts apply when a desk address is already known.
	KnownScanWindow   time.Duration
	KnownScanAttempts int
	// FreshScanWindow applies to first-time setup, when any desk will do.
	FreshScanWindow time.Duration

	// ScanSettle is the pause between the end of a scan and the link request.
	ScanSettle time.Duration
	// ConnectAttempts bounds the scan-and-link attempts when linking fails.
	ConnectAttempts int
	ConnectTimeout  time.Duration
	DiscoverTimeout time.Duration
	// ReleasePause follows the release of a stale link before the next attempt.
	ReleasePause time.Duration
	// RetryPause precedes every rescan.
	RetryPause time.Duration

	// IOTimeout bounds each characteristic read or write.
	IOTimeout time.Duration
	// TeardownTimeout bounds the best-effort disconnect when a session is discarded.
	TeardownTimeout time.Duration

	SettleDelay     time.Duration
	PollInterval    time.Duration
	MoveTimeout     time.Duration
	ToleranceMM     uint16
	MaxReadFailures int
}

// DefaultOptions returns the timings used with real hardware.
func DefaultOptions() Options {
	return Options{
		Keywords:          comms.NameKeywords,
		KnownScanWindow:   5 * time.Second,
		KnownScanAttempts: 2,
		FreshScanWindow:   10 * time.Second,
		ScanSettle:        time.Second,
		ConnectAttempts:   3,
		ConnectTimeout:    15 * time.Second,
		DiscoverTimeout:   10 * time.Second,
		ReleasePause:      500 * time.Millisecond,
		RetryPause:        2 * time.Second,
		IOTimeout:         5 * time.Second,
		TeardownTimeout:   3 * time.Second,
		SettleDelay:       100 * time.Millisecond,
		PollInterval:      200 * time.Millisecond,
		MoveTimeout:       30 * time.Second,
		ToleranceMM:       5,
		MaxReadFailures:   5,
	}
}

// withDefaults fills unset fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.Keywords) == 0 {
		o.Keywords = d.Keywords
	}
	if o.KnownScanWindow <= 0 {
		o.KnownScanWindow = d.KnownScanWindow
	}
	if o.KnownScanAttempts <= 0 {
		o.KnownScanAttempts = d.KnownScanAttempts
	}
	if o.FreshScanWindow <= 0 {
		o.FreshScanWindow = d.FreshScanWindow
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = d.ConnectAttempts
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.DiscoverTimeout <= 0 {
		o.DiscoverTimeout = d.DiscoverTimeout
	}
	if o.IOTimeout <= 0 {
		o.IOTimeout = d.IOTimeout
	}
	if o.TeardownTimeout <= 0 {
		o.TeardownTimeout = d.TeardownTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.MoveTimeout <= 0 {
		o.MoveTimeout = d.MoveTimeout
	}
	if o.MaxReadFailures <= 0 {
		o.MaxReadFailures = d.MaxReadFailures
	}
	return o
}
