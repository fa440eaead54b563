package godesk

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mlsorensen/godesk/internal/logging"
)

// FoundDevice is a desk candidate observed during a scan.
type FoundDevice struct {
	Name string
	ID   string
	RSSI int

	// Peripheral is the transport handle. A Session takes ownership of it on connect.
	Peripheral Peripheral
}

// MatchesKeywords reports whether name contains any keyword, ignoring case.
// Empty names never match.
func MatchesKeywords(name string, keywords []string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Scan enables the adapter, scans for duration and returns the desks observed, in discovery
// order. An empty result is not an error. Keywords default to the Linak name keywords.
func Scan(ctx context.Context, central Central, duration time.Duration, keywords ...string) ([]FoundDevice, error) {
	if err := central.Enable(); err != nil {
		return nil, newError(KindNoAdapter, StageScan, "could not enable bluetooth adapter", err)
	}
	return discover(ctx, central, duration, keywords, logging.Named("scan"))
}

// discover runs one fixed scan window on an enabled central.
func discover(ctx context.Context, central Central, duration time.Duration, keywords []string, log *zap.Logger) ([]FoundDevice, error) {
	if len(keywords) == 0 {
		keywords = DefaultOptions().Keywords
	}

	log.Info("Starting BLE scan", zap.Duration("window", duration), zap.Strings("keywords", keywords))
	if err := central.StartScan(); err != nil {
		return nil, newError(KindTransport, StageScan, "could not start scan", err)
	}

	timer := time.NewTimer(duration)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	observed := central.Peripherals()
	if err := central.StopScan(); err != nil {
		log.Warn("failed to stop scan cleanly", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := filterCandidates(observed, keywords)
	for _, d := range results {
		log.Info("Found potential desk", zap.String("name", d.Name), zap.String("address", d.ID))
	}
	log.Info("Scan finished", zap.Int("observed", len(observed)), zap.Int("matching", len(results)))
	return results, nil
}

func filterCandidates(observed []Peripheral, keywords []string) []FoundDevice {
	results := make([]FoundDevice, 0, len(observed))
	for _, p := range observed {
		name := p.LocalName()
		if !MatchesKeywords(name, keywords) {
			continue
		}
		results = append(results, FoundDevice{
			Name:       name,
			ID:         p.Address(),
			RSSI:       int(p.RSSI()),
			Peripheral: p,
		})
	}
	return results
}

// ScanStream returns a channel that streams matching desks as they are first observed
// and stops scanning when the context is canceled.
func ScanStream(ctx context.Context, central Central, keywords ...string) (<-chan FoundDevice, error) {
	if err := central.Enable(); err != nil {
		return nil, newError(KindNoAdapter, StageScan, "could not enable bluetooth adapter", err)
	}
	if len(keywords) == 0 {
		keywords = DefaultOptions().Keywords
	}
	if err := central.StartScan(); err != nil {
		return nil, newError(KindTransport, StageScan, "could not start scan", err)
	}

	deviceChan := make(chan FoundDevice)
	log := logging.Named("scan")

	go func() {
		defer close(deviceChan)
		defer func() {
			if err := central.StopScan(); err != nil {
				log.Warn("failed to stop scan cleanly", zap.Error(err))
			}
		}()

		seen := make(map[string]bool)
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, d := range filterCandidates(central.Peripherals(), keywords) {
					if seen[d.ID] {
						continue
					}
					seen[d.ID] = true
					select {
					case deviceChan <- d:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return deviceChan, nil
}
