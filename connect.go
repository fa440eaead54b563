package godesk

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/godesk/internal/logging"
	"github.com/mlsorensen/godesk/pkg/desks/linak/comms"
)

// State is a step of the connection state machine.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateSelecting
	StateConnecting
	StateDiscoveringServices
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateSelecting:
		return "selecting"
	case StateConnecting:
		return "connecting"
	case StateDiscoveringServices:
		return "discovering-services"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Connect finds a desk and links to it. With an empty address the first desk found is used;
// otherwise only the desk with exactly that address is accepted.
//
// Link failures (timeout or transport error) restart the scan, up to opts.ConnectAttempts times,
// and the last failure is returned. A device that links but lacks the desk endpoints is never
// retried.
func Connect(ctx context.Context, central Central, address string, opts Options) (*Session, error) {
	c := &connector{
		central: central,
		address: address,
		opts:    opts.withDefaults(),
		log:     logging.Named("connect"),
	}
	return c.run(ctx)
}

type connector struct {
	central Central
	address string
	opts    Options
	log     *zap.Logger
	state   State
}

func (c *connector) transition(s State) {
	c.log.Debug("state transition", zap.Stringer("from", c.state), zap.Stringer("to", s))
	c.state = s
}

func (c *connector) fail(err error) (*Session, error) {
	c.transition(StateFailed)
	c.log.Error("Connection failed", zap.Error(err))
	return nil, err
}

func (c *connector) run(ctx context.Context) (*Session, error) {
	if err := c.central.Enable(); err != nil {
		return c.fail(newError(KindNoAdapter, StageScan, "could not enable bluetooth adapter", err))
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.ConnectAttempts; attempt++ {
		if attempt > 1 {
			c.log.Info("Connection retry", zap.Int("attempt", attempt), zap.Int("max_attempts", c.opts.ConnectAttempts))
			if err := sleepCtx(ctx, c.opts.RetryPause); err != nil {
				return c.fail(err)
			}
		}

		candidate, err := c.scanAndSelect(ctx)
		if err != nil {
			return c.fail(err)
		}

		if err := sleepCtx(ctx, c.opts.ScanSettle); err != nil {
			return c.fail(err)
		}

		session, err := c.link(ctx, candidate, attempt)
		if err == nil {
			c.transition(StateReady)
			c.log.Info("Desk ready", zap.String("address", candidate.ID), zap.Int("attempt", attempt))
			return session, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.releaseStale(candidate.Peripheral)
			return c.fail(ctxErr)
		}
		if !IsRetryable(err) {
			return c.fail(err)
		}

		c.log.Warn("Connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		lastErr = err

		if candidate.Peripheral.IsConnected() {
			c.log.Info("Disconnecting before retry...")
			c.releaseStale(candidate.Peripheral)
			if err := sleepCtx(ctx, c.opts.ReleasePause); err != nil {
				return c.fail(err)
			}
		}
	}

	return c.fail(lastErr)
}

// scanAndSelect covers the Scanning and Selecting states.
func (c *connector) scanAndSelect(ctx context.Context) (FoundDevice, error) {
	if c.address == "" {
		c.transition(StateScanning)
		candidates, err := discover(ctx, c.central, c.opts.FreshScanWindow, c.opts.Keywords, c.log)
		if err != nil {
			return FoundDevice{}, err
		}

		c.transition(StateSelecting)
		if len(candidates) == 0 {
			return FoundDevice{}, newError(KindNoCandidatesFound, StageSelect, "", nil)
		}
		c.log.Info("No desk address specified, using first available desk",
			zap.String("name", candidates[0].Name), zap.String("address", candidates[0].ID))
		return candidates[0], nil
	}

	for scan := 1; scan <= c.opts.KnownScanAttempts; scan++ {
		if scan > 1 {
			if err := sleepCtx(ctx, c.opts.RetryPause); err != nil {
				return FoundDevice{}, err
			}
		}

		c.transition(StateScanning)
		candidates, err := discover(ctx, c.central, c.opts.KnownScanWindow, c.opts.Keywords, c.log)
		if err != nil {
			return FoundDevice{}, err
		}

		c.transition(StateSelecting)
		for _, cand := range candidates {
			c.log.Debug("Checking peripheral", zap.String("address", cand.ID))
			if cand.ID == c.address {
				c.log.Info("Found matching desk", zap.String("address", cand.ID), zap.Int("scan", scan))
				return cand, nil
			}
		}
		c.log.Info("Desk not seen in scan", zap.String("address", c.address), zap.Int("scan", scan))
	}

	return FoundDevice{}, newError(KindDeviceNotFound, StageSelect,
		fmt.Sprintf("desk with address %s not found", c.address), nil).withAddress(c.address)
}

// link covers the Connecting and DiscoveringServices states.
func (c *connector) link(ctx context.Context, cand FoundDevice, attempt int) (*Session, error) {
	p := cand.Peripheral
	c.transition(StateConnecting)

	if !p.IsConnected() {
		c.log.Info("Establishing connection", zap.String("address", cand.ID), zap.Int("attempt", attempt))
		cctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
		err := p.Connect(cctx)
		cancel()
		if err != nil {
			if isTimeout(err) {
				return nil, newError(KindConnectTimeout, StageConnect,
					fmt.Sprintf("timeout connecting to desk (%s)", c.opts.ConnectTimeout), err).withAddress(cand.ID).retryable()
			}
			return nil, newError(KindConnectTransport, StageConnect, "failed to connect to desk", err).withAddress(cand.ID).retryable()
		}
	} else {
		c.log.Info("Desk already connected", zap.String("address", cand.ID))
	}

	c.transition(StateDiscoveringServices)
	dctx, cancel := context.WithTimeout(ctx, c.opts.DiscoverTimeout)
	chars, err := p.DiscoverCharacteristics(dctx, comms.ControlServiceUUID, comms.ControlCharUUID, comms.HeightCharUUID)
	cancel()
	if err != nil {
		c.releaseStale(p)
		return nil, newError(KindServiceDiscovery, StageDiscover, "failed to discover services", err).withAddress(cand.ID)
	}
	c.log.Info("Services discovered", zap.Int("characteristics", len(chars)))

	control := findCharacteristic(chars, comms.ControlCharUUID)
	height := findCharacteristic(chars, comms.HeightCharUUID)
	if control == nil || height == nil {
		missing := comms.ControlCharUUID
		if control != nil {
			missing = comms.HeightCharUUID
		}
		c.log.Error("Could not find desk characteristic",
			zap.String("uuid", missing.String()),
			zap.Strings("available", uuidStrings(chars)),
		)
		c.releaseStale(p)
		return nil, newError(KindMissingEndpoint, StageDiscover,
			fmt.Sprintf("could not find characteristic %s on desk", missing.String()), nil).withAddress(cand.ID)
	}

	return newSession(p, cand.Name, control, height, c.opts, logging.Named("desk")), nil
}

// releaseStale disconnects p, best-effort, under the teardown timeout.
func (c *connector) releaseStale(p Peripheral) {
	if !p.IsConnected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.TeardownTimeout)
	defer cancel()
	if err := p.Disconnect(ctx); err != nil {
		c.log.Warn("Failed to release link", zap.Error(err))
	}
}

func findCharacteristic(chars []Characteristic, uuid bluetooth.UUID) Characteristic {
	for _, ch := range chars {
		if ch.UUID() == uuid {
			return ch
		}
	}
	return nil
}

func uuidStrings(chars []Characteristic) []string {
	out := make([]string, 0, len(chars))
	for _, ch := range chars {
		out = append(out, ch.UUID().String())
	}
	return out
}
