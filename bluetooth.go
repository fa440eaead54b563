package godesk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/godesk/internal/logging"
)

// BTAdapter is the system Bluetooth adapter used by NewBluetoothCentral.
var BTAdapter = bluetooth.DefaultAdapter

var (
	enableMu sync.Mutex
	enabled  bool
)

// TryEnableAdapter enables BTAdapter once. A failed attempt may be retried later.
func TryEnableAdapter() error {
	enableMu.Lock()
	defer enableMu.Unlock()

	if enabled {
		return nil
	}
	logging.Debug("Enabling Bluetooth adapter...")
	if err := BTAdapter.Enable(); err != nil {
		return err
	}
	enabled = true
	return nil
}

// readBufferSize covers the default ATT MTU payload.
const readBufferSize = 64

// runWithContext bounds a blocking driver call by ctx. The call keeps running in the
// background if ctx expires first; its result is then discarded.
func runWithContext(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// linkGuard serializes link requests to one peripheral. A request whose caller gave up
// keeps the guard until the driver call returns, and a link it establishes late is released.
type linkGuard struct {
	mu      sync.Mutex
	pending chan struct{}
}

// run calls connect unless ctx ends first. When ctx ends while connect is still running,
// run returns ctx.Err() and release is called if connect later succeeds.
func (g *linkGuard) run(ctx context.Context, connect func() error, release func()) error {
	var done chan struct{}
	for done == nil {
		g.mu.Lock()
		prev := g.pending
		if prev == nil {
			done = make(chan struct{})
			g.pending = done
		}
		g.mu.Unlock()

		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	finish := func() {
		g.mu.Lock()
		g.pending = nil
		g.mu.Unlock()
		close(done)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- connect()
	}()

	select {
	case err := <-errCh:
		finish()
		return err
	case <-ctx.Done():
		go func() {
			if err := <-errCh; err == nil {
				release()
			}
			finish()
		}()
		return ctx.Err()
	}
}

type btCentral struct {
	adapter *bluetooth.Adapter
	log     *zap.Logger

	mu sync.Mutex
	// known keeps one peripheral per address across scans, so link state survives a rescan.
	known    map[string]*btPeripheral
	seen     map[string]bool
	found    []*btPeripheral
	scanDone chan error
}

// NewBluetoothCentral returns a Central backed by the system Bluetooth adapter.
func NewBluetoothCentral() Central {
	return &btCentral{
		adapter: BTAdapter,
		log:     logging.Named("bluetooth"),
		known:   make(map[string]*btPeripheral),
	}
}

func (c *btCentral) Enable() error {
	return TryEnableAdapter()
}

func (c *btCentral) StartScan() error {
	c.mu.Lock()
	if c.scanDone != nil {
		c.mu.Unlock()
		return errors.New("scan already in progress")
	}
	c.seen = make(map[string]bool)
	c.found = nil
	done := make(chan error, 1)
	c.scanDone = done
	c.mu.Unlock()

	go func() {
		// Scan blocks until StopScan is called.
		done <- c.adapter.Scan(c.handleResult)
	}()
	return nil
}

func (c *btCentral) handleResult(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
	addr := result.Address.String()
	name := result.LocalName()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.known[addr]; ok {
		// Names often arrive in the scan response rather than the first advertisement.
		p.mu.Lock()
		if p.name == "" && name != "" {
			p.name = name
		}
		p.rssi = result.RSSI
		p.mu.Unlock()
		if !c.seen[addr] {
			c.seen[addr] = true
			c.found = append(c.found, p)
		}
		return
	}

	p := &btPeripheral{
		adapter: c.adapter,
		address: result.Address,
		name:    name,
		rssi:    result.RSSI,
		log:     c.log,
	}
	c.known[addr] = p
	c.seen[addr] = true
	c.found = append(c.found, p)
	c.log.Debug("advertisement", zap.String("address", addr), zap.String("name", name), zap.Int16("rssi", result.RSSI))
}

func (c *btCentral) StopScan() error {
	c.mu.Lock()
	done := c.scanDone
	c.scanDone = nil
	c.mu.Unlock()

	if done == nil {
		return nil
	}

	stopErr := c.adapter.StopScan()
	if stopErr != nil {
		c.log.Warn("failed to stop scan cleanly", zap.Error(stopErr))
		return stopErr
	}
	if err := <-done; err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

func (c *btCentral) Peripherals() []Peripheral {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Peripheral, 0, len(c.found))
	for _, p := range c.found {
		out = append(out, p)
	}
	return out
}

type btPeripheral struct {
	adapter *bluetooth.Adapter
	address bluetooth.Address
	log     *zap.Logger
	guard   linkGuard

	mu        sync.Mutex
	name      string
	rssi      int16
	device    bluetooth.Device
	connected bool
}

func (p *btPeripheral) Address() string {
	return p.address.String()
}

func (p *btPeripheral) LocalName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *btPeripheral) RSSI() int16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rssi
}

func (p *btPeripheral) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *btPeripheral) Connect(ctx context.Context) error {
	return p.guard.run(ctx, func() error {
		dev, err := p.adapter.Connect(p.address, bluetooth.ConnectionParams{})
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.device = dev
		p.connected = true
		p.mu.Unlock()
		return nil
	}, p.releaseAbandoned)
}

// releaseAbandoned drops a link that was established after its Connect call had given up.
func (p *btPeripheral) releaseAbandoned() {
	p.mu.Lock()
	dev := p.device
	p.connected = false
	p.mu.Unlock()

	p.log.Warn("Releasing link established after connect timeout", zap.String("address", p.address.String()))
	if err := dev.Disconnect(); err != nil {
		p.log.Warn("Failed to release abandoned link", zap.String("address", p.address.String()), zap.Error(err))
	}
}

func (p *btPeripheral) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return nil
	}
	dev := p.device
	p.mu.Unlock()

	return runWithContext(ctx, func() error {
		if err := dev.Disconnect(); err != nil {
			return err
		}
		p.mu.Lock()
		p.connected = false
		p.mu.Unlock()
		return nil
	})
}

func (p *btPeripheral) DiscoverCharacteristics(ctx context.Context, service bluetooth.UUID, chars ...bluetooth.UUID) ([]Characteristic, error) {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return nil, errors.New("device is not connected")
	}
	dev := p.device
	p.mu.Unlock()

	var out []Characteristic
	err := runWithContext(ctx, func() error {
		services, err := dev.DiscoverServices([]bluetooth.UUID{service})
		if err != nil {
			return fmt.Errorf("could not discover services: %w", err)
		}

		var found []Characteristic
		for _, svc := range services {
			dcs, err := svc.DiscoverCharacteristics(chars)
			if err != nil {
				return fmt.Errorf("could not discover characteristics: %w", err)
			}
			for _, dc := range dcs {
				found = append(found, &btCharacteristic{char: dc})
			}
		}
		out = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type btCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c *btCharacteristic) UUID() bluetooth.UUID {
	return c.char.UUID()
}

func (c *btCharacteristic) Read(ctx context.Context) ([]byte, error) {
	buf := make([]byte, readBufferSize)
	var n int
	err := runWithContext(ctx, func() error {
		var err error
		n, err = c.char.Read(buf)
		return err
	})
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (c *btCharacteristic) WriteWithoutResponse(ctx context.Context, p []byte) error {
	return runWithContext(ctx, func() error {
		_, err := c.char.WriteWithoutResponse(p)
		return err
	})
}
