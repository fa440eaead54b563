// Package mock provides a simulated Bluetooth central and Linak desk.
// It is intended for development and testing purposes when a physical desk is not available.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/internal/logging"
	"github.com/mlsorensen/godesk/pkg/desks/linak/comms"
)

// This line is the compile-time check. It will fail to compile if
// the simulated types ever stop satisfying the transport interfaces.
var (
	_ godesk.Central        = (*Central)(nil)
	_ godesk.Peripheral     = (*Desk)(nil)
	_ godesk.Characteristic = (*characteristic)(nil)
)

// Desk range limits in desk units, used by the Up and Down commands.
const (
	MinUnits uint16 = 6200
	MaxUnits uint16 = 12700
)

// ErrLinkRefused is returned by Connect while ConnectFailures is positive.
var ErrLinkRefused = errors.New("mock: link refused")

// Central is a simulated radio. Every registered peripheral is observed as soon as a scan starts.
type Central struct {
	mu          sync.Mutex
	peripherals []godesk.Peripheral
	scanning    bool

	// EnableErr, when set, is returned by Enable.
	EnableErr error
	// ScanErr, when set, is returned by StartScan.
	ScanErr error

	scans int
}

// NewCentral returns a central that observes the given peripherals.
func NewCentral(peripherals ...godesk.Peripheral) *Central {
	return &Central{peripherals: peripherals}
}

// Add makes another peripheral visible to subsequent scans.
func (c *Central) Add(p godesk.Peripheral) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peripherals = append(c.peripherals, p)
}

func (c *Central) Enable() error {
	return c.EnableErr
}

func (c *Central) StartScan() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ScanErr != nil {
		return c.ScanErr
	}
	c.scanning = true
	c.scans++
	return nil
}

func (c *Central) StopScan() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanning = false
	return nil
}

func (c *Central) Peripherals() []godesk.Peripheral {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]godesk.Peripheral, len(c.peripherals))
	copy(out, c.peripherals)
	return out
}

// Scans returns how many scans were started.
func (c *Central) Scans() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scans
}

// Desk is a simulated desk controller. Movement advances by StepUnits on every height read,
// which makes polling loops deterministic.
type Desk struct {
	address string
	name    string
	rssi    int16

	mu        sync.Mutex
	connected bool
	height    uint16
	target    uint16
	moving    bool
	writes    []comms.MovementCommand

	connectAttempts int
	disconnects     int
	reads           int

	// StepUnits is how far the desk moves per height read. Zero means the desk never moves.
	StepUnits uint16
	// ConnectFailures makes the next N Connect calls fail with ErrLinkRefused.
	ConnectFailures int
	// HalfLinkFailures makes the next N Connect calls bring the link up and still fail
	// with ErrLinkRefused.
	HalfLinkFailures int
	// HangConnect makes Connect block until its context is done.
	HangConnect bool
	// DisconnectErr, when set, is returned by Disconnect and the link stays up.
	DisconnectErr error
	// DiscoverErr, when set, is returned by DiscoverCharacteristics.
	DiscoverErr error
	// NoControl and NoHeight hide the corresponding characteristic.
	NoControl bool
	NoHeight  bool
	// ReadFailures makes the next N height reads fail.
	ReadFailures int
	// ShortReads makes every height read return a single byte.
	ShortReads bool
}

// NewDesk returns a disconnected desk resting at heightMM.
func NewDesk(address, name string, heightMM uint16) *Desk {
	return &Desk{
		address:   address,
		name:      name,
		rssi:      -60,
		height:    comms.MMToUnits(heightMM),
		StepUnits: 100,
	}
}

func (d *Desk) Address() string   { return d.address }
func (d *Desk) LocalName() string { return d.name }
func (d *Desk) RSSI() int16       { return d.rssi }

func (d *Desk) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Desk) Connect(ctx context.Context) error {
	d.mu.Lock()
	d.connectAttempts++
	hang := d.HangConnect
	if !hang && d.ConnectFailures > 0 {
		d.ConnectFailures--
		d.mu.Unlock()
		return ErrLinkRefused
	}
	if !hang && d.HalfLinkFailures > 0 {
		d.HalfLinkFailures--
		d.connected = true
		d.mu.Unlock()
		return ErrLinkRefused
	}
	d.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}

	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()
	logging.Debug("MOCK: Connected", zap.String("address", d.address))
	return nil
}

func (d *Desk) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil
	}
	if d.DisconnectErr != nil {
		return d.DisconnectErr
	}
	d.connected = false
	d.moving = false
	d.disconnects++
	logging.Debug("MOCK: Disconnected", zap.String("address", d.address))
	return nil
}

func (d *Desk) DiscoverCharacteristics(ctx context.Context, service bluetooth.UUID, uuids ...bluetooth.UUID) ([]godesk.Characteristic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil, errors.New("mock: not connected")
	}
	if d.DiscoverErr != nil {
		return nil, d.DiscoverErr
	}
	if service != comms.ControlServiceUUID {
		return nil, nil
	}

	var out []godesk.Characteristic
	for _, u := range uuids {
		switch {
		case u == comms.ControlCharUUID && !d.NoControl:
			out = append(out, &characteristic{desk: d, uuid: u})
		case u == comms.HeightCharUUID && !d.NoHeight:
			out = append(out, &characteristic{desk: d, uuid: u})
		}
	}
	return out, nil
}

// HeightMM returns the simulated height.
func (d *Desk) HeightMM() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return comms.UnitsToMM(d.height)
}

// SetHeightMM moves the simulated desk instantly.
func (d *Desk) SetHeightMM(mm uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.height = comms.MMToUnits(mm)
}

// Moving reports whether a command is still being carried out.
func (d *Desk) Moving() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moving
}

// Commands returns the movement commands written so far.
func (d *Desk) Commands() []comms.MovementCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]comms.MovementCommand, len(d.writes))
	copy(out, d.writes)
	return out
}

// ConnectAttempts returns how many times Connect was called.
func (d *Desk) ConnectAttempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connectAttempts
}

// Disconnects returns how many times a live link was released.
func (d *Desk) Disconnects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnects
}

// Reads returns how many height reads were served, failed ones included.
func (d *Desk) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

func (d *Desk) apply(cmd comms.MovementCommand) {
	d.writes = append(d.writes, cmd)
	switch cmd.Kind {
	case comms.KindStop:
		d.moving = false
	case comms.KindUp:
		d.target, d.moving = MaxUnits, true
	case comms.KindDown:
		d.target, d.moving = MinUnits, true
	case comms.KindMoveToHeight:
		d.target, d.moving = cmd.Units, true
	}
}

// step advances the simulation by one tick.
func (d *Desk) step() {
	if !d.moving || d.StepUnits == 0 {
		return
	}
	switch {
	case d.height < d.target:
		d.height += min(d.StepUnits, d.target-d.height)
	case d.height > d.target:
		d.height -= min(d.StepUnits, d.height-d.target)
	}
	if d.height == d.target {
		d.moving = false
	}
}

type characteristic struct {
	desk *Desk
	uuid bluetooth.UUID
}

func (c *characteristic) UUID() bluetooth.UUID {
	return c.uuid
}

func (c *characteristic) Read(ctx context.Context) ([]byte, error) {
	if c.uuid != comms.HeightCharUUID {
		return nil, fmt.Errorf("mock: characteristic %s is not readable", c.uuid.String())
	}

	d := c.desk
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reads++
	if !d.connected {
		return nil, errors.New("mock: not connected")
	}
	if d.ReadFailures > 0 {
		d.ReadFailures--
		return nil, errors.New("mock: read failed")
	}

	d.step()
	if d.ShortReads {
		return []byte{byte(d.height)}, nil
	}
	// Real desks append a speed field after the position.
	return []byte{byte(d.height), byte(d.height >> 8), 0x00, 0x00}, nil
}

func (c *characteristic) WriteWithoutResponse(ctx context.Context, p []byte) error {
	if c.uuid != comms.ControlCharUUID {
		return fmt.Errorf("mock: characteristic %s is not writable", c.uuid.String())
	}

	cmd, ok := comms.DecodeCommand(p)
	if !ok {
		return fmt.Errorf("mock: unknown command % X", p)
	}

	d := c.desk
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errors.New("mock: not connected")
	}
	d.apply(cmd)
	return nil
}
