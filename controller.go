package godesk

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mlsorensen/godesk/internal/logging"
)

// Controller owns the single session for one desk. The session slot is guarded by a mutex
// that is held across connects; movement requests are serialized by a second mutex so that two
// preset requests never interleave their writes. Height reads do not wait for a move.
type Controller struct {
	central Central
	opts    Options
	log     *zap.Logger

	mu      sync.Mutex
	session *Session
	address string

	moveMu sync.Mutex

	onLearned func(address string)
}

// NewController creates a Controller. address may be empty, in which case the first desk found
// is used and reported through OnDeviceLearned.
func NewController(central Central, address string, opts Options) *Controller {
	return &Controller{
		central: central,
		opts:    opts.withDefaults(),
		log:     logging.Named("controller"),
		address: address,
	}
}

// OnDeviceLearned registers fn to receive the address of a desk found without a known address,
// so the caller can persist it. fn runs while the session slot is locked and must not call back
// into the Controller.
func (c *Controller) OnDeviceLearned(fn func(address string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLearned = fn
}

// Address returns the address of the desk the controller targets, if known.
func (c *Controller) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// SetAddress changes the target desk. An existing session for another desk is discarded.
func (c *Controller) SetAddress(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = address
	if c.session != nil && c.session.Address() != address {
		c.dropLocked()
	}
}

// Connected reports whether a live session exists.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.IsConnected()
}

// Connect links to the desk with the given address, or to the first desk found when address is
// empty. An existing live session to the same desk is reused.
func (c *Controller) Connect(ctx context.Context, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.connectLocked(ctx, address)
	return err
}

func (c *Controller) connectLocked(ctx context.Context, address string) (*Session, error) {
	if s := c.session; s != nil {
		if s.IsConnected() && (address == "" || s.Address() == address) {
			return s, nil
		}
		c.dropLocked()
	}

	c.log.Info("Connecting to desk...", zap.String("address", address))
	s, err := Connect(ctx, c.central, address, c.opts)
	if err != nil {
		return nil, err
	}
	c.session = s
	c.log.Info("Connected to desk successfully", zap.String("address", s.Address()), zap.String("name", s.Name()))

	if address == "" {
		c.address = s.Address()
		if c.onLearned != nil {
			c.onLearned(s.Address())
		}
	} else {
		c.address = address
	}
	return s, nil
}

// dropLocked discards the session with a best-effort disconnect.
func (c *Controller) dropLocked() {
	if c.session == nil {
		return
	}
	c.session.Close()
	c.session = nil
}

// ensureSession returns the live session, connecting with the known address if needed.
func (c *Controller) ensureSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx, c.address)
}

// current returns the session without connecting.
func (c *Controller) current() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, newError(KindNotConnected, "", "", nil)
	}
	return c.session, nil
}

// MoveToHeight connects if necessary and drives the desk to heightMM.
func (c *Controller) MoveToHeight(ctx context.Context, heightMM uint16) error {
	if err := checkHeight(heightMM); err != nil {
		return err
	}

	c.moveMu.Lock()
	defer c.moveMu.Unlock()

	s, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}
	return s.MoveToHeight(ctx, heightMM)
}

// MoveToPreset drives the desk to a named preset height and logs the preset name.
func (c *Controller) MoveToPreset(ctx context.Context, name string, heightMM uint16) error {
	c.log.Info("Moving to preset", zap.String("preset", name), zap.Uint16("height_mm", heightMM))
	if err := c.MoveToHeight(ctx, heightMM); err != nil {
		return err
	}
	c.log.Info("Successfully moved to preset", zap.String("preset", name))
	return nil
}

// GetHeight connects if necessary and reads the current height.
func (c *Controller) GetHeight(ctx context.Context) (uint16, error) {
	s, err := c.ensureSession(ctx)
	if err != nil {
		return 0, err
	}
	return s.GetHeight(ctx)
}

// Stop halts the desk. It does not wait for a running move and does not connect.
func (c *Controller) Stop(ctx context.Context) error {
	s, err := c.current()
	if err != nil {
		return err
	}
	return s.Stop(ctx)
}

// Up jogs the desk upwards.
func (c *Controller) Up(ctx context.Context) error {
	c.moveMu.Lock()
	defer c.moveMu.Unlock()
	s, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}
	return s.Up(ctx)
}

// Down jogs the desk downwards.
func (c *Controller) Down(ctx context.Context) error {
	c.moveMu.Lock()
	defer c.moveMu.Unlock()
	s, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}
	return s.Down(ctx)
}

// Pair scans without an address, links the first desk found and makes it the target.
// The previous session, if any, is discarded first.
func (c *Controller) Pair(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked()
	s, err := c.connectLocked(ctx, "")
	if err != nil {
		return "", err
	}
	return s.Address(), nil
}

// Disconnect releases the session. It is a no-op when there is none. When the desk refuses
// the disconnect the session stays in place so the call can be retried.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	err := s.Disconnect(ctx)
	if err == nil {
		return nil
	}

	c.mu.Lock()
	if c.session == nil {
		c.session = s
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	// a newer session took the slot meanwhile
	s.Close()
	return err
}

// Close discards the session with a best-effort, bounded disconnect.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
}
