package godesk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mlsorensen/godesk/internal/logging"
	"github.com/mlsorensen/godesk/pkg/desks/linak/comms"
)

// Session is a linked desk with both endpoints resolved. It is only created by Connect.
type Session struct {
	peripheral Peripheral
	name       string
	control    Characteristic
	height     Characteristic

	opts Options
	log  *zap.Logger

	// writeMu serializes control writes, including the settle delay that follows a move command.
	writeMu sync.Mutex
}

func newSession(p Peripheral, name string, control, height Characteristic, opts Options, log *zap.Logger) *Session {
	return &Session{
		peripheral: p,
		name:       name,
		control:    control,
		height:     height,
		opts:       opts,
		log:        log.With(zap.String("address", p.Address())),
	}
}

// Address returns the hardware address of the desk.
func (s *Session) Address() string {
	return s.peripheral.Address()
}

// Name returns the advertised name the desk was discovered under.
func (s *Session) Name() string {
	return s.name
}

// IsConnected reports whether the underlying link is still up.
func (s *Session) IsConnected() bool {
	return s.peripheral.IsConnected()
}

// SendCommand writes one movement command to the control characteristic.
func (s *Session) SendCommand(ctx context.Context, cmd comms.MovementCommand) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write(ctx, cmd)
}

// write expects writeMu to be held.
func (s *Session) write(ctx context.Context, cmd comms.MovementCommand) error {
	if s.control == nil {
		return newError(KindEndpointUnavailable, StageWrite, "control characteristic not available", nil).withAddress(s.Address())
	}

	buf := cmd.Bytes()
	s.log.Info("Sending command", zap.Stringer("command", cmd))
	logging.LogRawBytes(s.log, "control write", buf)

	wctx, cancel := context.WithTimeout(ctx, s.opts.IOTimeout)
	defer cancel()
	if err := s.control.WriteWithoutResponse(wctx, buf); err != nil {
		return newError(KindTransport, StageWrite, "failed to write command", err).withAddress(s.Address())
	}
	return nil
}

// GetHeight reads the current height in millimeters.
func (s *Session) GetHeight(ctx context.Context) (uint16, error) {
	if s.height == nil {
		return 0, newError(KindEndpointUnavailable, StageRead, "height characteristic not available", nil).withAddress(s.Address())
	}

	rctx, cancel := context.WithTimeout(ctx, s.opts.IOTimeout)
	defer cancel()
	data, err := s.height.Read(rctx)
	if err != nil {
		return 0, newError(KindTransport, StageRead, "failed to read height", err).withAddress(s.Address())
	}
	logging.LogRawBytes(s.log, "height read", data)

	units, ok := comms.DecodeHeight(data)
	if !ok {
		return 0, newError(KindDecodeFailure, StageRead, "failed to parse height data ("+logging.HexDump(data)+")", nil).withAddress(s.Address())
	}
	return comms.UnitsToMM(units), nil
}

// MoveToHeight drives the desk to heightMM and polls until the reported height is within
// tolerance. It fails with ErrConvergenceTimeout when the desk has not settled after MoveTimeout
// and with ErrInvalidHeight, before anything is sent, when heightMM exceeds comms.MaxHeightMM.
func (s *Session) MoveToHeight(ctx context.Context, heightMM uint16) error {
	if err := checkHeight(heightMM); err != nil {
		return err
	}
	units := comms.MMToUnits(heightMM)
	s.log.Info("Moving desk", zap.Uint16("target_mm", heightMM), zap.Uint16("target_units", units))

	if err := s.startMove(ctx, comms.MoveToHeight(units)); err != nil {
		return err
	}
	return s.awaitHeight(ctx, heightMM)
}

// startMove sends cmd and holds the control lock through the settle delay.
func (s *Session) startMove(ctx context.Context, cmd comms.MovementCommand) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.write(ctx, cmd); err != nil {
		return err
	}
	return sleepCtx(ctx, s.opts.SettleDelay)
}

func (s *Session) awaitHeight(ctx context.Context, targetMM uint16) error {
	tolerance := s.opts.ToleranceMM
	start := time.Now()
	failures := 0

	s.log.Info("Starting height polling",
		zap.Uint16("target_mm", targetMM),
		zap.Uint16("tolerance_mm", tolerance),
		zap.Duration("max_wait", s.opts.MoveTimeout),
	)

	for poll := 1; ; poll++ {
		if elapsed := time.Since(start); elapsed > s.opts.MoveTimeout {
			s.log.Error("Timeout waiting for target height", zap.Int("polls", poll-1), zap.Duration("elapsed", elapsed))
			return newError(KindConvergenceTimeout, StageMove, "timeout waiting for desk to reach target height", nil).withAddress(s.Address())
		}

		current, err := s.GetHeight(ctx)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			failures++
			s.log.Warn("Failed to read height", zap.Int("poll", poll), zap.Int("consecutive_failures", failures), zap.Error(err))
			if failures > s.opts.MaxReadFailures {
				s.log.Error("Multiple height read failures, aborting")
				return err
			}
		default:
			failures = 0
			diff := absDiff(current, targetMM)
			if poll <= 3 || poll%10 == 0 {
				s.log.Info("Poll",
					zap.Int("poll", poll),
					zap.Uint16("height_mm", current),
					zap.Uint16("target_mm", targetMM),
					zap.Uint16("diff_mm", diff),
				)
			}
			if diff <= tolerance {
				s.log.Info("Reached target height", zap.Int("polls", poll), zap.Uint16("height_mm", current))
				return nil
			}
		}

		if err := sleepCtx(ctx, s.opts.PollInterval); err != nil {
			return err
		}
	}
}

// Stop halts any movement.
func (s *Session) Stop(ctx context.Context) error {
	s.log.Info("Stopping desk movement")
	return s.SendCommand(ctx, comms.Stop)
}

// Up starts moving the desk upwards until Stop or the desk's own limit.
func (s *Session) Up(ctx context.Context) error {
	return s.SendCommand(ctx, comms.Up)
}

// Down starts moving the desk downwards until Stop or the desk's own limit.
func (s *Session) Down(ctx context.Context) error {
	return s.SendCommand(ctx, comms.Down)
}

// Disconnect releases the link. Calling it on a released session is a no-op.
func (s *Session) Disconnect(ctx context.Context) error {
	if !s.peripheral.IsConnected() {
		return nil
	}
	if err := s.peripheral.Disconnect(ctx); err != nil {
		return newError(KindTransport, StageDisconnect, "failed to disconnect", err).withAddress(s.Address())
	}
	s.log.Info("Disconnected from desk")
	return nil
}

// Close is the best-effort teardown used when a session is discarded. The disconnect runs
// under TeardownTimeout and its error is logged, never returned.
func (s *Session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.TeardownTimeout)
	defer cancel()
	if err := s.Disconnect(ctx); err != nil {
		s.log.Warn("Best-effort disconnect failed", zap.Error(err))
	}
}

func checkHeight(heightMM uint16) error {
	if heightMM > comms.MaxHeightMM {
		return newError(KindInvalidHeight, StageMove,
			fmt.Sprintf("height %d mm exceeds %d mm", heightMM, comms.MaxHeightMM), nil)
	}
	return nil
}

func absDiff(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isTimeout reports whether err came from an expired deadline.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
