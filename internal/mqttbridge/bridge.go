package mqttbridge

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/internal/config"
	"github.com/mlsorensen/godesk/internal/logging"
)

// Desk is the part of the desk controller the bridge drives.
type Desk interface {
	MoveToHeight(ctx context.Context, heightMM uint16) error
	GetHeight(ctx context.Context) (uint16, error)
	Stop(ctx context.Context) error
	Up(ctx context.Context) error
	Down(ctx context.Context) error
}

var _ Desk = (*godesk.Controller)(nil)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Broker is a Publisher that can also subscribe. Client implements it.
type Broker interface {
	Publisher
	Subscribe(topic string, handler MessageHandler) error
}

var _ Broker = (*Client)(nil)

// Bridge maps MQTT messages onto desk operations.
type Bridge struct {
	desk    Desk
	presets config.Presets
	topics  Topics
	pub     Publisher
	log     *zap.Logger
}

// New returns a bridge that resolves preset names against presets.
func New(desk Desk, presets config.Presets, topics Topics, pub Publisher) *Bridge {
	return &Bridge{
		desk:    desk,
		presets: presets,
		topics:  topics,
		pub:     pub,
		log:     logging.Named("bridge"),
	}
}

// HandleSet executes one set payload. A completed move or stop is followed by a
// height publication. Failures are also reported on the error topic.
func (b *Bridge) HandleSet(ctx context.Context, payload []byte) error {
	cmd, err := ParseCommand(payload, b.presets)
	if err != nil {
		b.reportError(err)
		return err
	}

	b.log.Info("Command received", zap.Stringer("action", cmd.Action), zap.Uint16("height_mm", cmd.HeightMM))

	switch cmd.Action {
	case ActionMove:
		err = b.desk.MoveToHeight(ctx, cmd.HeightMM)
	case ActionStop:
		err = b.desk.Stop(ctx)
	case ActionUp:
		err = b.desk.Up(ctx)
	case ActionDown:
		err = b.desk.Down(ctx)
	}
	if err != nil {
		b.reportError(err)
		return err
	}

	if cmd.Action == ActionMove || cmd.Action == ActionStop {
		return b.PublishHeight(ctx)
	}
	return nil
}

// PublishHeight reads the desk and publishes the height as a retained message.
func (b *Bridge) PublishHeight(ctx context.Context) error {
	h, err := b.desk.GetHeight(ctx)
	if err != nil {
		b.reportError(err)
		return err
	}
	return b.pub.Publish(b.topics.Height(), []byte(strconv.Itoa(int(h))), true)
}

func (b *Bridge) reportError(err error) {
	b.log.Warn("Desk command failed", zap.Error(err))
	if perr := b.pub.Publish(b.topics.Error(), []byte(godesk.ShortMessage(err)), false); perr != nil {
		b.log.Warn("Failed to publish error", zap.Error(perr))
	}
}

// Run subscribes to the command topics, publishes the initial height and blocks until
// ctx is done. Commands run under ctx.
func (b *Bridge) Run(ctx context.Context, broker Broker) error {
	if err := broker.Subscribe(b.topics.Set(), func(_ string, payload []byte) {
		_ = b.HandleSet(ctx, payload)
	}); err != nil {
		return err
	}
	if err := broker.Subscribe(b.topics.Get(), func(_ string, _ []byte) {
		_ = b.PublishHeight(ctx)
	}); err != nil {
		return err
	}

	b.log.Info("Bridge running", zap.String("set_topic", b.topics.Set()), zap.String("height_topic", b.topics.Height()))

	if err := b.PublishHeight(ctx); err != nil {
		b.log.Warn("Initial height unavailable", zap.Error(err))
	}

	<-ctx.Done()
	return nil
}
