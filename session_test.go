package godesk_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/pkg/desks/linak/comms"
	"github.com/mlsorensen/godesk/pkg/desks/mock"
)

func connectMock(t *testing.T, desk *mock.Desk, opts godesk.Options) *godesk.Session {
	t.Helper()
	session, err := godesk.Connect(context.Background(), mock.NewCentral(desk), desk.Address(), opts)
	require.NoError(t, err)
	return session
}

func TestGetHeight(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1050)
	session := connectMock(t, desk, fastOptions())

	height, err := session.GetHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(1050), height)
}

func TestGetHeightDecodeFailure(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1050)
	desk.ShortReads = true
	session := connectMock(t, desk, fastOptions())

	_, err := session.GetHeight(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, godesk.ErrDecodeFailure)
	assert.Equal(t, 1, desk.Reads(), "no retry at this layer")
}

func TestMoveToHeightConverges(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 650)
	desk.StepUnits = 30 // 3mm per poll
	session := connectMock(t, desk, fastOptions())

	err := session.MoveToHeight(context.Background(), 1050)
	require.NoError(t, err)

	// 650 + 3*132 = 1046 is the first reading within 5mm; 1043 after 131 polls is not.
	assert.Equal(t, 132, desk.Reads())
	assert.Equal(t, uint16(1046), desk.HeightMM())

	cmds := desk.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, comms.MoveToHeight(10500), cmds[0])
}

func TestMoveToHeightRejectsUnencodableHeight(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 650)
	session := connectMock(t, desk, fastOptions())

	err := session.MoveToHeight(context.Background(), comms.MaxHeightMM+1)
	assert.ErrorIs(t, err, godesk.ErrInvalidHeight)
	assert.Empty(t, desk.Commands())
	assert.Equal(t, 0, desk.Reads())

	err = session.MoveToHeight(context.Background(), 7000)
	assert.ErrorIs(t, err, godesk.ErrInvalidHeight)
	assert.Empty(t, desk.Commands())
}

func TestMoveToHeightDownwards(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1250)
	desk.StepUnits = 100
	session := connectMock(t, desk, fastOptions())

	require.NoError(t, session.MoveToHeight(context.Background(), 650))
	assert.Equal(t, uint16(650), desk.HeightMM())
	assert.Equal(t, 60, desk.Reads())
}

func TestMoveToHeightAlreadyThere(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1048)
	session := connectMock(t, desk, fastOptions())

	require.NoError(t, session.MoveToHeight(context.Background(), 1050))
	assert.Equal(t, 1, desk.Reads())
}

func TestMoveToHeightTimeout(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 650)
	desk.StepUnits = 0

	opts := fastOptions()
	opts.MoveTimeout = 300 * time.Millisecond
	opts.PollInterval = 10 * time.Millisecond
	session := connectMock(t, desk, opts)

	start := time.Now()
	err := session.MoveToHeight(context.Background(), 1050)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, godesk.ErrConvergenceTimeout)
	assert.GreaterOrEqual(t, elapsed, opts.MoveTimeout, "not earlier than the ceiling")
	assert.Less(t, elapsed, opts.MoveTimeout+500*time.Millisecond, "not much later than the ceiling")
}

func TestMoveToHeightToleratesTransientReadFailures(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1000)
	desk.ReadFailures = 3
	session := connectMock(t, desk, fastOptions())

	require.NoError(t, session.MoveToHeight(context.Background(), 1050))
	assert.InDelta(t, 1050, int(desk.HeightMM()), 5)
}

func TestMoveToHeightSurfacesPersistentReadFailure(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1000)
	desk.ReadFailures = 100
	opts := fastOptions()
	session := connectMock(t, desk, opts)

	err := session.MoveToHeight(context.Background(), 1050)
	require.Error(t, err)
	assert.ErrorIs(t, err, godesk.ErrTransport)
	assert.Equal(t, opts.MaxReadFailures+1, desk.Reads())
}

func TestJogAndStopCommands(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1000)
	session := connectMock(t, desk, fastOptions())
	ctx := context.Background()

	require.NoError(t, session.Up(ctx))
	assert.True(t, desk.Moving())
	require.NoError(t, session.Stop(ctx))
	assert.False(t, desk.Moving())
	require.NoError(t, session.Down(ctx))

	assert.Equal(t, []comms.MovementCommand{comms.Up, comms.Stop, comms.Down}, desk.Commands())
}

func TestSessionDisconnectIsIdempotent(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1000)
	session := connectMock(t, desk, fastOptions())
	ctx := context.Background()

	require.NoError(t, session.Disconnect(ctx))
	require.NoError(t, session.Disconnect(ctx))
	assert.False(t, desk.IsConnected())
	assert.Equal(t, 1, desk.Disconnects())
}

func TestSessionCloseReleasesLink(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1000)
	session := connectMock(t, desk, fastOptions())

	session.Close()
	session.Close()
	assert.False(t, desk.IsConnected())
}

func TestWriteAfterDisconnectFails(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 1000)
	session := connectMock(t, desk, fastOptions())
	require.NoError(t, session.Disconnect(context.Background()))

	err := session.Stop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, godesk.ErrTransport)
}
