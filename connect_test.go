package godesk_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/pkg/desks/mock"
)

func TestConnectFirstAvailable(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 700)
	central := mock.NewCentral(mock.NewDesk("AA:00", "Chair", 700), desk)

	session, err := godesk.Connect(context.Background(), central, "", fastOptions())
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "AA:01", session.Address())
	assert.Equal(t, "Desk 123", session.Name())
	assert.True(t, session.IsConnected())
	assert.Equal(t, 1, desk.ConnectAttempts())
}

func TestConnectByAddress(t *testing.T) {
	first := mock.NewDesk("AA:01", "Desk 1", 700)
	second := mock.NewDesk("AA:02", "Desk 2", 700)
	central := mock.NewCentral(first, second)

	session, err := godesk.Connect(context.Background(), central, "AA:02", fastOptions())
	require.NoError(t, err)

	assert.Equal(t, "AA:02", session.Address())
	assert.Equal(t, 0, first.ConnectAttempts())
	assert.Equal(t, 1, second.ConnectAttempts())
}

func TestConnectRetriesUntilLinked(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 700)
	desk.ConnectFailures = 2
	central := mock.NewCentral(desk)

	session, err := godesk.Connect(context.Background(), central, "AA:01", fastOptions())
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, 3, desk.ConnectAttempts())
	assert.Equal(t, 3, central.Scans(), "every attempt rescans")
}

func TestConnectGivesUpAfterThreeAttempts(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 700)
	desk.ConnectFailures = 100
	central := mock.NewCentral(desk)

	session, err := godesk.Connect(context.Background(), central, "", fastOptions())
	require.Error(t, err)
	assert.Nil(t, session)

	assert.Equal(t, 3, desk.ConnectAttempts())
	assert.ErrorIs(t, err, godesk.ErrConnectTransport)
	assert.ErrorIs(t, err, mock.ErrLinkRefused, "last transport error is surfaced")
}

func TestConnectReleasesHalfLinkedDeskBeforeRetry(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 700)
	desk.HalfLinkFailures = 2
	central := mock.NewCentral(desk)

	session, err := godesk.Connect(context.Background(), central, "AA:01", fastOptions())
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, 3, desk.ConnectAttempts())
	assert.Equal(t, 2, desk.Disconnects(), "each failed attempt that left the link up is released")
	assert.True(t, session.IsConnected())
}

func TestConnectTimeoutIsRetried(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 700)
	desk.HangConnect = true
	central := mock.NewCentral(desk)

	_, err := godesk.Connect(context.Background(), central, "AA:01", fastOptions())
	require.Error(t, err)

	assert.ErrorIs(t, err, godesk.ErrConnectTimeout)
	assert.Equal(t, 3, desk.ConnectAttempts())

	var de *godesk.DeskError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, godesk.StageConnect, de.Stage)
	assert.Equal(t, "AA:01", de.Address)
}

func TestConnectDeviceNotFound(t *testing.T) {
	central := mock.NewCentral(mock.NewDesk("AA:01", "Desk 123", 700))
	opts := fastOptions()

	_, err := godesk.Connect(context.Background(), central, "BB:BB", opts)
	require.Error(t, err)

	assert.ErrorIs(t, err, godesk.ErrDeviceNotFound)
	assert.False(t, godesk.IsRetryable(err))
	assert.Equal(t, opts.KnownScanAttempts, central.Scans())
}

func TestConnectNoCandidates(t *testing.T) {
	central := mock.NewCentral(mock.NewDesk("AA:00", "Chair", 700))

	_, err := godesk.Connect(context.Background(), central, "", fastOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, godesk.ErrNoCandidatesFound)
	assert.Equal(t, 1, central.Scans())
}

func TestConnectNoAdapter(t *testing.T) {
	central := mock.NewCentral()
	central.EnableErr = errors.New("no adapter")

	_, err := godesk.Connect(context.Background(), central, "", fastOptions())
	assert.ErrorIs(t, err, godesk.ErrNoAdapter)
}

func TestConnectMissingEndpointIsFatal(t *testing.T) {
	tests := []struct {
		name      string
		noControl bool
		noHeight  bool
	}{
		{"missing control", true, false},
		{"missing height", false, true},
		{"missing both", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desk := mock.NewDesk("AA:01", "Desk 123", 700)
			desk.NoControl = tt.noControl
			desk.NoHeight = tt.noHeight

			session, err := godesk.Connect(context.Background(), mock.NewCentral(desk), "", fastOptions())
			require.Error(t, err)
			assert.Nil(t, session)

			assert.ErrorIs(t, err, godesk.ErrMissingEndpoint)
			assert.Equal(t, 1, desk.ConnectAttempts(), "not retried")
			assert.False(t, desk.IsConnected(), "link is released")
		})
	}
}

func TestConnectServiceDiscoveryFailureIsFatal(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 700)
	desk.DiscoverErr = errors.New("gatt error")

	_, err := godesk.Connect(context.Background(), mock.NewCentral(desk), "", fastOptions())
	require.Error(t, err)

	assert.ErrorIs(t, err, godesk.ErrServiceDiscovery)
	assert.Equal(t, 1, desk.ConnectAttempts())
	assert.False(t, desk.IsConnected())
}

func TestConnectReusesExistingLink(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 700)
	require.NoError(t, desk.Connect(context.Background()))

	session, err := godesk.Connect(context.Background(), mock.NewCentral(desk), "AA:01", fastOptions())
	require.NoError(t, err)
	assert.True(t, session.IsConnected())
	assert.Equal(t, 1, desk.ConnectAttempts(), "no second link request")
}

func TestConnectCanceled(t *testing.T) {
	desk := mock.NewDesk("AA:01", "Desk 123", 700)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := godesk.Connect(ctx, mock.NewCentral(desk), "", fastOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, desk.IsConnected())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "discovering-services", godesk.StateDiscoveringServices.String())
	assert.Equal(t, "ready", godesk.StateReady.String())
}
