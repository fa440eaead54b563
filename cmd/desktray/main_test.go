package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/internal/config"
	"github.com/mlsorensen/godesk/pkg/desks/mock"
)

func testOptions() godesk.Options {
	o := godesk.DefaultOptions()
	o.KnownScanWindow = 5 * time.Millisecond
	o.FreshScanWindow = 5 * time.Millisecond
	o.ScanSettle = 0
	o.RetryPause = time.Millisecond
	o.ReleasePause = time.Millisecond
	o.ConnectTimeout = 50 * time.Millisecond
	o.DiscoverTimeout = 50 * time.Millisecond
	o.IOTimeout = 50 * time.Millisecond
	o.TeardownTimeout = 50 * time.Millisecond
	return o
}

func TestHasDeskWhilePairing(t *testing.T) {
	t.Setenv("GODESK_DESK_ADDRESS", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	desk := mock.NewDesk("AA:01", "Desk 123", 650)
	tr := &tray{
		cfg:  cfg,
		ctrl: godesk.NewController(mock.NewCentral(desk), "", testOptions()),
		log:  zap.NewNop(),
		ctx:  context.Background(),
	}
	tr.ctrl.OnDeviceLearned(tr.saveAddress)
	defer tr.ctrl.Close()
	assert.False(t, tr.hasDesk())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := tr.ctrl.Pair(context.Background())
		assert.NoError(t, err)
	}()
	// Polls the way refreshHeight does while the learned address is being saved.
	for i := 0; i < 50; i++ {
		tr.hasDesk()
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	assert.True(t, tr.hasDesk())
	saved, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "AA:01", saved.DeskAddress)
}
