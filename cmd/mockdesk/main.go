package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/internal/config"
	"github.com/mlsorensen/godesk/internal/logging"
	"github.com/mlsorensen/godesk/pkg/desks/mock"
)

func main() {
	if err := logging.Initialize("info"); err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	defer logging.Sync()

	log.Println("GoDesk simulated desk demo starting...")

	// The simulated desk behaves like a real one on the wire: it decodes the
	// command bytes and reports its height in desk units.
	desk := mock.NewDesk("E8:5B:5B:00:00:01", "Desk 7201 (simulated)", 720)
	desk.StepUnits = 150
	central := mock.NewCentral(desk)

	opts := godesk.DefaultOptions()
	opts.FreshScanWindow = time.Second
	opts.ScanSettle = 0

	// --- Set up graceful shutdown ---
	// Ctrl+C cancels the context, which aborts whatever the desk is doing.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Println("Shutdown signal received. Disconnecting...")
		cancel()
	}()

	ctrl := godesk.NewController(central, "", opts)
	ctrl.OnDeviceLearned(func(address string) {
		log.Printf("Learned desk address %s", address)
	})
	defer ctrl.Close()

	if err := ctrl.Connect(ctx, ""); err != nil {
		log.Fatalf("Fatal: Could not connect to desk: %v", err)
	}
	log.Println("Connection successful. Cycling through presets...")

	cycle(ctx, ctrl, config.Default().Presets, 2*time.Second)

	log.Println("Application finished gracefully.")
}

// cycle walks the presets until ctx is done, pausing after every step. A failed step also
// pauses and then starts over from the first preset.
func cycle(ctx context.Context, ctrl *godesk.Controller, presets config.Presets, pause time.Duration) {
	for ctx.Err() == nil {
		for _, p := range config.AllPresets() {
			if !step(ctx, ctrl, presets, p) {
				wait(ctx, pause)
				break
			}
			if !wait(ctx, pause) {
				return
			}
		}
	}
}

func step(ctx context.Context, ctrl *godesk.Controller, presets config.Presets, p config.Preset) bool {
	log.Printf("--> Moving to %s", presets.Label(p))
	if err := ctrl.MoveToPreset(ctx, p.Name(), presets.Get(p)); err != nil {
		log.Printf("Error moving desk: %s", godesk.ShortMessage(err))
		return false
	}

	height, err := ctrl.GetHeight(ctx)
	if err != nil {
		log.Printf("Error reading height: %v", err)
		return false
	}
	log.Printf("--> Desk is at %s", config.FormatCM(height))
	return true
}

// wait reports false when ctx ended before pause elapsed.
func wait(ctx context.Context, pause time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(pause):
		return true
	}
}
