package main

import (
	"fmt"
	"time"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/internal/config"
	"github.com/mlsorensen/godesk/pkg/desks/mock"
)

// simulatedAddress is the address of the desk served by --mock.
const simulatedAddress = "E8:5B:5B:00:00:01"

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func newCentral() godesk.Central {
	if useMock {
		return mock.NewCentral(mock.NewDesk(simulatedAddress, "Desk 7201 (simulated)", 750))
	}
	return godesk.NewBluetoothCentral()
}

func options() godesk.Options {
	opts := godesk.DefaultOptions()
	if useMock {
		opts.KnownScanWindow = 200 * time.Millisecond
		opts.FreshScanWindow = 200 * time.Millisecond
		opts.ScanSettle = 0
	}
	return opts
}

// openController returns a controller for the configured desk. A desk learned by
// pairing is written back to the config file.
func openController(cfg *config.Config) *godesk.Controller {
	ctrl := godesk.NewController(newCentral(), cfg.DeskAddress, options())
	ctrl.OnDeviceLearned(func(address string) {
		if useMock {
			fmt.Printf("Paired with simulated desk %s (not saved)\n", address)
			return
		}
		cfg.DeskAddress = address
		if err := cfg.Save(); err != nil {
			fmt.Printf("Warning: paired with %s but could not save it: %v\n", address, err)
			return
		}
		fmt.Printf("Paired with desk %s\n", address)
	})
	return ctrl
}
