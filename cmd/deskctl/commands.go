package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/internal/config"
	"github.com/mlsorensen/godesk/pkg/desks/linak/comms"
)

var scanTimeout int

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(heightCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(presetCmd)

	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
	presetCmd.AddCommand(presetSetCmd)
}

// scanCmd lists desks in range
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for desks in range",
	Example: `  # Scan for 10 seconds (default)
  deskctl scan

  # Longer scan
  deskctl scan --timeout 30`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for desks (timeout: %ds)...\n\n", scanTimeout)

	devices, err := godesk.Scan(cmd.Context(), newCentral(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No desks found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the desk is powered and within Bluetooth range")
		fmt.Println("  - Close the vendor app, which may hold the connection")
		fmt.Println("  - Try increasing --timeout")
		return nil
	}

	fmt.Printf("Found %d desk(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Printf("%d. %s\n", i+1, d.Name)
		fmt.Printf("   Address: %s\n", d.ID)
		fmt.Printf("   RSSI:    %d\n\n", d.RSSI)
	}
	fmt.Println("Use 'deskctl pair' to pair with the first desk found")
	return nil
}

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair with the first desk found and remember it",
	Long: `Scan for desks, connect to the first one found and store its address
in the config file. Any previously paired desk is forgotten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctrl := openController(cfg)
		defer ctrl.Close()

		fmt.Println("Scanning for desks...")
		address, err := ctrl.Pair(cmd.Context())
		if err != nil {
			return err
		}

		height, err := ctrl.GetHeight(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Desk %s is at %s\n", address, config.FormatCM(height))
		return nil
	},
}

var heightCmd = &cobra.Command{
	Use:   "height",
	Short: "Print the current desk height",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctrl := openController(cfg)
		defer ctrl.Close()

		height, err := ctrl.GetHeight(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d mm)\n", config.FormatCM(height), height)
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <mm|preset>",
	Short: "Move the desk to a height or preset",
	Example: `  # Move to the standing preset
  deskctl move grande

  # Move to 98 cm
  deskctl move 980`,
	Args: cobra.ExactArgs(1),
	RunE: runMove,
}

func runMove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctrl := openController(cfg)
	defer ctrl.Close()

	ctx := cmd.Context()
	if p, perr := config.ParsePreset(args[0]); perr == nil {
		target := cfg.Presets.Get(p)
		fmt.Printf("Moving to %s...\n", cfg.Presets.Label(p))
		if err := ctrl.MoveToPreset(ctx, p.Name(), target); err != nil {
			return err
		}
	} else {
		target, err := parseHeight(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Moving to %s...\n", config.FormatCM(target))
		if err := ctrl.MoveToHeight(ctx, target); err != nil {
			return err
		}
	}

	height, err := ctrl.GetHeight(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Desk is at %s\n", config.FormatCM(height))
	return nil
}

func parseHeight(s string) (uint16, error) {
	mm, err := strconv.ParseUint(s, 10, 16)
	if err != nil || mm == 0 || mm > comms.MaxHeightMM {
		return 0, fmt.Errorf("%q is neither a preset nor a height in mm (1-%d)", s, comms.MaxHeightMM)
	}
	return uint16(mm), nil
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop desk movement",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctrl := openController(cfg)
		defer ctrl.Close()

		if err := ctrl.Connect(cmd.Context(), cfg.DeskAddress); err != nil {
			return err
		}
		return ctrl.Stop(cmd.Context())
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Jog the desk upwards",
	RunE: func(cmd *cobra.Command, args []string) error {
		return jog(cmd, (*godesk.Controller).Up)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Jog the desk downwards",
	RunE: func(cmd *cobra.Command, args []string) error {
		return jog(cmd, (*godesk.Controller).Down)
	},
}

func jog(cmd *cobra.Command, fn func(*godesk.Controller, context.Context) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctrl := openController(cfg)
	defer ctrl.Close()
	return fn(ctrl, cmd.Context())
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the height presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		for _, p := range config.AllPresets() {
			fmt.Printf("%-7s %4d mm  (%s)\n", p.String(), cfg.Presets.Get(p), config.FormatCM(cfg.Presets.Get(p)))
		}
		if cfg.DeskAddress == "" {
			fmt.Println("\nNo desk paired yet.")
		} else {
			fmt.Printf("\nDesk: %s\n", cfg.DeskAddress)
		}
		return nil
	},
}

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage height presets",
}

var presetSetCmd = &cobra.Command{
	Use:     "set <name> <mm>",
	Short:   "Change a preset height",
	Example: `  deskctl preset set grande 1100`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.ParsePreset(args[0])
		if err != nil {
			return err
		}
		mm, err := parseHeight(args[1])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Presets.Set(p, mm)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Preset %s is now %s\n", p.Name(), config.FormatCM(mm))
		return nil
	},
}
