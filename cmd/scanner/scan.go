package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mlsorensen/godesk"
	"github.com/mlsorensen/godesk/internal/logging"
)

func main() {
	if err := logging.Initialize(""); err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	defer logging.Sync()

	log.Println("--- GoDesk Scanner ---")

	scanDuration := 15 * time.Second
	log.Printf("Starting BLE scan for %s...", scanDuration)
	log.Println("Make sure your desk is powered and not connected to another device.")

	// Blocks for the whole window. With no keywords given, any device whose
	// name contains "desk", "dpg" or "linak" is reported.
	devices, err := godesk.Scan(context.Background(), godesk.NewBluetoothCentral(), scanDuration)
	if err != nil {
		log.Fatalf("Fatal: Scan failed: %s", godesk.ShortMessage(err))
	}

	if len(devices) == 0 {
		log.Println("\nScan complete. No desks found.")
		log.Println("Tip: Close the vendor app on your phone, it may be holding the connection.")
		return
	}

	fmt.Println("\n--- Found Desks ---")
	for i, device := range devices {
		fmt.Printf("%d: Name: %s\n", i+1, device.Name)
		fmt.Printf("   ID:   %s\n", device.ID)
		fmt.Printf("   RSSI: %d\n\n", device.RSSI)
	}
	fmt.Println("-------------------")
}
