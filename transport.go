package godesk

import (
	"context"

	"tinygo.org/x/bluetooth"
)

// Central is the local radio used to find and link desks.
type Central interface {
	// Enable powers up the adapter. It must succeed before scanning.
	Enable() error

	// StartScan begins collecting advertisements. Peripherals seen before the call are forgotten.
	StartScan() error

	// StopScan ends the scan and returns any error the scan itself reported.
	StopScan() error

	// Peripherals returns every device observed since StartScan, deduplicated by address,
	// in the order they were first seen.
	Peripherals() []Peripheral
}

// Peripheral is a remote device observed during a scan.
type Peripheral interface {
	Address() string
	LocalName() string
	RSSI() int16

	// IsConnected reports whether the link to the device is currently up.
	IsConnected() bool

	// Connect establishes the link. Implementations must give up when ctx is done.
	Connect(ctx context.Context) error

	// Disconnect releases the link. It is a no-op when the link is already down.
	Disconnect(ctx context.Context) error

	// DiscoverCharacteristics resolves the requested characteristics of one service.
	// Characteristics the device does not expose are absent from the result.
	DiscoverCharacteristics(ctx context.Context, service bluetooth.UUID, chars ...bluetooth.UUID) ([]Characteristic, error)
}

// Characteristic is a communication endpoint on a linked device.
type Characteristic interface {
	UUID() bluetooth.UUID
	Read(ctx context.Context) ([]byte, error)
	WriteWithoutResponse(ctx context.Context, p []byte) error
}
