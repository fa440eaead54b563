// Package comms provides communication details for Linak desk panels (DPG / Desk gateway).
package comms

import "tinygo.org/x/bluetooth"

var (
	ControlServiceUUID, _ = bluetooth.ParseUUID("99fa0001-338a-1024-8a49-009c0215f78a")
	ControlCharUUID, _    = bluetooth.ParseUUID("99fa0002-338a-1024-8a49-009c0215f78a")
	HeightCharUUID, _     = bluetooth.ParseUUID("99fa0021-338a-1024-8a49-009c0215f78a")

	// ReferenceInputCharUUID is the position reference input. Movement goes through the
	// control characteristic, so this is only listed for diagnostics.
	ReferenceInputCharUUID, _ = bluetooth.ParseUUID("99fa0031-338a-1024-8a49-009c0215f78a")
)

// NameKeywords are matched case-insensitively against advertised names during a scan.
var NameKeywords = []string{"desk", "dpg", "linak"}

var (
	StopCommand = BuildStopCommand()
	UpCommand   = BuildUpCommand()
	DownCommand = BuildDownCommand()
)
