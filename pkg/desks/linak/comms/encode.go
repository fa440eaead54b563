package comms

import (
	"encoding/binary"
	"fmt"
)

const (
	opStop   byte = 0xFF
	opUp     byte = 0x47
	opDown   byte = 0x46
	opMoveTo byte = 0x05
)

// CommandKind identifies one of the fixed movement commands.
type CommandKind uint8

const (
	KindStop CommandKind = iota
	KindUp
	KindDown
	KindMoveToHeight
)

func (k CommandKind) String() string {
	switch k {
	case KindStop:
		return "Stop"
	case KindUp:
		return "Up"
	case KindDown:
		return "Down"
	case KindMoveToHeight:
		return "MoveToHeight"
	default:
		return fmt.Sprintf("CommandKind(%d)", k)
	}
}

// MovementCommand is a single command for the control characteristic. Units is only
// meaningful for KindMoveToHeight and is expressed in tenths of a millimeter.
type MovementCommand struct {
	Kind  CommandKind
	Units uint16
}

var (
	Stop = MovementCommand{Kind: KindStop}
	Up   = MovementCommand{Kind: KindUp}
	Down = MovementCommand{Kind: KindDown}
)

// MoveToHeight returns a command that drives the desk to the given position in desk units.
func MoveToHeight(units uint16) MovementCommand {
	return MovementCommand{Kind: KindMoveToHeight, Units: units}
}

// Bytes encodes the command for transmission.
func (c MovementCommand) Bytes() []byte {
	switch c.Kind {
	case KindUp:
		return BuildUpCommand()
	case KindDown:
		return BuildDownCommand()
	case KindMoveToHeight:
		return BuildMoveToCommand(c.Units)
	default:
		return BuildStopCommand()
	}
}

func (c MovementCommand) String() string {
	if c.Kind == KindMoveToHeight {
		return fmt.Sprintf("MoveToHeight(%d)", c.Units)
	}
	return c.Kind.String()
}

// Encode is shorthand for cmd.Bytes().
func Encode(cmd MovementCommand) []byte {
	return cmd.Bytes()
}

// BuildStopCommand creates the command that halts any movement.
func BuildStopCommand() []byte {
	return []byte{opStop, 0x00}
}

// BuildUpCommand creates the command to jog the desk upwards.
func BuildUpCommand() []byte {
	return []byte{opUp, 0x00}
}

// BuildDownCommand creates the command to jog the desk downwards.
func BuildDownCommand() []byte {
	return []byte{opDown, 0x00}
}

// BuildMoveToCommand creates the move-to-position command.
// Format: [0x05, low byte, high byte]
func BuildMoveToCommand(units uint16) []byte {
	msg := make([]byte, 3)
	msg[0] = opMoveTo
	binary.LittleEndian.PutUint16(msg[1:], units)
	return msg
}

// DecodeCommand is the inverse of Bytes. It is used by simulated desks to interpret writes.
func DecodeCommand(buf []byte) (MovementCommand, bool) {
	if len(buf) < 2 {
		return MovementCommand{}, false
	}
	switch buf[0] {
	case opStop:
		return Stop, true
	case opUp:
		return Up, true
	case opDown:
		return Down, true
	case opMoveTo:
		if len(buf) < 3 {
			return MovementCommand{}, false
		}
		return MoveToHeight(binary.LittleEndian.Uint16(buf[1:3])), true
	}
	return MovementCommand{}, false
}
