package mqttbridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mlsorensen/godesk/internal/config"
	"github.com/mlsorensen/godesk/pkg/desks/linak/comms"
)

// Action is what a set command asks the desk to do.
type Action int

const (
	ActionMove Action = iota
	ActionStop
	ActionUp
	ActionDown
)

func (a Action) String() string {
	switch a {
	case ActionMove:
		return "move"
	case ActionStop:
		return "stop"
	case ActionUp:
		return "up"
	case ActionDown:
		return "down"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Command is a parsed set payload. HeightMM is only meaningful for ActionMove.
type Command struct {
	Action   Action
	HeightMM uint16
}

// ParseCommand interprets a set payload. Accepted forms, case-insensitive and
// trimmed: "stop", "up", "down", a preset name, or a height in millimeters.
func ParseCommand(payload []byte, presets config.Presets) (Command, error) {
	s := strings.ToLower(strings.TrimSpace(string(payload)))

	switch s {
	case "":
		return Command{}, fmt.Errorf("%w: empty payload", ErrInvalidCommand)
	case "stop":
		return Command{Action: ActionStop}, nil
	case "up":
		return Command{Action: ActionUp}, nil
	case "down":
		return Command{Action: ActionDown}, nil
	}

	if p, err := config.ParsePreset(s); err == nil {
		return Command{Action: ActionMove, HeightMM: presets.Get(p)}, nil
	}

	mm, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidCommand, s)
	}
	if mm == 0 || mm > comms.MaxHeightMM {
		return Command{}, fmt.Errorf("%w: height %d mm out of range (1-%d)", ErrInvalidCommand, mm, comms.MaxHeightMM)
	}
	return Command{Action: ActionMove, HeightMM: uint16(mm)}, nil
}
