package behavior

import "github.com/koster51/heat-seaking-roomba/pkg/oi"

// Command is one remote steering instruction from the teleoperation
// channel. The wire form is the plain UTF-8 payload.
type Command string

const (
	CmdForward     Command = "forward"
	CmdBackward    Command = "backward"
	CmdLeft        Command = "left"
	CmdRight       Command = "right"
	CmdStop        Command = "stop"
	CmdSearchLeft  Command = "search_left"
	CmdSearchRight Command = "search_right"
	CmdSeekForward Command = "seek_forward"
)

// ParseCommand maps a channel payload to a Command. Unrecognized
// payloads return ok=false and must cause no state change.
func ParseCommand(payload string) (Command, bool) {
	switch Command(payload) {
	case CmdForward, CmdBackward, CmdLeft, CmdRight, CmdStop,
		CmdSearchLeft, CmdSearchRight, CmdSeekForward:
		return Command(payload), true
	default:
		return "", false
	}
}

// Direction returns the drive motion for a manual drive command.
// ok is false for stop and the autonomous commands.
func (c Command) Direction() (oi.Direction, bool) {
	switch c {
	case CmdForward:
		return oi.Forward, true
	case CmdBackward:
		return oi.Backward, true
	case CmdLeft:
		return oi.Left, true
	case CmdRight:
		return oi.Right, true
	default:
		return oi.Stop, false
	}
}
