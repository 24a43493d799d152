// Package behavior implements the controller's arbitration core: a
// state machine that decides, every control tick, which behavior owns
// the base and what motor and alert actions result.
//
// Exactly one behavior is active at a time. Remote commands always win
// over autonomous behaviors; sensor evidence (a human in the thermal
// frame, an obstacle in range) or a timeout ends the autonomous ones.
package behavior

// Behavior is the single currently-active control mode.
type Behavior int

const (
	// Idle holds the base still until a command arrives.
	Idle Behavior = iota
	// ManualDrive executes the last teleoperation motion.
	ManualDrive
	// SearchLeft rotates in place CCW until a human is seen or the
	// search times out.
	SearchLeft
	// SearchRight rotates in place CW until a human is seen or the
	// search times out.
	SearchRight
	// SeekForward drives straight until an obstacle is in range.
	SeekForward
)

// String returns the behavior name used in logs and the dashboard.
func (b Behavior) String() string {
	switch b {
	case Idle:
		return "idle"
	case ManualDrive:
		return "manual_drive"
	case SearchLeft:
		return "search_left"
	case SearchRight:
		return "search_right"
	case SeekForward:
		return "seek_forward"
	default:
		return "unknown"
	}
}

// Autonomous reports whether the behavior runs without operator input.
func (b Behavior) Autonomous() bool {
	return b == SearchLeft || b == SearchRight || b == SeekForward
}
