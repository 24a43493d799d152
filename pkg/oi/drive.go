package oi

import "encoding/binary"

// Direction is a semantic drive motion for the differential base.
type Direction int

const (
	Stop Direction = iota
	Forward
	Backward
	Left
	Right
)

// String returns the lowercase motion name.
func (d Direction) String() string {
	switch d {
	case Stop:
		return "stop"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Drive opcode velocity/radius encodings. Radius 0x8000 means "drive
// straight"; radius +1/-1 means "spin in place" CCW/CW.
const (
	radiusStraight int16 = -0x8000
	radiusSpinCCW  int16 = 1
	radiusSpinCW   int16 = -1

	spinVelocity  int16 = 100 // mm/s while rotating in place
	driveVelocity int16 = 200 // mm/s while driving straight
)

// DriveFrame encodes a motion as a 5-byte Drive command frame:
// opcode 137, signed 16-bit velocity, signed 16-bit radius, big-endian.
func DriveFrame(d Direction) [5]byte {
	var velocity, radius int16
	switch d {
	case Forward:
		velocity, radius = driveVelocity, radiusStraight
	case Backward:
		velocity, radius = -driveVelocity, radiusStraight
	case Left:
		velocity, radius = spinVelocity, radiusSpinCCW
	case Right:
		velocity, radius = spinVelocity, radiusSpinCW
	case Stop:
		velocity, radius = 0, radiusStraight
	}

	var frame [5]byte
	frame[0] = OpDrive
	binary.BigEndian.PutUint16(frame[1:3], uint16(velocity))
	binary.BigEndian.PutUint16(frame[3:5], uint16(radius))
	return frame
}

// Drive sends the drive frame for the given motion.
func (c *Conn) Drive(d Direction) error {
	frame := DriveFrame(d)
	return c.Send(frame[0], frame[1:]...)
}

// Stop sends the zero-velocity drive frame.
func (c *Conn) Stop() error {
	return c.Drive(Stop)
}
