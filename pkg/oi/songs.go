package oi

import "github.com/koster51/heat-seaking-roomba/internal/log"

// Song slots on the base. Each slot holds up to 16 notes.
const (
	SongConnect byte = 0 // played when the steering channel comes up
	SongFound   byte = 1 // human detected during a search
	SongSuccess byte = 2 // obstacle reached during a forward seek
	SongBoot    byte = 3 // link-check beep during Wake
)

// Note is one MIDI note/duration pair (duration in 1/64ths of a second).
type Note struct {
	Number   byte
	Duration byte
}

var (
	bootBeep     = []Note{{64, 16}}
	connectChime = []Note{{72, 32}, {76, 32}}
	foundChime   = []Note{{76, 32}, {72, 32}}
	successChime = []Note{{72, 32}, {76, 32}, {79, 32}}
)

// DefineSong stores a song in the given slot.
func (c *Conn) DefineSong(slot byte, notes []Note) error {
	data := make([]byte, 0, 2+2*len(notes))
	data = append(data, slot, byte(len(notes)))
	for _, n := range notes {
		data = append(data, n.Number, n.Duration)
	}
	return c.Send(OpSong, data...)
}

// PlaySong plays the song stored in the given slot.
func (c *Conn) PlaySong(slot byte) error {
	return c.Send(OpPlay, slot)
}

// Chimes plays alert patterns on the base's speaker. Triggers are
// fire-and-forget: a failed write is logged and otherwise ignored,
// since alerts are notifications, not part of control correctness.
type Chimes struct {
	Conn *Conn
}

// Connected plays the channel-up chime.
func (ch *Chimes) Connected() {
	ch.play(SongConnect, connectChime)
}

// HumanFound plays the found-human chime.
func (ch *Chimes) HumanFound() {
	ch.play(SongFound, foundChime)
}

// SeekSuccess plays the seek-complete chime.
func (ch *Chimes) SeekSuccess() {
	ch.play(SongSuccess, successChime)
}

func (ch *Chimes) play(slot byte, notes []Note) {
	if err := ch.Conn.DefineSong(slot, notes); err != nil {
		log.Warn("chime define failed", "slot", slot, "error", err)
		return
	}
	if err := ch.Conn.PlaySong(slot); err != nil {
		log.Warn("chime play failed", "slot", slot, "error", err)
	}
}
