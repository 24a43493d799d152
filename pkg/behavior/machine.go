package behavior

import (
	"time"

	"github.com/koster51/heat-seaking-roomba/internal/log"
	"github.com/koster51/heat-seaking-roomba/pkg/oi"
)

// Actuator sends drive motions to the base. Write failures are
// best-effort: the machine logs them and continues, losing at most the
// current tick's motion.
type Actuator interface {
	Drive(oi.Direction) error
	Stop() error
}

// SensorReader answers the two per-tick detection queries.
type SensorReader interface {
	HumanPresent() bool
	ObstacleNear() bool
}

// Alerter plays non-blocking alert patterns. Not part of control
// correctness; a lost alert changes nothing.
type Alerter interface {
	HumanFound()
	SeekSuccess()
}

// Machine is the behavior arbitration state machine. It owns Behavior
// and the SearchSession exclusively and is driven from a single
// goroutine by the control loop, so it carries no locks. It performs
// no I/O of its own beyond the injected actuator/sensor/alert ports
// and therefore never fails.
type Machine struct {
	act     Actuator
	sensors SensorReader
	alerts  Alerter
	events  EventSink

	searchTimeout time.Duration

	behavior Behavior
	manual   oi.Direction
	session  *SearchSession
}

// NewMachine builds a machine starting in Idle. events may be nil.
func NewMachine(act Actuator, sensors SensorReader, alerts Alerter, events EventSink, searchTimeout time.Duration) *Machine {
	if events == nil {
		events = nopSink{}
	}
	return &Machine{
		act:           act,
		sensors:       sensors,
		alerts:        alerts,
		events:        events,
		searchTimeout: searchTimeout,
		behavior:      Idle,
	}
}

// Behavior returns the currently-active behavior.
func (m *Machine) Behavior() Behavior {
	return m.behavior
}

// ManualDirection returns the motion being executed in ManualDrive.
// Only meaningful while Behavior() == ManualDrive.
func (m *Machine) ManualDirection() oi.Direction {
	return m.manual
}

// Session returns a copy of the active search session, if any.
func (m *Machine) Session() (SearchSession, bool) {
	if m.session == nil {
		return SearchSession{}, false
	}
	return *m.session, true
}

// HandleCommand applies one remote command. A command always overrides
// the current behavior, whatever it is: any active search session is
// discarded immediately and no stale timer survives the switch.
func (m *Machine) HandleCommand(cmd Command, now time.Time) {
	log.Info("command received", "command", string(cmd), "behavior", m.behavior.String())
	m.events.Record(Event{
		Type:    EventCommand,
		Message: string(cmd),
		Meta:    map[string]any{"prior_behavior": m.behavior.String()},
	})

	m.session = nil

	switch cmd {
	case CmdForward, CmdBackward, CmdLeft, CmdRight:
		dir, _ := cmd.Direction()
		// Brake before redirecting, for every prior state.
		m.stop()
		m.drive(dir)
		m.manual = dir
		m.transition(ManualDrive)

	case CmdStop:
		m.stop()
		m.transition(Idle)

	case CmdSearchLeft:
		m.session = newSearchSession(oi.Left, now)
		m.transition(SearchLeft)

	case CmdSearchRight:
		m.session = newSearchSession(oi.Right, now)
		m.transition(SearchRight)

	case CmdSeekForward:
		// Drive begins on the next tick.
		m.transition(SeekForward)
	}
}

// Tick runs one sensor-driven evaluation. The control loop calls it
// only on ticks where no command arrived; at most one behavior
// transition results.
func (m *Machine) Tick(now time.Time) {
	switch m.behavior {
	case SearchLeft, SearchRight:
		m.tickSearch(now)
	case SeekForward:
		m.tickSeek()
	case Idle, ManualDrive:
		// No autonomous evaluation; behavior persists until the next
		// command.
	}
}

func (m *Machine) tickSearch(now time.Time) {
	m.drive(m.session.Direction)

	if m.sensors.HumanPresent() {
		log.Info("human detected, stopping search", "session", m.session.ID)
		m.stop()
		m.alerts.HumanFound()
		m.events.Record(Event{
			Type:    EventHumanFound,
			Message: "human detected during search",
			Meta:    map[string]any{"session": m.session.ID, "direction": m.session.Direction.String()},
		})
		m.session = nil
		m.transition(Idle)
		return
	}

	// Detection wins on the boundary: timeout is only checked when no
	// human was seen this tick.
	if m.session.Expired(now, m.searchTimeout) {
		log.Info("search timed out", "session", m.session.ID, "timeout", m.searchTimeout)
		m.stop()
		m.events.Record(Event{
			Type:    EventSearchTimeout,
			Message: "search ended without detection",
			Meta:    map[string]any{"session": m.session.ID, "direction": m.session.Direction.String()},
		})
		m.session = nil
		m.transition(Idle)
	}
}

func (m *Machine) tickSeek() {
	m.drive(oi.Forward)

	if m.sensors.ObstacleNear() {
		log.Info("obstacle detected, seek complete")
		m.stop()
		m.alerts.SeekSuccess()
		m.events.Record(Event{
			Type:    EventSeekSuccess,
			Message: "obstacle reached during forward seek",
		})
		m.transition(Idle)
	}
}

func (m *Machine) transition(to Behavior) {
	if m.behavior == to {
		return
	}
	from := m.behavior
	m.behavior = to
	log.Debug("behavior changed", "from", from.String(), "to", to.String())
	m.events.Record(Event{
		Type:    EventTransition,
		Message: from.String() + " -> " + to.String(),
	})
}

func (m *Machine) drive(d oi.Direction) {
	if err := m.act.Drive(d); err != nil {
		log.Warn("drive write failed, motion lost this tick", "direction", d.String(), "error", err)
	}
}

func (m *Machine) stop() {
	if err := m.act.Stop(); err != nil {
		log.Warn("stop write failed", "error", err)
	}
}
