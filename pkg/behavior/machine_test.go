package behavior

import (
	"errors"
	"testing"
	"time"

	"github.com/koster51/heat-seaking-roomba/pkg/oi"
)

// mockActuator records every motion sent to the base.
type mockActuator struct {
	calls []string
	err   error
}

func (m *mockActuator) Drive(d oi.Direction) error {
	m.calls = append(m.calls, d.String())
	return m.err
}

func (m *mockActuator) Stop() error {
	m.calls = append(m.calls, "stop")
	return m.err
}

func (m *mockActuator) reset() { m.calls = nil }

// fakeSensors returns scripted answers.
type fakeSensors struct {
	human    bool
	obstacle bool
}

func (f *fakeSensors) HumanPresent() bool { return f.human }
func (f *fakeSensors) ObstacleNear() bool { return f.obstacle }

// countAlerter counts alert triggers.
type countAlerter struct {
	found   int
	success int
}

func (c *countAlerter) HumanFound() { c.found++ }
func (c *countAlerter) SeekSuccess() { c.success++ }

// collectSink keeps recorded events.
type collectSink struct {
	events []Event
}

func (c *collectSink) Record(e Event) { c.events = append(c.events, e) }

func (c *collectSink) count(typ string) int {
	n := 0
	for _, e := range c.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func newTestMachine() (*Machine, *mockActuator, *fakeSensors, *countAlerter, *collectSink) {
	act := &mockActuator{}
	sens := &fakeSensors{}
	al := &countAlerter{}
	sink := &collectSink{}
	m := NewMachine(act, sens, al, sink, 10*time.Second)
	return m, act, sens, al, sink
}

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMachine_StartsIdle(t *testing.T) {
	m, _, _, _, _ := newTestMachine()
	if m.Behavior() != Idle {
		t.Fatalf("initial behavior: got %s, want idle", m.Behavior())
	}
	if _, ok := m.Session(); ok {
		t.Fatal("no session should exist at start")
	}
}

func TestParseCommand(t *testing.T) {
	for _, payload := range []string{
		"forward", "backward", "left", "right", "stop",
		"search_left", "search_right", "seek_forward",
	} {
		if _, ok := ParseCommand(payload); !ok {
			t.Errorf("ParseCommand(%q) should succeed", payload)
		}
	}
	for _, payload := range []string{"", "FORWARD", "spin", "search", "forward "} {
		if _, ok := ParseCommand(payload); ok {
			t.Errorf("ParseCommand(%q) should be rejected", payload)
		}
	}
}

func TestMachine_MutualExclusivity(t *testing.T) {
	m, _, _, _, _ := newTestMachine()

	// Every command sequence leaves exactly one behavior active, and
	// a session exists iff the behavior is a search.
	seq := []Command{
		CmdForward, CmdSearchLeft, CmdSeekForward, CmdSearchRight,
		CmdBackward, CmdStop, CmdSearchRight, CmdLeft, CmdRight, CmdStop,
	}
	want := []Behavior{
		ManualDrive, SearchLeft, SeekForward, SearchRight,
		ManualDrive, Idle, SearchRight, ManualDrive, ManualDrive, Idle,
	}

	for i, cmd := range seq {
		m.HandleCommand(cmd, t0)
		if m.Behavior() != want[i] {
			t.Fatalf("after %q: got %s, want %s", cmd, m.Behavior(), want[i])
		}
		_, hasSession := m.Session()
		isSearch := want[i] == SearchLeft || want[i] == SearchRight
		if hasSession != isSearch {
			t.Fatalf("after %q: session=%v, behavior=%s", cmd, hasSession, want[i])
		}
	}
}

func TestMachine_BrakeBeforeRedirect(t *testing.T) {
	for _, prior := range []Command{CmdStop, CmdForward, CmdSearchLeft, CmdSeekForward} {
		m, act, _, _, _ := newTestMachine()
		m.HandleCommand(prior, t0)
		act.reset()

		m.HandleCommand(CmdBackward, t0)

		if len(act.calls) != 2 || act.calls[0] != "stop" || act.calls[1] != "backward" {
			t.Errorf("prior %q: got calls %v, want [stop backward]", prior, act.calls)
		}
	}
}

func TestMachine_SearchDrivesEachTick(t *testing.T) {
	m, act, _, _, _ := newTestMachine()
	m.HandleCommand(CmdSearchRight, t0)
	act.reset()

	m.Tick(t0.Add(200 * time.Millisecond))
	m.Tick(t0.Add(400 * time.Millisecond))

	if len(act.calls) != 2 || act.calls[0] != "right" || act.calls[1] != "right" {
		t.Fatalf("got calls %v, want [right right]", act.calls)
	}
}

func TestMachine_SearchFindsHuman(t *testing.T) {
	m, act, sens, al, sink := newTestMachine()
	m.HandleCommand(CmdSearchLeft, t0)
	act.reset()

	sens.human = true
	m.Tick(t0.Add(3 * time.Second))

	if m.Behavior() != Idle {
		t.Fatalf("behavior after detection: got %s, want idle", m.Behavior())
	}
	if _, ok := m.Session(); ok {
		t.Fatal("session must be discarded on detection")
	}
	if al.found != 1 {
		t.Fatalf("found alert count: got %d, want 1", al.found)
	}
	if al.success != 0 {
		t.Fatalf("no success alert expected, got %d", al.success)
	}
	// Detection tick still drove the search motion before stopping.
	if act.calls[0] != "left" || act.calls[len(act.calls)-1] != "stop" {
		t.Fatalf("got calls %v, want drive then stop", act.calls)
	}

	// Further ticks are inert and emit nothing.
	act.reset()
	m.Tick(t0.Add(4 * time.Second))
	if len(act.calls) != 0 {
		t.Fatalf("idle tick emitted %v", act.calls)
	}
	if al.found != 1 {
		t.Fatalf("alert fired again: %d", al.found)
	}
	if n := sink.count(EventHumanFound); n != 1 {
		t.Fatalf("human_found events: got %d, want 1", n)
	}
}

func TestMachine_SearchTimeoutNoAlert(t *testing.T) {
	m, act, _, al, sink := newTestMachine()
	m.HandleCommand(CmdSearchLeft, t0)
	act.reset()

	// At exactly the cap the search continues; strictly past it ends.
	m.Tick(t0.Add(10 * time.Second))
	if m.Behavior() != SearchLeft {
		t.Fatalf("at exactly 10s: got %s, want search_left", m.Behavior())
	}

	m.Tick(t0.Add(10*time.Second + time.Millisecond))
	if m.Behavior() != Idle {
		t.Fatalf("past 10s: got %s, want idle", m.Behavior())
	}
	if _, ok := m.Session(); ok {
		t.Fatal("session must be discarded on timeout")
	}
	if al.found != 0 || al.success != 0 {
		t.Fatalf("timeout must not alert: found=%d success=%d", al.found, al.success)
	}
	if act.calls[len(act.calls)-1] != "stop" {
		t.Fatalf("timeout must stop the base, calls=%v", act.calls)
	}
	if n := sink.count(EventSearchTimeout); n != 1 {
		t.Fatalf("search_timeout events: got %d, want 1", n)
	}
}

func TestMachine_DetectionWinsOnTimeoutBoundary(t *testing.T) {
	m, _, sens, al, _ := newTestMachine()
	m.HandleCommand(CmdSearchRight, t0)

	sens.human = true
	m.Tick(t0.Add(11 * time.Second))

	if al.found != 1 {
		t.Fatalf("detection past the cap must still alert, found=%d", al.found)
	}
}

func TestMachine_SeekForward(t *testing.T) {
	m, act, sens, al, _ := newTestMachine()
	m.HandleCommand(CmdSeekForward, t0)

	// No drive until the first tick.
	if len(act.calls) != 0 {
		t.Fatalf("seek_forward command drove immediately: %v", act.calls)
	}

	// Forward re-emitted every tick while no obstacle.
	for i := 0; i < 5; i++ {
		m.Tick(t0.Add(time.Duration(i+1) * 100 * time.Millisecond))
	}
	if m.Behavior() != SeekForward {
		t.Fatalf("behavior: got %s, want seek_forward", m.Behavior())
	}
	if len(act.calls) != 5 {
		t.Fatalf("drive calls: got %d, want 5 (%v)", len(act.calls), act.calls)
	}
	for _, call := range act.calls {
		if call != "forward" {
			t.Fatalf("unexpected call %q in %v", call, act.calls)
		}
	}

	// Obstacle on tick 6: stop, idle, one success alert.
	sens.obstacle = true
	act.reset()
	m.Tick(t0.Add(600 * time.Millisecond))

	if m.Behavior() != Idle {
		t.Fatalf("behavior after obstacle: got %s, want idle", m.Behavior())
	}
	if al.success != 1 || al.found != 0 {
		t.Fatalf("alerts: success=%d found=%d, want 1/0", al.success, al.found)
	}
	if act.calls[len(act.calls)-1] != "stop" {
		t.Fatalf("obstacle must stop the base, calls=%v", act.calls)
	}

	// Inert afterwards, alert fired exactly once.
	m.Tick(t0.Add(700 * time.Millisecond))
	if al.success != 1 {
		t.Fatalf("success alert repeated: %d", al.success)
	}
}

func TestMachine_ManualDirectionTracksLastCommand(t *testing.T) {
	m, _, _, _, _ := newTestMachine()

	m.HandleCommand(CmdBackward, t0)
	if m.Behavior() != ManualDrive || m.ManualDirection() != oi.Backward {
		t.Fatalf("got %s/%s, want manual_drive/backward", m.Behavior(), m.ManualDirection())
	}

	m.HandleCommand(CmdLeft, t0)
	if m.ManualDirection() != oi.Left {
		t.Fatalf("got %s, want left", m.ManualDirection())
	}
}

func TestMachine_StopIdempotent(t *testing.T) {
	m, act, _, _, _ := newTestMachine()

	m.HandleCommand(CmdStop, t0)
	m.HandleCommand(CmdStop, t0)
	m.HandleCommand(CmdStop, t0)

	if m.Behavior() != Idle {
		t.Fatalf("behavior: got %s, want idle", m.Behavior())
	}
	// Only the repeated stop-frame emission, no other side effects.
	if len(act.calls) != 3 {
		t.Fatalf("calls: got %v, want three stops", act.calls)
	}
	for _, call := range act.calls {
		if call != "stop" {
			t.Fatalf("unexpected call %q", call)
		}
	}
}

func TestMachine_CommandCancelsAutonomousSameTick(t *testing.T) {
	m, _, sens, al, _ := newTestMachine()
	m.HandleCommand(CmdSearchLeft, t0)

	// Command arrives mid-search: session discarded within the same
	// tick, and the old timer never fires afterwards.
	m.HandleCommand(CmdForward, t0.Add(2*time.Second))
	if _, ok := m.Session(); ok {
		t.Fatal("session must be discarded by the overriding command")
	}
	if m.Behavior() != ManualDrive {
		t.Fatalf("behavior: got %s, want manual_drive", m.Behavior())
	}

	// Well past the original search cap: nothing happens.
	sens.human = true
	m.Tick(t0.Add(20 * time.Second))
	if m.Behavior() != ManualDrive {
		t.Fatalf("stale search state acted after cancel: %s", m.Behavior())
	}
	if al.found != 0 {
		t.Fatal("cancelled search must not alert")
	}
}

func TestMachine_EndToEnd_SearchRightTimesOut(t *testing.T) {
	m, act, sens, al, _ := newTestMachine()

	// command "search_right" at t=0
	m.HandleCommand(CmdSearchRight, t0)

	// tick at t=3s, no human -> still searching right
	sens.human = false
	m.Tick(t0.Add(3 * time.Second))
	if m.Behavior() != SearchRight {
		t.Fatalf("at t=3s: got %s, want search_right", m.Behavior())
	}

	// tick at t=11s, no human -> idle, stop emitted, no alert
	act.reset()
	m.Tick(t0.Add(11 * time.Second))
	if m.Behavior() != Idle {
		t.Fatalf("at t=11s: got %s, want idle", m.Behavior())
	}
	stopped := false
	for _, call := range act.calls {
		if call == "stop" {
			stopped = true
		}
	}
	if !stopped {
		t.Fatalf("stop not emitted on timeout, calls=%v", act.calls)
	}
	if al.found != 0 {
		t.Fatal("timeout must not emit the found alert")
	}
}

func TestMachine_ActuatorErrorsDoNotChangeState(t *testing.T) {
	m, act, sens, _, _ := newTestMachine()
	act.err = errors.New("uart write failed")

	m.HandleCommand(CmdSeekForward, t0)
	m.Tick(t0.Add(100 * time.Millisecond))

	// Motion this tick is lost; the machine's state is unaffected.
	if m.Behavior() != SeekForward {
		t.Fatalf("behavior: got %s, want seek_forward", m.Behavior())
	}

	sens.obstacle = true
	m.Tick(t0.Add(200 * time.Millisecond))
	if m.Behavior() != Idle {
		t.Fatalf("behavior: got %s, want idle despite write errors", m.Behavior())
	}
}

func TestMachine_NilEventSink(t *testing.T) {
	act := &mockActuator{}
	m := NewMachine(act, &fakeSensors{}, &countAlerter{}, nil, 10*time.Second)

	m.HandleCommand(CmdSearchLeft, t0)
	m.Tick(t0.Add(time.Second))
	if m.Behavior() != SearchLeft {
		t.Fatalf("behavior: got %s, want search_left", m.Behavior())
	}
}
