// Package control drives the behavior machine at a fixed period and
// contains faults at the loop boundary: stop the base, cool down,
// reconnect the steering channel, resume.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/koster51/heat-seaking-roomba/internal/log"
	"github.com/koster51/heat-seaking-roomba/pkg/behavior"
)

// CommandSource is the steering channel as the loop sees it: a
// non-blocking drain plus a reconnect primitive for fault recovery.
type CommandSource interface {
	PollLatest() (string, bool)
	Reconnect(ctx context.Context) error
}

// Status is a per-tick snapshot published to observers (dashboard).
type Status struct {
	Behavior        string    `json:"behavior"`
	ManualDirection string    `json:"manual_direction,omitempty"`
	SearchID        string    `json:"search_id,omitempty"`
	SearchDirection string    `json:"search_direction,omitempty"`
	SearchStartedAt time.Time `json:"search_started_at,omitempty"`
	Ticks           uint64    `json:"ticks"`
	Faults          uint64    `json:"faults"`
}

// Loop owns timing. One iteration per period; within an iteration,
// command ingestion strictly precedes sensor-driven evaluation, so at
// most one behavior transition happens per tick.
type Loop struct {
	machine *behavior.Machine
	src     CommandSource
	act     behavior.Actuator
	events  behavior.EventSink

	period   time.Duration
	coolDown time.Duration

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration)
	onTick func(Status)

	ticks  uint64
	faults uint64
}

// NewLoop builds a loop driver. events may be nil.
func NewLoop(machine *behavior.Machine, src CommandSource, act behavior.Actuator, events behavior.EventSink, period, coolDown time.Duration) *Loop {
	l := &Loop{
		machine:  machine,
		src:      src,
		act:      act,
		events:   events,
		period:   period,
		coolDown: coolDown,
		now:      time.Now,
		sleep:    ctxSleep,
	}
	return l
}

// SetOnTick registers an observer called with a status snapshot after
// every completed tick. Must be set before Run.
func (l *Loop) SetOnTick(fn func(Status)) {
	l.onTick = fn
}

// Run ticks until the context is cancelled, then issues a final stop.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	log.Info("control loop started", "period", l.period)

	for {
		select {
		case <-ctx.Done():
			l.stopBase()
			log.Info("control loop stopped", "ticks", l.ticks, "faults", l.faults)
			return ctx.Err()
		case <-ticker.C:
			if err := l.safeTick(); err != nil {
				l.containFault(ctx, err)
			}
		}
	}
}

// safeTick runs one iteration, converting panics into errors so no
// fault can escape the loop boundary.
func (l *Loop) safeTick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()

	now := l.now()

	if payload, ok := l.src.PollLatest(); ok {
		if cmd, valid := behavior.ParseCommand(payload); valid {
			l.machine.HandleCommand(cmd, now)
		} else {
			// Unrecognized payloads are no-ops; the tick proceeds as
			// if no command arrived.
			log.Debug("unrecognized steering payload ignored", "payload", payload)
			l.machine.Tick(now)
		}
	} else {
		l.machine.Tick(now)
	}

	l.ticks++
	l.publish()
	return nil
}

// containFault applies the recovery sequence. stop() is always the
// first action: no fault may leave the base in motion. Then a fixed
// cool-down and a channel reconnect; there is no backoff or circuit
// breaker beyond that, deliberately.
func (l *Loop) containFault(ctx context.Context, cause error) {
	l.faults++
	log.Error("tick fault, recovering", "error", cause, "faults", l.faults)

	l.stopBase()

	if l.events != nil {
		l.events.Record(behavior.Event{
			Type:    "fault",
			Message: cause.Error(),
		})
	}

	l.sleep(ctx, l.coolDown)
	if ctx.Err() != nil {
		return
	}

	if err := l.src.Reconnect(ctx); err != nil {
		// Leave it to the next fault cycle; ticking resumes either way.
		log.Error("steering channel reconnect failed", "error", err)
	}

	l.publish()
}

func (l *Loop) stopBase() {
	if err := l.act.Stop(); err != nil {
		log.Warn("recovery stop write failed", "error", err)
	}
}

func (l *Loop) publish() {
	if l.onTick == nil {
		return
	}
	st := Status{
		Behavior: l.machine.Behavior().String(),
		Ticks:    l.ticks,
		Faults:   l.faults,
	}
	if l.machine.Behavior() == behavior.ManualDrive {
		st.ManualDirection = l.machine.ManualDirection().String()
	}
	if s, ok := l.machine.Session(); ok {
		st.SearchID = s.ID
		st.SearchDirection = s.Direction.String()
		st.SearchStartedAt = s.StartedAt
	}
	l.onTick(st)
}

func ctxSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
