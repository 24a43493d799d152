package behavior

// Event types recorded to the mission log.
const (
	EventCommand       = "command_received"
	EventTransition    = "behavior_changed"
	EventHumanFound    = "human_found"
	EventSeekSuccess   = "seek_success"
	EventSearchTimeout = "search_timeout"
)

// Event is one machine occurrence worth persisting.
type Event struct {
	Type    string
	Message string
	Meta    map[string]any
}

// EventSink receives machine events. Implementations must be
// non-blocking; recording must never slow a control tick.
type EventSink interface {
	Record(Event)
}

// nopSink discards events. Used when no mission log is configured.
type nopSink struct{}

func (nopSink) Record(Event) {}
