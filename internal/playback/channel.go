package playback

import "sync"

// maxEvents bounds the notifications kept for a preview that stopped polling.
const maxEvents = 64

// Channel is a Scheduler whose media element is a remote preview: media
// instructions go to a CommandQueue and notifications are buffered until
// the preview collects them.
type Channel struct {
	*Scheduler
	Commands *CommandQueue

	mu     sync.Mutex
	events []Event
}

// NewChannel creates a scheduler wired to a fresh command queue. cfg.OnEvent,
// when set, still receives every event.
func NewChannel(cfg Config, queueSize int) *Channel {
	c := &Channel{Commands: NewCommandQueue(queueSize)}
	forward := cfg.OnEvent
	cfg.OnEvent = func(ev Event) {
		c.record(ev)
		if forward != nil {
			forward(ev)
		}
	}
	c.Scheduler = NewScheduler(c.Commands, cfg)
	return c
}

func (c *Channel) record(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	if over := len(c.events) - maxEvents; over > 0 {
		c.events = append(c.events[:0], c.events[over:]...)
	}
}

// Events returns and clears the buffered notifications.
func (c *Channel) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	if out == nil {
		out = []Event{}
	}
	return out
}
