package playback

import (
	"sync"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// DefaultQueueSize bounds the commands buffered for a preview client that
// has stopped polling.
const DefaultQueueSize = 256

// CommandOp is a media instruction for a remote preview element.
type CommandOp string

const (
	OpLoad  CommandOp = "load"
	OpSeek  CommandOp = "seek"
	OpPlay  CommandOp = "play"
	OpPause CommandOp = "pause"
	OpBlank CommandOp = "blank"
)

// Command is one queued media instruction.
type Command struct {
	Seq    uint64              `json:"seq"`
	Op     CommandOp           `json:"op"`
	Token  uint64              `json:"token,omitempty"`
	Source *timeline.SourceRef `json:"source,omitempty"`
	Time   float64             `json:"time,omitempty"`
}

// CommandQueue is a Media that records what the scheduler asks for, so a
// browser preview can poll and replay it. Consecutive seeks collapse into
// the last one. When full, the oldest commands are dropped, except the
// newest load.
type CommandQueue struct {
	mu    sync.Mutex
	cmds  []Command
	seq   uint64
	limit int
}

// NewCommandQueue creates a queue holding at most limit commands.
func NewCommandQueue(limit int) *CommandQueue {
	if limit <= 0 {
		limit = DefaultQueueSize
	}
	return &CommandQueue{limit: limit}
}

func (q *CommandQueue) Load(token uint64, src timeline.SourceRef) {
	q.push(Command{Op: OpLoad, Token: token, Source: &src})
}

func (q *CommandQueue) Seek(mediaTime float64) {
	q.push(Command{Op: OpSeek, Time: mediaTime})
}

func (q *CommandQueue) Play()  { q.push(Command{Op: OpPlay}) }
func (q *CommandQueue) Pause() { q.push(Command{Op: OpPause}) }
func (q *CommandQueue) Blank() { q.push(Command{Op: OpBlank}) }

func (q *CommandQueue) push(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	cmd.Seq = q.seq
	if n := len(q.cmds); n > 0 && cmd.Op == OpSeek && q.cmds[n-1].Op == OpSeek {
		q.cmds[n-1] = cmd
		return
	}
	q.cmds = append(q.cmds, cmd)
	over := len(q.cmds) - q.limit
	if over <= 0 {
		return
	}
	// The newest load is the one the scheduler waits on. It is never
	// evicted; the commands after it are kept behind it.
	last := -1
	for i := len(q.cmds) - 1; i >= 0; i-- {
		if q.cmds[i].Op == OpLoad {
			last = i
			break
		}
	}
	if last < 0 || last >= over {
		q.cmds = append(q.cmds[:0], q.cmds[over:]...)
		return
	}
	kept := make([]Command, 0, q.limit)
	kept = append(kept, q.cmds[last])
	kept = append(kept, q.cmds[len(q.cmds)-(q.limit-1):]...)
	q.cmds = kept
}

// Drain returns and clears the queued commands.
func (q *CommandQueue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.cmds
	q.cmds = nil
	if out == nil {
		out = []Command{}
	}
	return out
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}
