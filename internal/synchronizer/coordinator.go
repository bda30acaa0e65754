package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/observability"
	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/danmuck/sourcesync/internal/replica"
	"github.com/danmuck/sourcesync/internal/transport"
)

// State is the coordinator's view of the replica.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingFullState
	StateSynced
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingFullState:
		return "awaiting_full_state"
	case StateSynced:
		return "synced"
	case StateStale:
		return "stale"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Hooks are optional callbacks. They run on the goroutine that caused the
// event and must not block.
type Hooks struct {
	// OnEngineStarted fires after /plugin_started reset the replica.
	OnEngineStarted func()
	// OnStateChange fires on every State transition.
	OnStateChange func(from, to State)
	// OnTreeChange fires after the replica tree changed.
	OnTreeChange func()
}

// Coordinator drives resync decisions. It is the transport's Sink.
type Coordinator struct {
	store    *replica.Store
	tr       transport.Transport
	interval time.Duration
	hooks    Hooks
	// retryTicks is how many ticks a full state request may stay
	// unanswered before it is sent again.
	retryTicks int

	mu       sync.Mutex
	started  bool
	owed     bool
	inFlight bool
	waited   int
	wasUp    bool
	state    State
}

func NewCoordinator(store *replica.Store, tr transport.Transport, interval, fullStateTimeout time.Duration, hooks Hooks) *Coordinator {
	if interval <= 0 {
		interval = DefaultConfig().PollInterval()
	}
	if fullStateTimeout <= 0 {
		fullStateTimeout = DefaultFullStateTimeout
	}
	retryTicks := int((fullStateTimeout + interval - 1) / interval)
	return &Coordinator{
		store:      store,
		tr:         tr,
		interval:   interval,
		hooks:      hooks,
		retryTicks: max(retryTicks, 1),
		owed:       true,
	}
}

// HandleInbound decodes one payload and applies it. Malformed payloads are
// counted and dropped; the next poll cycle repairs whatever they carried.
func (c *Coordinator) HandleInbound(payload []byte) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		observability.RecordDecodeFailure()
		logs.Debugf("synchronizer.Coordinator.HandleInbound drop err=%v", err)
		return
	}

	switch m := msg.(type) {
	case protocol.PluginStarted:
		logs.Infof("synchronizer.Coordinator engine started")
		c.store.Reset()
		c.mu.Lock()
		c.owed = true
		c.inFlight = false
		c.mu.Unlock()
		if c.hooks.OnEngineStarted != nil {
			c.hooks.OnEngineStarted()
		}
	case protocol.PluginAlive:
	case protocol.StateUpdate:
		if c.store.Apply(m.Update) {
			c.mu.Lock()
			c.owed = true
			c.inFlight = false
			c.mu.Unlock()
		}
	case protocol.FullState:
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
		if err := c.store.ReplaceFullState(m.UpdateID, m.Snapshot); err != nil {
			logs.Warnf("synchronizer.Coordinator.HandleInbound full state err=%v", err)
			break
		}
		c.mu.Lock()
		c.owed = false
		c.mu.Unlock()
	case protocol.VolatileState:
		c.store.SetVolatile(m.Record)
	}
	c.observeState()
}

// RequestFullState owes one snapshot request and drops any pending one; the
// next tick sends it when the engine is reachable.
func (c *Coordinator) RequestFullState() {
	c.mu.Lock()
	c.owed = true
	c.inFlight = false
	c.mu.Unlock()
}

// Tick runs one poll cycle: volatile state is always requested, a full state
// only when owed, not already in flight and the engine is reachable. A request
// left unanswered for retryTicks ticks no longer counts as in flight.
func (c *Coordinator) Tick() {
	if err := c.tr.Send(protocol.AddrGetState, protocol.StateKindVolatileString); err != nil && !errors.Is(err, transport.ErrNotConnected) {
		logs.Debugf("synchronizer.Coordinator.Tick volatile request err=%v", err)
	}

	up := c.tr.IsUp()
	c.mu.Lock()
	if up && !c.wasUp {
		c.inFlight = false
	}
	c.wasUp = up
	if c.inFlight {
		c.waited++
		if c.waited >= c.retryTicks {
			logs.Warnf("synchronizer.Coordinator.Tick full state reply overdue ticks=%d", c.waited)
			c.inFlight = false
		}
	}
	send := c.owed && !c.inFlight && up
	if send {
		c.inFlight = true
		c.waited = 0
	}
	c.mu.Unlock()

	if send {
		if err := c.tr.Send(protocol.AddrGetState, protocol.StateKindFull); err != nil {
			logs.Warnf("synchronizer.Coordinator.Tick full state request err=%v", err)
			c.mu.Lock()
			c.inFlight = false
			c.mu.Unlock()
		} else {
			observability.RecordFullStateRequest()
			logs.Infof("synchronizer.Coordinator requesting full state")
		}
	}
	c.observeState()
}

// Run starts the transport and the poll loop. It returns when ctx is done or
// the transport fails to start.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	c.observeState()

	errCh := make(chan error, 1)
	go func() { errCh <- c.tr.Run(ctx) }()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := <-errCh; err != nil {
				return fmt.Errorf("synchronizer: transport: %w", err)
			}
			return nil
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("synchronizer: transport: %w", err)
			}
			return nil
		case <-ticker.C:
			c.Tick()
		}
	}
}

// State reports the current synchronization state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	return c.deriveState(started)
}

func (c *Coordinator) deriveState(started bool) State {
	switch {
	case !started && !c.store.HasTree():
		return StateUninitialized
	case !c.store.HasTree():
		return StateAwaitingFullState
	case c.store.NeedsResync():
		return StateStale
	default:
		return StateSynced
	}
}

func (c *Coordinator) observeState() {
	c.mu.Lock()
	next := c.deriveState(c.started)
	prev := c.state
	c.state = next
	c.mu.Unlock()
	if prev == next {
		return
	}
	logs.Infof("synchronizer.Coordinator state from=%s to=%s", prev, next)
	if c.hooks.OnStateChange != nil {
		c.hooks.OnStateChange(prev, next)
	}
}
