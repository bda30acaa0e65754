package enginesim

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/danmuck/sourcesync/internal/statetree"
	"github.com/gorilla/websocket"
)

var (
	ErrNotFound  = errors.New("enginesim: node not found")
	ErrAmbiguous = errors.New("enginesim: more than one node matches")
	ErrRoot      = errors.New("enginesim: the root cannot be removed")
)

// peer is one front-end connection.
type peer interface {
	send(address string, values ...any) error
	close()
}

// Engine is the simulated sampler.
type Engine struct {
	cfg      Config
	upgrader websocket.Upgrader

	mu       sync.Mutex
	tree     *statetree.Tree
	lastID   int64
	volatile protocol.VolatileRecord
	peers    map[peer]struct{}
	commands []string

	oscMu   sync.Mutex
	oscAddr string
}

// New builds an engine holding root. A nil root starts from DemoState.
func New(cfg Config, root *statetree.Fragment) *Engine {
	if root == nil {
		root = DemoState(4)
	}
	return &Engine{
		cfg:   cfg.WithDefaults(),
		tree:  statetree.NewTree(root),
		peers: make(map[peer]struct{}),
	}
}

// LastID returns the id of the last emitted update.
func (e *Engine) LastID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastID
}

// Snapshot renders the authoritative tree.
func (e *Engine) Snapshot() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.String()
}

// Commands lists the payloads of received commands other than /get_state.
func (e *Engine) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

// Peers reports how many front-ends are attached.
func (e *Engine) Peers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.peers)
}

func (e *Engine) lookupLocked(tag, uuid string) (statetree.NodeID, error) {
	ids := e.tree.Lookup(tag, uuid)
	switch len(ids) {
	case 0:
		return statetree.NoNode, fmt.Errorf("%w: %s uuid=%q", ErrNotFound, tag, uuid)
	case 1:
		return ids[0], nil
	default:
		return statetree.NoNode, fmt.Errorf("%w: %s uuid=%q", ErrAmbiguous, tag, uuid)
	}
}

func (e *Engine) nextIDLocked() int64 {
	e.lastID++
	return e.lastID
}

// SetProperty changes one attribute and broadcasts propertyChanged.
func (e *Engine) SetProperty(tag, uuid, property, value string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.lookupLocked(tag, uuid)
	if err != nil {
		return 0, err
	}
	e.tree.SetAttr(id, property, value)
	u := protocol.PropertyChanged{
		UpdateID: e.nextIDLocked(),
		UUID:     uuid,
		Tag:      strings.ToUpper(tag),
		Property: property,
		Value:    value,
	}
	e.broadcastLocked(protocol.AddrStateUpdate, protocol.UpdateValues(u)...)
	return u.UpdateID, nil
}

// AddChild inserts f under the parent at index (-1 appends) and broadcasts
// addedChild.
func (e *Engine) AddChild(parentTag, parentUUID string, index int, f *statetree.Fragment) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	parent, err := e.lookupLocked(parentTag, parentUUID)
	if err != nil {
		return 0, err
	}
	e.tree.Insert(parent, index, f)
	u := protocol.AddedChild{
		UpdateID:   e.nextIDLocked(),
		ParentUUID: parentUUID,
		ParentTag:  strings.ToUpper(parentTag),
		Index:      index,
		Fragment:   f.String(),
	}
	e.broadcastLocked(protocol.AddrStateUpdate, protocol.UpdateValues(u)...)
	return u.UpdateID, nil
}

// RemoveChild detaches a node and broadcasts removedChild.
func (e *Engine) RemoveChild(tag, uuid string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.lookupLocked(tag, uuid)
	if err != nil {
		return 0, err
	}
	if !e.tree.Detach(id) {
		return 0, ErrRoot
	}
	u := protocol.RemovedChild{UpdateID: e.nextIDLocked(), UUID: uuid, Tag: strings.ToUpper(tag)}
	e.broadcastLocked(protocol.AddrStateUpdate, protocol.UpdateValues(u)...)
	return u.UpdateID, nil
}

// SkipUpdateIDs consumes n ids without emitting them, opening a gap in the
// sequence front-ends observe.
func (e *Engine) SkipUpdateIDs(n int) {
	e.mu.Lock()
	e.lastID += int64(n)
	e.mu.Unlock()
}

// SetVolatile replaces the telemetry record served to /get_state
// volatileString requests and pushes it to every peer.
func (e *Engine) SetVolatile(rec protocol.VolatileRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volatile = rec
	e.broadcastLocked(protocol.AddrVolatileString, rec.String())
}

// Restart simulates an engine reboot: ids restart from zero, the tree is
// replaced when root is non-nil and /plugin_started is broadcast.
func (e *Engine) Restart(root *statetree.Fragment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if root != nil {
		e.tree = statetree.NewTree(root)
	}
	e.lastID = 0
	logs.Infof("enginesim.Engine restarted peers=%d", len(e.peers))
	e.broadcastLocked(protocol.AddrPluginStarted)
}

func (e *Engine) broadcastLocked(address string, values ...any) {
	for p := range e.peers {
		if err := p.send(address, values...); err != nil {
			logs.Debugf("enginesim.Engine broadcast address=%s err=%v", address, err)
		}
	}
}

func (e *Engine) attach(p peer) {
	e.mu.Lock()
	e.peers[p] = struct{}{}
	n := len(e.peers)
	e.mu.Unlock()
	logs.Infof("enginesim.Engine peer attached peers=%d", n)
}

func (e *Engine) detach(p peer) {
	e.mu.Lock()
	delete(e.peers, p)
	n := len(e.peers)
	e.mu.Unlock()
	p.close()
	logs.Infof("enginesim.Engine peer detached peers=%d", n)
}

func (e *Engine) closePeers() {
	e.mu.Lock()
	peers := e.peers
	e.peers = make(map[peer]struct{})
	e.mu.Unlock()
	for p := range peers {
		p.close()
	}
}

// handleCommand serves one inbound command in the text framing. Replies to
// /get_state go to the requesting peer only.
func (e *Engine) handleCommand(from peer, payload []byte) {
	address, data, _ := strings.Cut(string(payload), ":")
	switch address {
	case protocol.AddrGetState:
		e.mu.Lock()
		defer e.mu.Unlock()
		var err error
		switch data {
		case protocol.StateKindFull:
			err = from.send(protocol.AddrFullState, e.lastID, e.tree.String())
		case protocol.StateKindVolatileString:
			err = from.send(protocol.AddrVolatileString, e.volatile.String())
		default:
			logs.Debugf("enginesim.Engine unknown state kind=%q", data)
		}
		if err != nil {
			logs.Debugf("enginesim.Engine reply kind=%s err=%v", data, err)
		}
		return
	case CmdSetSoundParameter, CmdSetSoundParameterInt:
		e.recordCommand(payload)
		if err := e.setSoundParameter(data); err != nil {
			logs.Warnf("enginesim.Engine %s err=%v", address, err)
		}
	default:
		e.recordCommand(payload)
	}
}

func (e *Engine) recordCommand(payload []byte) {
	e.mu.Lock()
	e.commands = append(e.commands, string(payload))
	e.mu.Unlock()
}
