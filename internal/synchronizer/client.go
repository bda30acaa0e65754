package synchronizer

import (
	"context"

	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/danmuck/sourcesync/internal/replica"
	"github.com/danmuck/sourcesync/internal/transport"
)

// Client is the consumer API front-ends use: read the replica, send commands,
// and run the synchronizer.
type Client struct {
	store *replica.Store
	tr    transport.Transport
	coord *Coordinator
}

// NewClient wires a replica, a transport selected by cfg.Transport.Mode and
// the coordinator between them.
func NewClient(cfg Config, hooks Hooks) (*Client, error) {
	cfg = cfg.WithDefaults()
	store := replica.New(replica.Options{
		Routes:          cfg.Routes,
		ParameterLabels: cfg.ParameterLabels,
		OnChange:        hooks.OnTreeChange,
	})
	coord := NewCoordinator(store, nil, cfg.PollInterval(), cfg.FullStateTimeout, hooks)
	tr, err := transport.New(cfg.Transport, coord)
	if err != nil {
		return nil, err
	}
	coord.tr = tr
	return &Client{store: store, tr: tr, coord: coord}, nil
}

func (c *Client) Run(ctx context.Context) error {
	return c.coord.Run(ctx)
}

func (c *Client) HasState() bool {
	return c.store.HasState()
}

func (c *Client) GetProperty(name string, def any) any {
	return c.store.GetProperty(name, def)
}

func (c *Client) GetSoundProperty(soundIdx int, name string, def any) any {
	return c.store.GetSoundProperty(soundIdx, name, def)
}

// SendCommand forwards a command verbatim. Delivery is best effort; in
// streaming mode transport.ErrNotConnected is returned while the engine is
// unreachable.
func (c *Client) SendCommand(address string, values ...any) error {
	return c.tr.Send(address, values...)
}

func (c *Client) Volatile() (protocol.VolatileRecord, bool) {
	return c.store.Volatile()
}

func (c *Client) UpdateExtraState(values map[string]any) {
	c.store.UpdateExtraState(values)
}

func (c *Client) RequestFullState() {
	c.coord.RequestFullState()
}

func (c *Client) State() State {
	return c.coord.State()
}

// EngineReachable reports the transport's liveness view.
func (c *Client) EngineReachable() bool {
	return c.tr.IsUp()
}

// Store exposes the replica for helpers beyond property reads.
func (c *Client) Store() *replica.Store {
	return c.store
}
