package protocol

// Inbound addresses (engine -> replica).
const (
	AddrPluginStarted  = "/plugin_started"
	AddrPluginAlive    = "/plugin_alive"
	AddrStateUpdate    = "/state_update"
	AddrFullState      = "/full_state"
	AddrVolatileString = "/volatile_state_string"
)

// Outbound addresses (replica -> engine).
const (
	AddrGetState = "/get_state"

	StateKindFull           = "full"
	StateKindVolatileString = "volatileString"
)

// Update type tags as they appear in /state_update payloads.
const (
	UpdatePropertyChanged = "propertyChanged"
	UpdateAddedChild      = "addedChild"
	UpdateRemovedChild    = "removedChild"
)

// AppendIndex is the addedChild index meaning "append to the parent".
const AppendIndex = -1

// Message is one decoded inbound message. The set of implementations is
// closed: PluginStarted, PluginAlive, StateUpdate, FullState, VolatileState.
type Message interface {
	Address() string
	inbound()
}

type PluginStarted struct{}

type PluginAlive struct{}

type StateUpdate struct {
	Update Update
}

// FullState carries a complete snapshot tagged with the update id it reflects.
type FullState struct {
	UpdateID int64
	Snapshot string
}

type VolatileState struct {
	Record VolatileRecord
}

func (PluginStarted) Address() string { return AddrPluginStarted }
func (PluginAlive) Address() string   { return AddrPluginAlive }
func (StateUpdate) Address() string   { return AddrStateUpdate }
func (FullState) Address() string     { return AddrFullState }
func (VolatileState) Address() string { return AddrVolatileString }

func (PluginStarted) inbound() {}
func (PluginAlive) inbound()   {}
func (StateUpdate) inbound()   {}
func (FullState) inbound()     {}
func (VolatileState) inbound() {}

// Update is one incremental tree edit. Implementations: PropertyChanged,
// AddedChild, RemovedChild.
type Update interface {
	ID() int64
	Kind() string
	// Target is the (tag, uuid) pair the update is addressed to.
	Target() (tag string, uuid string)
}

type PropertyChanged struct {
	UpdateID int64
	UUID     string
	Tag      string
	Property string
	Value    string
}

// AddedChild inserts Fragment under the parent at Index, or appends when
// Index is AppendIndex.
type AddedChild struct {
	UpdateID   int64
	ParentUUID string
	ParentTag  string
	Index      int
	Fragment   string
}

type RemovedChild struct {
	UpdateID int64
	UUID     string
	Tag      string
}

func (u PropertyChanged) ID() int64 { return u.UpdateID }
func (u AddedChild) ID() int64      { return u.UpdateID }
func (u RemovedChild) ID() int64    { return u.UpdateID }

func (PropertyChanged) Kind() string { return UpdatePropertyChanged }
func (AddedChild) Kind() string      { return UpdateAddedChild }
func (RemovedChild) Kind() string    { return UpdateRemovedChild }

func (u PropertyChanged) Target() (string, string) { return u.Tag, u.UUID }
func (u AddedChild) Target() (string, string)      { return u.ParentTag, u.ParentUUID }
func (u RemovedChild) Target() (string, string)    { return u.Tag, u.UUID }
