package replica

import (
	"fmt"
	"maps"
	"sync"

	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/observability"
	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/danmuck/sourcesync/internal/statetree"
)

// Resync reasons reported to metrics and logs.
const (
	ReasonSequence  = "sequence"
	ReasonAmbiguous = "ambiguous"
	ReasonDiverged  = "diverged"
)

// Options customizes property resolution for one front-end.
type Options struct {
	// Routes overrides DefaultRoutes when non-nil.
	Routes map[string]Location
	// ParameterLabels overrides DefaultParameterLabels when non-nil.
	ParameterLabels map[string]string
	// OnChange is called outside the lock after the tree changes.
	OnChange func()
}

// Store is the replica of the engine state.
type Store struct {
	mu sync.RWMutex

	tree      *statetree.Tree
	lastID    int64
	hasLastID bool
	stale     bool

	volatile    protocol.VolatileRecord
	hasVolatile bool
	extra       map[string]any

	routes   map[string]Location
	labels   map[string]string
	onChange func()
}

func New(opts Options) *Store {
	s := &Store{
		extra:    make(map[string]any),
		routes:   opts.Routes,
		labels:   opts.ParameterLabels,
		onChange: opts.OnChange,
	}
	if s.routes == nil {
		s.routes = DefaultRoutes()
	}
	if s.labels == nil {
		s.labels = DefaultParameterLabels()
	}
	return s
}

// Apply applies one incremental update and reports whether it moved the
// replica from consistent to stale. Updates arriving before the first full
// state are ignored.
func (s *Store) Apply(u protocol.Update) (raised bool) {
	s.mu.Lock()
	if s.tree == nil {
		s.mu.Unlock()
		logs.Tracef("replica.Store.Apply ignored kind=%s id=%d reason=no_tree", u.Kind(), u.ID())
		return false
	}
	wasStale := s.stale
	changed := false

	tag, uuid := u.Target()
	matches := s.tree.Lookup(tag, uuid)
	switch len(matches) {
	case 0:
		logs.Debugf("replica.Store.Apply no match kind=%s tag=%q uuid=%q", u.Kind(), tag, uuid)
	case 1:
		var err error
		changed, err = s.applyLocked(matches[0], u)
		if err != nil {
			logs.Warnf("replica.Store.Apply kind=%s id=%d err=%v", u.Kind(), u.ID(), err)
			s.markStaleLocked(ReasonDiverged)
		}
	default:
		logs.Warnf("replica.Store.Apply ambiguous kind=%s tag=%q uuid=%q matches=%d", u.Kind(), tag, uuid, len(matches))
		s.markStaleLocked(ReasonAmbiguous)
	}

	if s.hasLastID && u.ID() != s.lastID+1 {
		logs.Warnf("replica.Store.Apply sequence gap last_id=%d id=%d", s.lastID, u.ID())
		s.markStaleLocked(ReasonSequence)
	}
	s.lastID = u.ID()
	s.hasLastID = true
	raised = !wasStale && s.stale
	onChange := s.onChange
	s.mu.Unlock()

	if changed {
		observability.RecordUpdateApplied(u.Kind())
		if onChange != nil {
			onChange()
		}
	}
	return raised
}

func (s *Store) applyLocked(id statetree.NodeID, u protocol.Update) (bool, error) {
	switch x := u.(type) {
	case protocol.PropertyChanged:
		s.tree.SetAttr(id, x.Property, x.Value)
		return true, nil
	case protocol.AddedChild:
		f, err := statetree.ParseFragment(x.Fragment)
		if err != nil {
			return false, fmt.Errorf("added child fragment: %w", err)
		}
		s.tree.Insert(id, x.Index, f)
		return true, nil
	case protocol.RemovedChild:
		if !s.tree.Detach(id) {
			return false, fmt.Errorf("remove %s uuid=%q: node is the root", x.Tag, x.UUID)
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: %T", protocol.ErrUnknownUpdateType, u)
	}
}

func (s *Store) markStaleLocked(reason string) {
	if s.stale {
		return
	}
	logs.Infof("replica.Store stale reason=%s last_id=%d", reason, s.lastID)
	s.stale = true
	observability.RecordResync(reason)
}

// ReplaceFullState installs a snapshot. On a parse error the current tree is
// kept and the error returned.
func (s *Store) ReplaceFullState(id int64, snapshot string) error {
	tree, err := statetree.NewTreeFromSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("replica: replace full state id=%d: %w", id, err)
	}
	s.mu.Lock()
	s.tree = tree
	s.stale = false
	s.lastID = id
	s.hasLastID = true
	onChange := s.onChange
	s.mu.Unlock()

	logs.Debugf("replica.Store.ReplaceFullState id=%d nodes=%d", id, tree.Len())
	if onChange != nil {
		onChange()
	}
	return nil
}

// Reset discards the tree after an engine restart.
func (s *Store) Reset() {
	s.mu.Lock()
	hadTree := s.tree != nil
	s.tree = nil
	s.stale = false
	s.lastID = 0
	s.hasLastID = false
	onChange := s.onChange
	s.mu.Unlock()

	if hadTree && onChange != nil {
		onChange()
	}
}

// SetVolatile replaces the volatile record wholesale.
func (s *Store) SetVolatile(rec protocol.VolatileRecord) {
	s.mu.Lock()
	s.volatile = rec
	s.hasVolatile = true
	s.mu.Unlock()
}

func (s *Store) Volatile() (protocol.VolatileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volatile, s.hasVolatile
}

// UpdateExtraState merges consumer-owned values served through the extra
// location.
func (s *Store) UpdateExtraState(values map[string]any) {
	s.mu.Lock()
	maps.Copy(s.extra, values)
	s.mu.Unlock()
}

// HasState reports whether a tree is installed and consistent.
func (s *Store) HasState() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree != nil && !s.stale
}

func (s *Store) HasTree() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree != nil
}

func (s *Store) NeedsResync() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// LastID returns the id of the last applied update or snapshot.
func (s *Store) LastID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastID, s.hasLastID
}

// Snapshot renders the current tree, or "" when none is installed.
func (s *Store) Snapshot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return ""
	}
	return s.tree.String()
}

// NumSounds counts every sound element while state is available.
func (s *Store) NumSounds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasStateLocked() {
		return 0
	}
	return len(s.tree.FindAll(s.tree.Root(), "sound"))
}

// SoundSamples copies the sound_sample elements of the sound at soundIdx.
func (s *Store) SoundSamples(soundIdx int) []*statetree.Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasStateLocked() {
		return nil
	}
	sounds := s.tree.FindAll(s.tree.Root(), "sound")
	if soundIdx < 0 || soundIdx >= len(sounds) {
		return nil
	}
	var out []*statetree.Fragment
	for _, id := range s.tree.FindAll(sounds[soundIdx], "sound_sample") {
		out = append(out, s.tree.Fragment(id))
	}
	return out
}

// SoundIndexForSamplerUUID returns the index of the sound whose first sample
// has uuid, or -1.
func (s *Store) SoundIndexForSamplerUUID(uuid string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasStateLocked() {
		return -1
	}
	preset, ok := s.tree.FindFirst(s.tree.Root(), "preset")
	if !ok {
		return -1
	}
	for i, sound := range s.tree.FindAll(preset, "sound") {
		sample, ok := s.tree.FindFirst(sound, "sound_sample")
		if !ok {
			continue
		}
		if v, _ := s.tree.Attr(sample, "uuid"); v == uuid {
			return i
		}
	}
	return -1
}

func (s *Store) hasStateLocked() bool {
	return s.tree != nil && !s.stale
}
