package replica

import (
	"sort"
	"strconv"
	"strings"

	"github.com/danmuck/sourcesync/internal/statetree"
)

// MIDICCAssignment is one entry of SOUND_MIDI_CC_ASSIGNMENTS.
type MIDICCAssignment struct {
	ParamName string
	CCNumber  int
	MinRange  float64
	MaxRange  float64
	UUID      string
}

// GetProperty resolves a global property. def is returned while the replica
// is stale, before the first full state, or when the name cannot be resolved.
func (s *Store) GetProperty(name string, def any) any {
	return s.resolve(name, def, -1, false)
}

// GetSoundProperty resolves a property of the sound at soundIdx within the
// loaded preset.
func (s *Store) GetSoundProperty(soundIdx int, name string, def any) any {
	return s.resolve(name, def, soundIdx, true)
}

// scope is the slice of the tree a lookup runs against.
type scope struct {
	tree   *statetree.Tree
	preset statetree.NodeID
	sounds []statetree.NodeID
	sound  statetree.NodeID
	sample statetree.NodeID
}

func (s *Store) resolve(name string, def any, soundIdx int, hasIdx bool) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasStateLocked() {
		return def
	}

	loc, ok := s.routes[name]
	if !ok {
		loc = LocationSound
	}
	attr := name
	if strings.Contains(attr, "name_") {
		attr = Name
	}
	if strings.Contains(attr, "uuid_") {
		attr = UUID
	}

	sc := scope{tree: s.tree, sound: statetree.NoNode, sample: statetree.NoNode}
	preset, ok := s.tree.FindFirst(s.tree.Root(), "preset")
	if !ok {
		return def
	}
	sc.preset = preset
	sc.sounds = s.tree.FindAll(preset, "sound")
	if hasIdx {
		if soundIdx < 0 || soundIdx >= len(sc.sounds) {
			return def
		}
		sc.sound = sc.sounds[soundIdx]
		sample, ok := s.tree.FindFirst(sc.sound, "sound_sample")
		if !ok {
			return def
		}
		sc.sample = sample
	}

	switch loc {
	case LocationExtra:
		if v, ok := s.extra[attr]; ok {
			return v
		}
		return def
	case LocationSourceState:
		return typedAttr(sc.tree, sc.tree.Root(), attr, def)
	case LocationPreset:
		return typedAttr(sc.tree, sc.preset, attr, def)
	case LocationSound:
		if sc.sound == statetree.NoNode {
			return def
		}
		return typedAttr(sc.tree, sc.sound, attr, def)
	case LocationSoundSample:
		if sc.sound == statetree.NoNode {
			return def
		}
		return sc.sampleProperty(attr, def)
	case LocationComputed:
		return s.computedLocked(sc, attr, def)
	case LocationVolatile:
		return s.volatileLocked(attr, def)
	default:
		return def
	}
}

func (sc scope) samples() []statetree.NodeID {
	return sc.tree.FindAll(sc.sound, "sound_sample")
}

func (sc scope) sampleProperty(attr string, def any) any {
	switch attr {
	case SoundDownloadProgress:
		samples := sc.samples()
		total := 0.0
		for _, id := range samples {
			total += attrFloat(sc.tree, id, SoundDownloadProgress, 0)
		}
		return total / float64(len(samples))
	case SoundDuration, SoundFilesize:
		total := 0.0
		for _, id := range sc.samples() {
			total += attrFloat(sc.tree, id, attr, 0)
		}
		return total
	case SoundLicense:
		return summarize(sc.distinct(attr, TranslateLicenseURL), "-")
	case SoundAuthor, SoundType:
		return summarize(sc.distinct(attr, nil), "-")
	case SoundID:
		ids := sc.distinct(attr, nil)
		switch len(ids) {
		case 0:
			return -1
		case 1:
			if n, err := strconv.Atoi(ids[0]); err == nil {
				return n
			}
			return ids[0]
		default:
			return "multiple"
		}
	}
	return typedAttr(sc.tree, sc.sample, attr, def)
}

// distinct collects the set of values of attr across the sound's samples,
// skipping samples without it.
func (sc scope) distinct(attr string, mapFn func(string) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range sc.samples() {
		v, ok := sc.tree.Attr(id, attr)
		if !ok {
			continue
		}
		if mapFn != nil {
			v = mapFn(v)
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func summarize(values []string, none string) string {
	switch len(values) {
	case 0:
		return none
	case 1:
		return values[0]
	default:
		return "multiple"
	}
}

func (s *Store) computedLocked(sc scope, attr string, def any) any {
	t := sc.tree
	switch attr {
	case NumSounds:
		return len(sc.sounds)
	case NumSoundsDownloading:
		n := 0
		for _, sound := range sc.sounds {
			sample, ok := t.FindFirst(sound, "sound_sample")
			if !ok {
				continue
			}
			if attrFloat(t, sample, SoundDownloadProgress, 100) < 100 {
				n++
			}
		}
		return n
	case NumSoundsLoadedInSampler:
		n := 0
		for _, sound := range sc.sounds {
			v, ok := t.Attr(sound, SoundLoadedInSampler)
			if !ok || v == "1" {
				n++
			}
		}
		return n
	case SoundSlices:
		if sc.sample == statetree.NoNode {
			return def
		}
		slices := []float64{}
		analysis, ok := t.FindFirst(sc.sample, "analysis")
		if !ok {
			return slices
		}
		onsets, ok := t.FindFirst(analysis, "onsets")
		if !ok {
			return slices
		}
		for _, onset := range t.FindAll(onsets, "onset") {
			slices = append(slices, attrFloat(t, onset, "onsetTime", 0))
		}
		return slices
	case ReverbSettings:
		out := make([]float64, 0, 6)
		for _, a := range []string{"reverbRoomSize", "reverbDamping", "reverbWetLevel", "reverbDryLevel", "reverbWidth", "reverbFreezeMode"} {
			out = append(out, attrFloat(t, sc.preset, a, 0))
		}
		return out
	case SoundMIDICCAssignments:
		if sc.sound == statetree.NoNode {
			return def
		}
		return s.midiCCAssignmentsLocked(sc)
	}
	return def
}

func (s *Store) midiCCAssignmentsLocked(sc scope) map[string]MIDICCAssignment {
	t := sc.tree
	type entry struct {
		label string
		data  MIDICCAssignment
	}
	var entries []entry
	for _, id := range t.FindAll(sc.sound, "midi_cc_mapping") {
		a := MIDICCAssignment{
			CCNumber: int(attrFloat(t, id, "ccNumber", 0)),
			MinRange: attrFloat(t, id, "minRange", 0),
			MaxRange: attrFloat(t, id, "maxRange", 0),
		}
		a.ParamName, _ = t.Attr(id, "parameterName")
		a.UUID, _ = t.Attr(id, "uuid")
		label, ok := s.labels[a.ParamName]
		if !ok {
			label = a.ParamName
		}
		entries = append(entries, entry{label: "CC#" + strconv.Itoa(a.CCNumber) + "->" + label, data: a})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].label != entries[j].label {
			return entries[i].label < entries[j].label
		}
		return entries[i].data.UUID < entries[j].data.UUID
	})

	out := make(map[string]MIDICCAssignment, len(entries))
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.label]++
		key := e.label
		if n := counts[e.label]; n > 1 {
			key = e.label + " (" + strconv.Itoa(n) + ")"
		}
		out[key] = e.data
	}
	return out
}

func (s *Store) volatileLocked(attr string, def any) any {
	if !s.hasVolatile {
		return def
	}
	v := s.volatile
	switch attr {
	case MeterL:
		return v.MeterL()
	case MeterR:
		return v.MeterR()
	case IsQuerying:
		return v.IsQuerying
	case VoiceSoundIdxs:
		return append([]string(nil), v.VoiceSoundIdxs...)
	case NumActiveVoices:
		return v.NumActiveVoices()
	case MIDIReceived:
		return v.MIDIReceived
	case LastCCMIDIReceived:
		return v.LastCC
	case LastNoteMIDIReceived:
		return v.LastNote
	}
	return def
}

// typedAttr reads attr and converts numeric-looking values. midiNotes and
// name stay strings.
func typedAttr(t *statetree.Tree, id statetree.NodeID, attr string, def any) any {
	v, ok := t.Attr(id, attr)
	if !ok {
		return def
	}
	switch strings.ToLower(attr) {
	case strings.ToLower(SoundAssignedNotes), Name:
		return v
	}
	return typedValue(v)
}

func typedValue(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if strings.Contains(v, ".") {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}

func attrFloat(t *statetree.Tree, id statetree.NodeID, attr string, def float64) float64 {
	v, ok := t.Attr(id, attr)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
