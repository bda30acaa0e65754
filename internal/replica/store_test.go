package replica

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/danmuck/sourcesync/internal/statetree"
	"github.com/danmuck/sourcesync/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
)

const baseSnapshot = `<SOURCE_STATE uuid="root" sourceDataLocation="/data/source" currentPresetIndex="3" pluginVersion="1.4">` +
	`<PRESET uuid="p1" name="Init" numVoices="8" reverbRoomSize="0.5" reverbWetLevel="0.25">` +
	`<SOUND uuid="s1" midiNotes="0x7f" gain="-6.5" allSoundsLoaded="1">` +
	`<SOUND_SAMPLE uuid="ss1" name="kick" soundId="10" license="http://creativecommons.org/licenses/by/3.0/" username="alice" format="wav" duration="1.5" filesize="1000" downloadProgress="100">` +
	`<ANALYSIS><onsets><onset onsetTime="0.0"/><onset onsetTime="0.25"/></onsets></ANALYSIS>` +
	`</SOUND_SAMPLE>` +
	`<MIDI_CC_MAPPING uuid="m2" ccNumber="10" parameterName="gain" minRange="0.0" maxRange="1.0"/>` +
	`<MIDI_CC_MAPPING uuid="m1" ccNumber="10" parameterName="gain" minRange="0.2" maxRange="0.8"/>` +
	`<MIDI_CC_MAPPING uuid="m3" ccNumber="7" parameterName="pitch" minRange="0.0" maxRange="1.0"/>` +
	`</SOUND>` +
	`<SOUND uuid="s2" allSoundsLoaded="0">` +
	`<SOUND_SAMPLE uuid="ss2" name="snare" soundId="20" license="http://creativecommons.org/publicdomain/zero/1.0/" username="bob" duration="2" filesize="24" downloadProgress="50"/>` +
	`<SOUND_SAMPLE uuid="ss3" name="snare-b" soundId="21" license="http://creativecommons.org/licenses/by-nc/4.0/" username="bob" duration="0.5" filesize="6" downloadProgress="0"/>` +
	`</SOUND>` +
	`</PRESET>` +
	`</SOURCE_STATE>`

func loadedStore(t *testing.T, id int64) *Store {
	t.Helper()
	s := New(Options{})
	if err := s.ReplaceFullState(id, baseSnapshot); err != nil {
		t.Fatalf("replace full state: %v", err)
	}
	return s
}

func gainChange(id int64, value string) protocol.PropertyChanged {
	return protocol.PropertyChanged{UpdateID: id, UUID: "s1", Tag: "sound", Property: "gain", Value: value}
}

func TestApplyIgnoredBeforeFirstFullState(t *testing.T) {
	testlog.Start(t)

	s := New(Options{})
	if s.Apply(gainChange(1, "0")) {
		t.Fatalf("apply before full state must not raise")
	}
	if s.NeedsResync() || s.HasState() {
		t.Fatalf("unexpected flags: stale=%v has=%v", s.NeedsResync(), s.HasState())
	}
	if _, ok := s.LastID(); ok {
		t.Fatalf("last id must stay unset before the first full state")
	}
}

func TestSequenceGapRaisesOnce(t *testing.T) {
	testlog.Start(t)

	s := loadedStore(t, 4)
	for _, id := range []int64{5, 6, 7} {
		if s.Apply(gainChange(id, "1")) {
			t.Fatalf("contiguous id %d raised a resync", id)
		}
	}
	if s.NeedsResync() {
		t.Fatalf("contiguous sequence flagged stale")
	}

	s = loadedStore(t, 4)
	raised := 0
	for _, id := range []int64{5, 7, 8, 10} {
		if s.Apply(gainChange(id, "1")) {
			raised++
		}
	}
	if raised != 1 {
		t.Fatalf("expected exactly one raise, got %d", raised)
	}
	if !s.NeedsResync() || s.HasState() {
		t.Fatalf("expected stale store")
	}
	if id, _ := s.LastID(); id != 10 {
		t.Fatalf("last id must track every update, got %d", id)
	}
}

func resyncCount(t *testing.T, reason string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "sourcesync_replica_resyncs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "reason" && lp.GetValue() == reason {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestResyncCountedOncePerStaleEpisode(t *testing.T) {
	testlog.Start(t)

	s := loadedStore(t, 4)
	before := resyncCount(t, ReasonSequence)
	for _, id := range []int64{6, 8, 11} {
		s.Apply(gainChange(id, "1"))
	}
	if got := resyncCount(t, ReasonSequence) - before; got != 1 {
		t.Fatalf("expected one resync while stale, got %v", got)
	}

	if err := s.ReplaceFullState(20, baseSnapshot); err != nil {
		t.Fatalf("replace full state: %v", err)
	}
	s.Apply(gainChange(22, "1"))
	if got := resyncCount(t, ReasonSequence) - before; got != 2 {
		t.Fatalf("expected a second resync after recovery, got %v", got)
	}
}

func TestFullStateClearsStaleAndIsIdempotent(t *testing.T) {
	testlog.Start(t)

	s := loadedStore(t, 1)
	s.Apply(gainChange(5, "2"))
	if !s.NeedsResync() {
		t.Fatalf("expected stale after gap")
	}
	if err := s.ReplaceFullState(9, baseSnapshot); err != nil {
		t.Fatalf("replace: %v", err)
	}
	first := s.Snapshot()
	if err := s.ReplaceFullState(9, baseSnapshot); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	if s.Snapshot() != first {
		t.Fatalf("repeated full state changed the tree")
	}
	if s.NeedsResync() || !s.HasState() {
		t.Fatalf("full state must clear staleness")
	}
	if id, _ := s.LastID(); id != 9 {
		t.Fatalf("unexpected last id: %d", id)
	}
	if s.Apply(gainChange(10, "3")) || s.NeedsResync() {
		t.Fatalf("update following the snapshot id must apply cleanly")
	}
}

func TestReplaceFullStateKeepsTreeOnParseError(t *testing.T) {
	testlog.Start(t)

	s := loadedStore(t, 1)
	before := s.Snapshot()
	err := s.ReplaceFullState(2, `<PRESET uuid="orphan"/>`)
	if !errors.Is(err, statetree.ErrNoSourceState) {
		t.Fatalf("expected ErrNoSourceState, got %v", err)
	}
	if s.Snapshot() != before {
		t.Fatalf("tree replaced despite parse error")
	}
	if id, _ := s.LastID(); id != 1 {
		t.Fatalf("last id moved on failed replace: %d", id)
	}
}

func TestAmbiguousTargetMarksStaleWithoutMutation(t *testing.T) {
	testlog.Start(t)

	dup := strings.Replace(baseSnapshot, `uuid="s2"`, `uuid="s1"`, 1)
	s := New(Options{})
	if err := s.ReplaceFullState(1, dup); err != nil {
		t.Fatalf("replace: %v", err)
	}
	before := s.Snapshot()
	if !s.Apply(gainChange(2, "9")) {
		t.Fatalf("ambiguous update must raise")
	}
	if s.Snapshot() != before {
		t.Fatalf("ambiguous update mutated the tree")
	}
}

func TestUnknownTargetIsIgnored(t *testing.T) {
	testlog.Start(t)

	s := loadedStore(t, 1)
	before := s.Snapshot()
	u := protocol.PropertyChanged{UpdateID: 2, UUID: "nope", Tag: "sound", Property: "gain", Value: "1"}
	if s.Apply(u) || s.NeedsResync() {
		t.Fatalf("unknown target must be ignored")
	}
	if s.Snapshot() != before {
		t.Fatalf("unknown target mutated the tree")
	}
}

func TestApplyAddedAndRemovedChild(t *testing.T) {
	testlog.Start(t)

	var changes int
	s := New(Options{OnChange: func() { changes++ }})
	if err := s.ReplaceFullState(1, baseSnapshot); err != nil {
		t.Fatalf("replace: %v", err)
	}
	add := protocol.AddedChild{
		UpdateID:   2,
		ParentUUID: "p1",
		ParentTag:  "preset",
		Index:      protocol.AppendIndex,
		Fragment:   `<SOUND uuid="s3"><SOUND_SAMPLE uuid="ss4" name="a;b" filePath="/x;y.wav"/></SOUND>`,
	}
	s.Apply(add)
	if n := s.NumSounds(); n != 3 {
		t.Fatalf("expected 3 sounds, got %d", n)
	}
	if got := s.GetSoundProperty(2, SoundLocalFilePath, nil); got != "/x;y.wav" {
		t.Fatalf("fragment delimiter lost: %v", got)
	}
	s.Apply(protocol.RemovedChild{UpdateID: 3, UUID: "s1", Tag: "sound"})
	if n := s.NumSounds(); n != 2 {
		t.Fatalf("expected 2 sounds after removal, got %d", n)
	}
	if idx := s.SoundIndexForSamplerUUID("ss4"); idx != 1 {
		t.Fatalf("unexpected index for ss4: %d", idx)
	}
	if changes != 3 {
		t.Fatalf("expected 3 change notifications, got %d", changes)
	}
}

func TestBadAddedFragmentMarksStale(t *testing.T) {
	testlog.Start(t)

	s := loadedStore(t, 1)
	raised := s.Apply(protocol.AddedChild{UpdateID: 2, ParentUUID: "p1", ParentTag: "preset", Index: 0, Fragment: "<sound"})
	if !raised || !s.NeedsResync() {
		t.Fatalf("unparseable fragment must mark the replica stale")
	}
}

func TestResetDropsTree(t *testing.T) {
	testlog.Start(t)

	s := loadedStore(t, 3)
	s.Reset()
	if s.HasTree() || s.HasState() || s.Snapshot() != "" {
		t.Fatalf("reset must drop the tree")
	}
	if _, ok := s.LastID(); ok {
		t.Fatalf("reset must clear the last id")
	}
	if got := s.GetProperty(PluginVersion, "none"); got != "none" {
		t.Fatalf("expected default after reset, got %v", got)
	}
}

func TestVolatileOverwrite(t *testing.T) {
	testlog.Start(t)

	s := loadedStore(t, 1)
	a, _ := protocol.ParseVolatile("1;1;10;60;1,1,;0,1,;0.1,0.2,;0.5,0.25,")
	b, _ := protocol.ParseVolatile("0;0;-1;-1;;;;")
	s.SetVolatile(a)
	s.SetVolatile(b)
	got, ok := s.Volatile()
	if !ok {
		t.Fatalf("expected volatile record")
	}
	if got.String() != b.String() {
		t.Fatalf("expected last record to win: %q", got.String())
	}
	if s.GetProperty(NumActiveVoices, -1) != 0 || s.GetProperty(MeterL, -1.0) != 0.0 {
		t.Fatalf("volatile values from the first record leaked")
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	testlog.Start(t)

	s := loadedStore(t, 0)
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = s.GetSoundProperty(0, "gain", nil)
				_ = s.GetProperty(NumSounds, 0)
			}
		}()
	}
	for i := int64(1); i <= 200; i++ {
		s.Apply(gainChange(i, "1.5"))
	}
	wg.Wait()
	if s.NeedsResync() {
		t.Fatalf("contiguous writer flagged stale")
	}
}
