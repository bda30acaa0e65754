package statetree

import (
	"errors"
	"testing"

	"github.com/danmuck/sourcesync/internal/testutil/testlog"
)

const testSnapshot = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<SOURCE_STATE sourceDataLocation="/data" uuid="root">` +
	`<PRESET uuid="p1" name="Init">` +
	`<SOUND uuid="s1" midiNotes="0x7f">` +
	`<SOUND_SAMPLE uuid="ss1" name="kick" soundId="10"/>` +
	`</SOUND>` +
	`<SOUND uuid="s2"><SOUND_SAMPLE uuid="ss2" name="snare"/></SOUND>` +
	`</PRESET>` +
	`</SOURCE_STATE>`

func mustTree(t *testing.T, raw string) *Tree {
	t.Helper()
	tree, err := NewTreeFromSnapshot(raw)
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	return tree
}

func TestParseFragmentLowercasesNames(t *testing.T) {
	testlog.Start(t)

	f, err := ParseFragment(`<SOUND_SAMPLE soundId="5" UUID="a"/>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Tag != "sound_sample" {
		t.Fatalf("unexpected tag: %q", f.Tag)
	}
	if v, ok := f.Attr("soundid"); !ok || v != "5" {
		t.Fatalf("unexpected soundid: %q ok=%v", v, ok)
	}
	if v, _ := f.Attr("uuid"); v != "a" {
		t.Fatalf("unexpected uuid: %q", v)
	}
}

func TestParseFragmentErrors(t *testing.T) {
	testlog.Start(t)

	if _, err := ParseFragment(""); !errors.Is(err, ErrEmptyFragment) {
		t.Fatalf("expected ErrEmptyFragment, got %v", err)
	}
	if _, err := ParseFragment(`<a/><b/>`); !errors.Is(err, ErrMultipleRoots) {
		t.Fatalf("expected ErrMultipleRoots, got %v", err)
	}
	if _, err := ParseFragment(`<a><b></a>`); !errors.Is(err, ErrMalformedFragment) {
		t.Fatalf("expected ErrMalformedFragment, got %v", err)
	}
	if _, err := NewTreeFromSnapshot(`<preset uuid="x"/>`); !errors.Is(err, ErrNoSourceState) {
		t.Fatalf("expected ErrNoSourceState, got %v", err)
	}
}

func TestFragmentRenderRoundTripKeepsDelimiters(t *testing.T) {
	testlog.Start(t)

	in := `<sound uuid="s9" name="a;b;c"><sound_sample uuid="x" filepath="/tmp/a&amp;b;c.wav"/></sound>`
	f, err := ParseFragment(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := f.Children[0].Attr("filepath"); v != "/tmp/a&b;c.wav" {
		t.Fatalf("unexpected filepath: %q", v)
	}
	again, err := ParseFragment(f.String())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !f.Equal(again) {
		t.Fatalf("round-trip mismatch:\n%s\n%s", f.String(), again.String())
	}
}

func TestLookupAndFindAll(t *testing.T) {
	testlog.Start(t)

	tree := mustTree(t, testSnapshot)
	if tree.Tag(tree.Root()) != "source_state" {
		t.Fatalf("unexpected root tag: %q", tree.Tag(tree.Root()))
	}
	if ids := tree.Lookup("SOUND", "s2"); len(ids) != 1 {
		t.Fatalf("expected one sound s2, got %d", len(ids))
	}
	if ids := tree.Lookup("sound", ""); len(ids) != 0 {
		t.Fatalf("empty uuid must not match, got %d", len(ids))
	}
	sounds := tree.FindAll(tree.Root(), "sound")
	if len(sounds) != 2 {
		t.Fatalf("expected 2 sounds, got %d", len(sounds))
	}
	if v, _ := tree.Attr(sounds[0], "uuid"); v != "s1" {
		t.Fatalf("unexpected document order: first sound %q", v)
	}
	if v, _ := tree.Attr(tree.Root(), "sourceDataLocation"); v != "/data" {
		t.Fatalf("unexpected sourcedatalocation: %q", v)
	}
}

func TestInsertAtIndexAndAppend(t *testing.T) {
	testlog.Start(t)

	tree := mustTree(t, testSnapshot)
	preset := tree.Lookup("preset", "p1")[0]

	first, _ := ParseFragment(`<sound uuid="s0"/>`)
	inserted := tree.Insert(preset, 0, first)
	if tree.Parent(inserted) != preset {
		t.Fatalf("inserted node has wrong parent: %d", tree.Parent(inserted))
	}
	last, _ := ParseFragment(`<sound uuid="s3"/>`)
	tree.Insert(preset, -1, last)
	beyond, _ := ParseFragment(`<sound uuid="s4"/>`)
	tree.Insert(preset, 99, beyond)

	var got []string
	for _, id := range tree.Children(preset) {
		v, _ := tree.Attr(id, "uuid")
		got = append(got, v)
	}
	want := []string{"s0", "s1", "s2", "s3", "s4"}
	if len(got) != len(want) {
		t.Fatalf("unexpected children: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected children order: %v", got)
		}
	}
	if len(tree.Lookup("sound", "s0")) != 1 {
		t.Fatalf("inserted node must be indexed")
	}
}

func TestDetachRemovesSubtreeFromIndex(t *testing.T) {
	testlog.Start(t)

	tree := mustTree(t, testSnapshot)
	before := tree.Len()
	sound := tree.Lookup("sound", "s1")[0]
	if !tree.Detach(sound) {
		t.Fatalf("detach failed")
	}
	if len(tree.Lookup("sound", "s1")) != 0 || len(tree.Lookup("sound_sample", "ss1")) != 0 {
		t.Fatalf("detached subtree still indexed")
	}
	if tree.Len() != before-2 {
		t.Fatalf("unexpected len after detach: %d", tree.Len())
	}
	if tree.Parent(sound) != NoNode {
		t.Fatalf("detached node kept its parent")
	}
	if tree.Parent(tree.Root()) != NoNode {
		t.Fatalf("root must have no parent")
	}
	if tree.Detach(tree.Root()) {
		t.Fatalf("root must not be detachable")
	}
}

func TestSetAttrReindexesUUID(t *testing.T) {
	testlog.Start(t)

	tree := mustTree(t, testSnapshot)
	id := tree.Lookup("sound", "s2")[0]
	tree.SetAttr(id, "UUID", "s2b")
	if len(tree.Lookup("sound", "s2")) != 0 {
		t.Fatalf("old uuid still indexed")
	}
	if got := tree.Lookup("sound", "s2b"); len(got) != 1 || got[0] != id {
		t.Fatalf("new uuid not indexed: %v", got)
	}
}

func TestCompactKeepsTreeEqual(t *testing.T) {
	testlog.Start(t)

	tree := mustTree(t, testSnapshot)
	preset := tree.Lookup("preset", "p1")[0]
	frag, _ := ParseFragment(`<sound uuid="tmp"><sound_sample uuid="tmp-s"/></sound>`)
	for i := 0; i < compactThreshold; i++ {
		id := tree.Insert(preset, -1, frag)
		tree.Detach(id)
	}
	if !tree.Equal(mustTree(t, testSnapshot)) {
		t.Fatalf("tree changed after insert/detach churn")
	}
	if len(tree.nodes) > 2*compactThreshold {
		t.Fatalf("arena was never compacted: %d slots", len(tree.nodes))
	}
}
