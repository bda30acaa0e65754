package main

import (
	"math/rand"
	"testing"

	"github.com/danmuck/sourcesync/internal/enginesim"
	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/danmuck/sourcesync/internal/testutil/testlog"
)

func TestDemoVolatileRoundTripsThroughWireFormat(t *testing.T) {
	testlog.Start(t)

	eng := enginesim.New(enginesim.Config{}, enginesim.DemoState(3))
	uuids := soundUUIDs(eng)
	if len(uuids) != 3 {
		t.Fatalf("unexpected sound uuids: %v", uuids)
	}
	rec := demoVolatile(1.5, uuids, rand.New(rand.NewSource(1)))
	if len(rec.VoiceActivations) != 3 || len(rec.VoiceSoundIdxs) != 3 {
		t.Fatalf("one voice slot per sound expected: %+v", rec)
	}
	parsed, err := protocol.ParseVolatile(rec.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.NumActiveVoices() != rec.NumActiveVoices() || parsed.MeterL() != rec.MeterL() {
		t.Fatalf("record changed on the wire: %+v vs %+v", parsed, rec)
	}
}
