package enginesim

import (
	"fmt"
	"strconv"

	"github.com/danmuck/sourcesync/internal/statetree"
	"github.com/google/uuid"
)

func frag(tag string, attrs ...string) *statetree.Fragment {
	f := &statetree.Fragment{Tag: tag}
	for i := 0; i+1 < len(attrs); i += 2 {
		f.Attrs = append(f.Attrs, statetree.Attr{Name: attrs[i], Value: attrs[i+1]})
	}
	return f
}

// NewSound builds a sound with one fully downloaded sample. Both elements get
// fresh uuids.
func NewSound(name string, soundID int) *statetree.Fragment {
	sound := frag("sound",
		"uuid", uuid.NewString(),
		"midinotes", "0x0000000000000000000000000000000000000000000000000000000000000000",
		"allsoundsloaded", "1",
		"gain", "0.0",
		"pitch", "0.0",
		"launchmode", "0",
	)
	sample := frag("sound_sample",
		"uuid", uuid.NewString(),
		"name", name,
		"soundid", strconv.Itoa(soundID),
		"license", "http://creativecommons.org/publicdomain/zero/1.0/",
		"username", "enginesim",
		"format", "wav",
		"duration", "1.0",
		"filesize", "44100",
		"downloadprogress", "100",
		"downloadcompleted", "1",
		"filepath", fmt.Sprintf("/tmp/enginesim/%d.wav", soundID),
	)
	sound.Children = append(sound.Children, sample)
	return sound
}

// DemoState returns a source_state tree with one preset holding numSounds
// sounds.
func DemoState(numSounds int) *statetree.Fragment {
	root := frag("source_state",
		"uuid", uuid.NewString(),
		"sourcedatalocation", "/tmp/enginesim",
		"soundsdownloadlocation", "/tmp/enginesim/sounds",
		"presetfileslocation", "/tmp/enginesim/presets",
		"tmpfileslocation", "/tmp/enginesim/tmp",
		"pluginversion", "0.0-sim",
		"currentpresetindex", "0",
		"globalmidiinchannel", "0",
	)
	preset := frag("preset",
		"uuid", uuid.NewString(),
		"name", "Simulated preset",
		"numvoices", "16",
		"notelayouttype", "1",
		"reverbroomsize", "0.5",
		"reverbdamping", "0.5",
		"reverbwetlevel", "0.0",
		"reverbdrylevel", "1.0",
		"reverbwidth", "1.0",
		"reverbfreezemode", "0.0",
	)
	for i := 0; i < numSounds; i++ {
		preset.Children = append(preset.Children, NewSound(fmt.Sprintf("sound-%d", i+1), 1000+i))
	}
	root.Children = append(root.Children, preset)
	return root
}
