package replica

import "strings"

// CC license labels reported for sound samples.
const (
	LicenseUnknown      = "Unknown"
	LicenseCC0          = "CC0"
	LicenseCCBY         = "CC-BY"
	LicenseCCBYSA       = "CC-BY-SA"
	LicenseCCBYNC       = "CC-BY-NC"
	LicenseCCBYND       = "CC-BY-ND"
	LicenseCCBYNCSA     = "CC-BY-NC-SA"
	LicenseCCBYNCND     = "CC-BY-NC-ND"
	LicenseSamplingPlus = "Sampling+"
)

var licensePaths = []struct {
	fragment string
	label    string
}{
	{"/by/", LicenseCCBY},
	{"/by-nc/", LicenseCCBYNC},
	{"/by-nd/", LicenseCCBYND},
	{"/by-sa/", LicenseCCBYSA},
	{"/by-nc-sa/", LicenseCCBYNCSA},
	{"/by-nc-nd/", LicenseCCBYNCND},
	{"/zero/", LicenseCC0},
	{"/publicdomain/", LicenseCC0},
	{"/sampling+/", LicenseSamplingPlus},
}

// TranslateLicenseURL maps a Creative Commons license URL to its short label.
func TranslateLicenseURL(url string) string {
	for _, p := range licensePaths {
		if strings.Contains(url, p.fragment) {
			return p.label
		}
	}
	return LicenseUnknown
}

// DefaultParameterLabels returns the display labels of the per-sound
// parameters that can be mapped to MIDI CC.
func DefaultParameterLabels() map[string]string {
	return map[string]string{
		"gain":                   "Gain",
		"pitch":                  "Pitch",
		"reverse":                "Reverse",
		"launchMode":             "Launch mode",
		"startPosition":          "Start pos",
		"endPosition":            "End pos",
		"loopStartPosition":      "Loop st pos",
		"loopEndPosition":        "Loop end pos",
		"attack":                 "Attack",
		"decay":                  "Decay",
		"sustain":                "Sustain",
		"release":                "Release",
		"filterCutoff":           "Cutoff",
		"filterRessonance":       "Resso",
		"filterKeyboardTracking": "K.T.",
		"filterADSR2CutoffAmt":   "Env amt",
		"filterAttack":           "Filter Attack",
		"filterDecay":            "Filter Decay",
		"filterSustain":          "Filter Sustain",
		"filterRelease":          "Filter Release",
		"noteMappingMode":        "Map mode",
		"numSlices":              "# slices",
		"playheadPosition":       "Playhead",
		"freezePlayheadSpeed":    "Freeze speed",
		"pitchBendRangeUp":       "P.Bend down",
		"pitchBendRangeDown":     "P.Bend up",
		"mod2CutoffAmt":          "Mod2Cutoff",
		"mod2GainAmt":            "Mod2Gain",
		"mod2PitchAmt":           "Mod2Pitch",
		"mod2PlayheadPos":        "Mod2PlayheadPos",
		"vel2CutoffAmt":          "Vel2Cutoff",
		"vel2GainAmt":            "Vel2Gain",
		"velSensitivity":         "VelSensitivity",
		"pan":                    "Panning",
		"loopXFadeNSamples":      "Loop X fade len",
		"midiChannel":            "MIDI channel",
	}
}
