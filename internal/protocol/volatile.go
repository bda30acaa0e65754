package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const volatileFields = 8

// VolatileRecord is the unversioned high-rate telemetry snapshot. Each receipt
// replaces the previous record entirely.
type VolatileRecord struct {
	IsQuerying         bool
	MIDIReceived       bool
	LastCC             int
	LastNote           int
	VoiceActivations   []bool
	VoiceSoundIdxs     []string
	VoicePlayPositions []float64
	AudioLevels        []float64
}

func (r VolatileRecord) NumActiveVoices() int {
	n := 0
	for _, active := range r.VoiceActivations {
		if active {
			n++
		}
	}
	return n
}

func (r VolatileRecord) MeterL() float64 {
	return r.level(0)
}

func (r VolatileRecord) MeterR() float64 {
	return r.level(1)
}

func (r VolatileRecord) level(ch int) float64 {
	if ch >= len(r.AudioLevels) {
		return 0
	}
	return r.AudioLevels[ch]
}

// ParseVolatile decodes the engine's volatile string:
// is_querying;midi_received;last_cc;last_note;voice_activations;voice_sound_idxs;voice_play_positions;audio_levels
// with ',' separated lists whose empty elements are ignored.
func ParseVolatile(data string) (VolatileRecord, error) {
	parts := strings.Split(data, ";")
	if len(parts) != volatileFields {
		return VolatileRecord{}, fmt.Errorf("%w: volatile state has %d fields", ErrFieldCount, len(parts))
	}
	var rec VolatileRecord
	rec.IsQuerying = strings.TrimSpace(parts[0]) != "0"
	rec.MIDIReceived = strings.TrimSpace(parts[1]) == "1"

	var err error
	if rec.LastCC, err = strconv.Atoi(strings.TrimSpace(parts[2])); err != nil {
		return VolatileRecord{}, fmt.Errorf("%w: last cc %q", ErrMalformed, parts[2])
	}
	if rec.LastNote, err = strconv.Atoi(strings.TrimSpace(parts[3])); err != nil {
		return VolatileRecord{}, fmt.Errorf("%w: last note %q", ErrMalformed, parts[3])
	}
	for _, el := range splitList(parts[4]) {
		v, err := strconv.Atoi(el)
		if err != nil {
			return VolatileRecord{}, fmt.Errorf("%w: voice activation %q", ErrMalformed, el)
		}
		rec.VoiceActivations = append(rec.VoiceActivations, v != 0)
	}
	rec.VoiceSoundIdxs = splitList(parts[5])
	if rec.VoicePlayPositions, err = parseFloats(parts[6]); err != nil {
		return VolatileRecord{}, err
	}
	if rec.AudioLevels, err = parseFloats(parts[7]); err != nil {
		return VolatileRecord{}, err
	}
	return rec, nil
}

// String renders the record in the engine's format, lists with trailing ','.
func (r VolatileRecord) String() string {
	var b strings.Builder
	b.WriteString(boolFlag(r.IsQuerying))
	b.WriteByte(';')
	b.WriteString(boolFlag(r.MIDIReceived))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(r.LastCC))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(r.LastNote))
	b.WriteByte(';')
	for _, active := range r.VoiceActivations {
		b.WriteString(boolFlag(active))
		b.WriteByte(',')
	}
	b.WriteByte(';')
	for _, idx := range r.VoiceSoundIdxs {
		b.WriteString(idx)
		b.WriteByte(',')
	}
	b.WriteByte(';')
	writeFloats(&b, r.VoicePlayPositions)
	b.WriteByte(';')
	writeFloats(&b, r.AudioLevels)
	return b.String()
}

func splitList(raw string) []string {
	var out []string
	for _, el := range strings.Split(raw, ",") {
		if el = strings.TrimSpace(el); el != "" {
			out = append(out, el)
		}
	}
	return out
}

func parseFloats(raw string) ([]float64, error) {
	var out []float64
	for _, el := range splitList(raw) {
		v, err := strconv.ParseFloat(el, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: float %q", ErrMalformed, el)
		}
		out = append(out, v)
	}
	return out, nil
}

func writeFloats(b *strings.Builder, values []float64) {
	for _, v := range values {
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		b.WriteByte(',')
	}
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
