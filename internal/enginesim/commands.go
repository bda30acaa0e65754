package enginesim

import (
	"fmt"
	"strings"

	"github.com/danmuck/sourcesync/internal/protocol"
)

// Parameter commands the simulator applies to its tree.
const (
	CmdSetSoundParameter    = "/set_sound_parameter"
	CmdSetSoundParameterInt = "/set_sound_parameter_int"
)

// setSoundParameter handles "sound_uuid;parameter;value". An empty uuid
// targets every sound of the loaded preset.
func (e *Engine) setSoundParameter(data string) error {
	fields := strings.SplitN(data, ";", 3)
	if len(fields) != 3 {
		return fmt.Errorf("%w: expected 3 fields, got %d", protocol.ErrFieldCount, len(fields))
	}
	uuid, name, value := fields[0], fields[1], fields[2]
	if uuid != "" {
		_, err := e.SetProperty("sound", uuid, name, value)
		return err
	}
	for _, u := range e.soundUUIDs() {
		if _, err := e.SetProperty("sound", u, name, value); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) soundUUIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	preset, ok := e.tree.FindFirst(e.tree.Root(), "preset")
	if !ok {
		return nil
	}
	var out []string
	for _, id := range e.tree.FindAll(preset, "sound") {
		if v, ok := e.tree.Attr(id, "uuid"); ok {
			out = append(out, v)
		}
	}
	return out
}
