// Package debugdump implements the optional serialized-block JSON dump
// side-channel: a developer aid that overwrites one fixed path with the most
// recently serialized block, with no archival of prior blocks.
package debugdump

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmwm/dbs3-uploader/internal/block"
)

// Dumper writes each serialized block to a fixed path, overwriting the
// previous contents every time. A nil *Dumper is a valid no-op dumper so
// callers can construct one unconditionally from config.
type Dumper struct {
	path    string
	enabled bool
}

// New creates a Dumper. If enabled is false, Write is a no-op regardless of
// path.
func New(enabled bool, path string) *Dumper {
	return &Dumper{path: path, enabled: enabled}
}

// Write marshals payload to JSON and overwrites the configured path. A
// disabled Dumper does nothing and returns nil.
func (d *Dumper) Write(payload block.Payload) error {
	if d == nil || !d.enabled {
		return nil
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal block for debug dump: %w", err)
	}

	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("write debug dump to %q: %w", d.path, err)
	}
	return nil
}
