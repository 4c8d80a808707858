package engine

import (
	"fmt"
	"strings"
)

// Mode selects which side wins when a baseline is re-derived.
type Mode string

const (
	// ModeLocal makes the local tree authoritative: the remote is overwritten to match it.
	ModeLocal Mode = "local"
	// ModeRemote makes the remote tree authoritative: the local tree is overwritten to match it.
	ModeRemote Mode = "remote"
	// ModeNewer keeps the most recently modified version of each file and
	// preserves the losing version as a backup.
	ModeNewer Mode = "newer"
)

// DefaultMode is used when the operator names no mode.
const DefaultMode = ModeNewer

// Modes lists the valid modes in display order.
var Modes = []Mode{ModeLocal, ModeRemote, ModeNewer}

// ParseMode parses a mode name. The empty string selects DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultMode, nil
	case "local", "path1":
		return ModeLocal, nil
	case "remote", "path2":
		return ModeRemote, nil
	case "newer":
		return ModeNewer, nil
	default:
		return "", fmt.Errorf("invalid mode: %s (valid: local, remote, newer)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so modes can be decoded from config.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Description explains what a mode does when divergence is found.
func (m Mode) Description() string {
	switch m {
	case ModeLocal:
		return "local tree is authoritative; remote is overwritten to match it"
	case ModeRemote:
		return "remote tree is authoritative; local is overwritten to match it"
	case ModeNewer:
		return "newest version of each file wins; the other is kept as a backup"
	default:
		return "unknown"
	}
}
