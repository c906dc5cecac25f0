// Package plugin implements the entry points an editing host calls to
// import OpenEXR frames into its BGRA float buffers and to export them
// back: the persisted per-clip settings record, file info and analysis
// text, frame reads, and frame writes with production metadata.
package plugin

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mrjoshuak/exrpremiere/internal/xdr"
	"github.com/mrjoshuak/exrpremiere/transcode"
)

// Settings record layout
const (
	settingsMagic   = "oEXR"
	settingsVersion = 1
	// NameSize is the fixed size of a channel name field, including the
	// terminating NUL.
	NameSize = 256
	// SettingsSize is the size of a marshaled Settings record.
	SettingsSize = 4 + 1 + 1 + 1 + 9 + 4*NameSize
)

// Settings errors
var (
	ErrSettingsRecord = errors.New("plugin: invalid settings record")
	ErrNameTooLong    = errors.New("plugin: channel name too long")
)

// Settings is the per-clip import record the host stores between
// sessions.
type Settings struct {
	// FileInit is set once the channel names have been chosen for the
	// file, by default or by the user.
	FileInit   bool
	ColorSpace transcode.ColorSpace

	Red, Green, Blue, Alpha string
}

// DefaultSettings returns an initialized record for a file with the given
// channels.
func DefaultSettings(available []string) Settings {
	return settingsFor(transcode.DefaultMapping(available), transcode.LinearAdobe)
}

func settingsFor(m transcode.ChannelMapping, cs transcode.ColorSpace) Settings {
	return Settings{
		FileInit:   true,
		ColorSpace: cs,
		Red:        m.Red,
		Green:      m.Green,
		Blue:       m.Blue,
		Alpha:      m.Alpha,
	}
}

// Mapping resolves the stored names against the channels the file has.
func (s Settings) Mapping(available []string) transcode.ChannelMapping {
	return transcode.ResolveMapping(transcode.ChannelMapping{
		Red:   s.Red,
		Green: s.Green,
		Blue:  s.Blue,
		Alpha: s.Alpha,
	}, available)
}

// MarshalBinary encodes the record in its fixed layout.
func (s Settings) MarshalBinary() ([]byte, error) {
	w := xdr.NewBufferWriter(SettingsSize)
	w.WriteBytes([]byte(settingsMagic))
	w.WriteByte(settingsVersion)
	w.WriteByte(boolByte(s.FileInit))
	w.WriteByte(byte(s.ColorSpace))
	w.WriteBytes(make([]byte, 9))
	for _, name := range []string{s.Red, s.Green, s.Blue, s.Alpha} {
		if len(name) >= NameSize || bytes.IndexByte([]byte(name), 0) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrNameTooLong, name)
		}
		field := make([]byte, NameSize)
		copy(field, name)
		w.WriteBytes(field)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary decodes a record written by MarshalBinary.
func (s *Settings) UnmarshalBinary(data []byte) error {
	if len(data) < SettingsSize {
		return fmt.Errorf("%w: %d bytes", ErrSettingsRecord, len(data))
	}
	r := xdr.NewReader(data)
	magic, _ := r.ReadBytes(4)
	version, _ := r.ReadByte()
	if string(magic) != settingsMagic || version != settingsVersion {
		return fmt.Errorf("%w: magic %q version %d", ErrSettingsRecord, magic, version)
	}
	fileInit, _ := r.ReadByte()
	cs, _ := r.ReadByte()
	if _, err := r.ReadBytes(9); err != nil {
		return fmt.Errorf("%w: %w", ErrSettingsRecord, err)
	}
	var names [4]string
	for i := range names {
		field, err := r.ReadBytes(NameSize)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSettingsRecord, err)
		}
		if n := bytes.IndexByte(field, 0); n >= 0 {
			field = field[:n]
		}
		names[i] = string(field)
	}
	*s = Settings{
		FileInit:   fileInit != 0,
		ColorSpace: transcode.ColorSpace(cs),
		Red:        names[0],
		Green:      names[1],
		Blue:       names[2],
		Alpha:      names[3],
	}
	return nil
}

// LoadSettings decodes a stored record for a file with the given channels.
// It never fails: a missing or unreadable record is replaced by
// DefaultSettings, a record not yet initialized for the file gets the
// default channel names, and an unknown colour space becomes LinearAdobe.
func LoadSettings(blob []byte, available []string) Settings {
	var s Settings
	if err := s.UnmarshalBinary(blob); err != nil {
		if len(blob) > 0 {
			Logger().Warn("regenerating settings record", "error", err)
		}
		return DefaultSettings(available)
	}
	if !s.ColorSpace.Valid() {
		Logger().Warn("unknown colour space in settings record", "colorSpace", int(s.ColorSpace))
		s.ColorSpace = transcode.LinearAdobe
	}
	if !s.FileInit {
		s = settingsFor(transcode.DefaultMapping(available), s.ColorSpace)
	}
	return s
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
