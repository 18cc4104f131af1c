// Package consolewire implements the console-log TLV protocol: severity,
// pid, and message fields, plus an ANSI-colorized renderer for terminal
// dumps.
package consolewire

import (
	"fmt"

	"github.com/charmbracelet/x/ansi"
	"github.com/tinyrange/ruzzle/internal/wire"
)

const (
	fieldLevel   uint16 = 1
	fieldPID     uint16 = 2
	fieldMessage uint16 = 3
)

// Severity is the single-byte level field.
type Severity uint8

const (
	Debug Severity = iota
	Info
	Warn
	Error
)

// Record is one decoded console log line.
type Record struct {
	Level   Severity
	PID     uint32
	Message string
}

// Encode renders r as a TLV byte stream.
func Encode(r Record) []byte {
	enc := wire.NewEncoder()
	enc.PutU8(fieldLevel, uint8(r.Level))
	enc.PutU32(fieldPID, r.PID)
	enc.PutString(fieldMessage, r.Message)
	return enc.Bytes()
}

// Decode parses a TLV byte stream into a Record. All three fields are
// required; a duplicate field is rejected.
func Decode(buf []byte) (Record, error) {
	recs, err := wire.Decode(buf)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	var haveLevel, havePID, haveMessage bool
	for _, r := range recs {
		switch r.Type {
		case fieldLevel:
			if haveLevel {
				return Record{}, wire.ErrDuplicateField("level")
			}
			v, err := wire.FieldU8(r, "level")
			if err != nil {
				return Record{}, err
			}
			rec.Level = Severity(v)
			haveLevel = true
		case fieldPID:
			if havePID {
				return Record{}, wire.ErrDuplicateField("pid")
			}
			v, err := wire.FieldU32(r, "pid")
			if err != nil {
				return Record{}, err
			}
			rec.PID = v
			havePID = true
		case fieldMessage:
			if haveMessage {
				return Record{}, wire.ErrDuplicateField("message")
			}
			v, err := wire.FieldString(r, "message")
			if err != nil {
				return Record{}, err
			}
			rec.Message = v
			haveMessage = true
		}
	}

	if !haveLevel {
		return Record{}, wire.ErrMissingField("level")
	}
	if !havePID {
		return Record{}, wire.ErrMissingField("pid")
	}
	if !haveMessage {
		return Record{}, wire.ErrMissingField("message")
	}
	return rec, nil
}

var severityColor = map[Severity]uint8{
	Debug: 8,  // grey
	Info:  12, // blue
	Warn:  11, // yellow
	Error: 9,  // red
}

var severityLabel = map[Severity]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
}

// Render formats r for a terminal, colorizing the severity label with a
// 256-color SGR foreground code terminated by ansi.ResetStyle.
func Render(r Record) string {
	label, ok := severityLabel[r.Level]
	if !ok {
		label = "UNKNOWN"
	}
	color, ok := severityColor[r.Level]
	if !ok {
		color = 7
	}
	styled := fmt.Sprintf("\x1b[38;5;%dm%s%s", color, label, ansi.ResetStyle)
	return fmt.Sprintf("%s pid=%d %s", styled, r.PID, r.Message)
}
