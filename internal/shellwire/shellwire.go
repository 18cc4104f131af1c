// Package shellwire implements the shell command/response TLV protocol:
// an opcode plus per-opcode typed fields, and a status+text response.
package shellwire

import (
	"github.com/tinyrange/ruzzle/internal/wire"
)

const (
	fieldMsgType uint16 = 1
	fieldStatus  uint16 = 2
	fieldModule  uint16 = 3
	fieldTopic   uint16 = 4
	fieldText    uint16 = 5
	fieldPath    uint16 = 6
	fieldSlot    uint16 = 7
	fieldUser    uint16 = 8
	fieldContent uint16 = 9
	fieldSrc     uint16 = 10
	fieldDst     uint16 = 11
	fieldFlag    uint16 = 12
	fieldArgs    uint16 = 13
)

// Opcode enumerates the user-facing shell commands.
type Opcode uint8

const (
	OpPs Opcode = iota + 1
	OpLsmod
	OpStart
	OpStop
	OpCatalog
	OpInstall
	OpRemove
	OpSetup
	OpLogin
	OpLogout
	OpWhoami
	OpUsers
	OpUseradd
	OpPwd
	OpLs
	OpCd
	OpMkdir
	OpMkdirP
	OpTouch
	OpCat
	OpEdit
	OpCp
	OpMv
	OpWrite
	OpRm
	OpRmR
	OpSlots
	OpPlug
	OpUnplug
	OpSysinfo
	OpDf
	OpDu
)

// Flag is the single-byte bitset whose meaning depends on the opcode.
type Flag uint8

const (
	FlagRecursive Flag = 1 << iota
	FlagDryRun
	FlagVerifiedOnly
	FlagSwap
	FlagTree
)

// Command is a decoded shell command.
type Command struct {
	Op      Opcode
	Module  string
	Topic   string
	Text    string
	Path    string
	Slot    string
	User    string
	Content string
	Src     string
	Dst     string
	Flags   Flag
	Args    string
}

// Encoder builds a Command's wire form field-by-field; callers set only
// the fields their opcode uses.
type Encoder struct {
	enc *wire.Encoder
}

// NewCommand starts encoding a command with the given opcode.
func NewCommand(op Opcode) *Encoder {
	e := &Encoder{enc: wire.NewEncoder()}
	e.enc.PutU8(fieldMsgType, uint8(op))
	return e
}

func (e *Encoder) Module(v string) *Encoder  { e.enc.PutString(fieldModule, v); return e }
func (e *Encoder) Topic(v string) *Encoder   { e.enc.PutString(fieldTopic, v); return e }
func (e *Encoder) Text(v string) *Encoder    { e.enc.PutString(fieldText, v); return e }
func (e *Encoder) Path(v string) *Encoder    { e.enc.PutString(fieldPath, v); return e }
func (e *Encoder) Slot(v string) *Encoder    { e.enc.PutString(fieldSlot, v); return e }
func (e *Encoder) User(v string) *Encoder    { e.enc.PutString(fieldUser, v); return e }
func (e *Encoder) Content(v string) *Encoder { e.enc.PutString(fieldContent, v); return e }
func (e *Encoder) Src(v string) *Encoder     { e.enc.PutString(fieldSrc, v); return e }
func (e *Encoder) Dst(v string) *Encoder     { e.enc.PutString(fieldDst, v); return e }
func (e *Encoder) Args(v string) *Encoder    { e.enc.PutString(fieldArgs, v); return e }
func (e *Encoder) FlagBits(v Flag) *Encoder  { e.enc.PutU8(fieldFlag, uint8(v)); return e }

// Bytes returns the accumulated wire bytes.
func (e *Encoder) Bytes() []byte { return e.enc.Bytes() }

// DecodeCommand parses a shell command. Unlike the registry protocol, no
// field is universally required beyond msg_type: per-opcode requirements
// are the caller's responsibility (spec.md documents them per opcode).
func DecodeCommand(buf []byte) (Command, error) {
	recs, err := wire.Decode(buf)
	if err != nil {
		return Command{}, err
	}

	var cmd Command
	have := map[uint16]bool{}
	assignString := func(r wire.Record, field string, dst *string) error {
		v, err := wire.FieldString(r, field)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}

	for _, r := range recs {
		if have[r.Type] {
			return Command{}, wire.ErrDuplicateField(fieldName(r.Type))
		}
		have[r.Type] = true

		switch r.Type {
		case fieldMsgType:
			v, err := wire.FieldU8(r, "msg_type")
			if err != nil {
				return Command{}, err
			}
			cmd.Op = Opcode(v)
		case fieldModule:
			if err := assignString(r, "module", &cmd.Module); err != nil {
				return Command{}, err
			}
		case fieldTopic:
			if err := assignString(r, "topic", &cmd.Topic); err != nil {
				return Command{}, err
			}
		case fieldText:
			if err := assignString(r, "text", &cmd.Text); err != nil {
				return Command{}, err
			}
		case fieldPath:
			if err := assignString(r, "path", &cmd.Path); err != nil {
				return Command{}, err
			}
		case fieldSlot:
			if err := assignString(r, "slot", &cmd.Slot); err != nil {
				return Command{}, err
			}
		case fieldUser:
			if err := assignString(r, "user", &cmd.User); err != nil {
				return Command{}, err
			}
		case fieldContent:
			if err := assignString(r, "content", &cmd.Content); err != nil {
				return Command{}, err
			}
		case fieldSrc:
			if err := assignString(r, "src", &cmd.Src); err != nil {
				return Command{}, err
			}
		case fieldDst:
			if err := assignString(r, "dst", &cmd.Dst); err != nil {
				return Command{}, err
			}
		case fieldArgs:
			if err := assignString(r, "args", &cmd.Args); err != nil {
				return Command{}, err
			}
		case fieldFlag:
			v, err := wire.FieldU8(r, "flag")
			if err != nil {
				return Command{}, err
			}
			cmd.Flags = Flag(v)
		}
	}

	if !have[fieldMsgType] {
		return Command{}, wire.ErrMissingField("msg_type")
	}
	return cmd, nil
}

func fieldName(t uint16) string {
	names := map[uint16]string{
		fieldMsgType: "msg_type", fieldStatus: "status", fieldModule: "module",
		fieldTopic: "topic", fieldText: "text", fieldPath: "path", fieldSlot: "slot",
		fieldUser: "user", fieldContent: "content", fieldSrc: "src", fieldDst: "dst",
		fieldFlag: "flag", fieldArgs: "args",
	}
	if n, ok := names[t]; ok {
		return n
	}
	return "unknown"
}

// ResponseStatus is the shell response's status field.
type ResponseStatus uint8

const (
	StatusOk ResponseStatus = iota
	StatusFailed
)

// Response is a decoded shell response: a status and a non-empty text.
type Response struct {
	Status ResponseStatus
	Text   string
}

// EncodeResponse builds a shell response. text must be non-empty; callers
// that have nothing to report still send a placeholder like "ok".
func EncodeResponse(status ResponseStatus, text string) []byte {
	enc := wire.NewEncoder()
	enc.PutU8(fieldStatus, uint8(status))
	enc.PutString(fieldText, text)
	return enc.Bytes()
}

// DecodeResponse parses a shell response, rejecting an empty text field.
func DecodeResponse(buf []byte) (Response, error) {
	recs, err := wire.Decode(buf)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	var haveStatus, haveText bool
	for _, r := range recs {
		switch r.Type {
		case fieldStatus:
			if haveStatus {
				return Response{}, wire.ErrDuplicateField("status")
			}
			v, err := wire.FieldU8(r, "status")
			if err != nil {
				return Response{}, err
			}
			resp.Status = ResponseStatus(v)
			haveStatus = true
		case fieldText:
			if haveText {
				return Response{}, wire.ErrDuplicateField("text")
			}
			v, err := wire.FieldString(r, "text")
			if err != nil {
				return Response{}, err
			}
			resp.Text = v
			haveText = true
		}
	}
	if !haveStatus {
		return Response{}, wire.ErrMissingField("status")
	}
	if !haveText || resp.Text == "" {
		return Response{}, wire.ErrMissingField("text")
	}
	return resp, nil
}
