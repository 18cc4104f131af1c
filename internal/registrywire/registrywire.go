// Package registrywire implements the service-registry TLV protocol:
// register/lookup/list requests and their ack/reply/error responses.
package registrywire

import (
	"github.com/tinyrange/ruzzle/internal/wire"
)

const (
	fieldMsgType uint16 = 1
	fieldStatus  uint16 = 2
	fieldService uint16 = 3
	fieldModule  uint16 = 4
)

// MsgType enumerates the registry message discriminants.
type MsgType uint8

const (
	Register MsgType = 1
	Lookup   MsgType = 2
	List     MsgType = 3

	Ack         MsgType = 100
	LookupReply MsgType = 101
	ListReply   MsgType = 102
	ErrorMsg    MsgType = 255
)

// Status enumerates the registry response status codes.
type Status uint8

const (
	Ok Status = iota
	NotFound
	Invalid
	AlreadyExists
)

// Request is a decoded registry request (register/lookup/list).
type Request struct {
	MsgType MsgType
	Service string
	Module  string
}

// EncodeRegister builds a Register request.
func EncodeRegister(service, module string) []byte {
	enc := wire.NewEncoder()
	enc.PutU8(fieldMsgType, uint8(Register))
	enc.PutString(fieldService, service)
	enc.PutString(fieldModule, module)
	return enc.Bytes()
}

// EncodeLookup builds a Lookup request.
func EncodeLookup(service string) []byte {
	enc := wire.NewEncoder()
	enc.PutU8(fieldMsgType, uint8(Lookup))
	enc.PutString(fieldService, service)
	return enc.Bytes()
}

// EncodeList builds a List request.
func EncodeList() []byte {
	enc := wire.NewEncoder()
	enc.PutU8(fieldMsgType, uint8(List))
	return enc.Bytes()
}

// DecodeRequest parses any of the three request shapes, dispatching on
// msg_type.
func DecodeRequest(buf []byte) (Request, error) {
	recs, err := wire.Decode(buf)
	if err != nil {
		return Request{}, err
	}

	var req Request
	var haveType, haveService, haveModule bool
	for _, r := range recs {
		switch r.Type {
		case fieldMsgType:
			if haveType {
				return Request{}, wire.ErrDuplicateField("msg_type")
			}
			v, err := wire.FieldU8(r, "msg_type")
			if err != nil {
				return Request{}, err
			}
			req.MsgType = MsgType(v)
			haveType = true
		case fieldService:
			if haveService {
				return Request{}, wire.ErrDuplicateField("service")
			}
			v, err := wire.FieldString(r, "service")
			if err != nil {
				return Request{}, err
			}
			req.Service = v
			haveService = true
		case fieldModule:
			if haveModule {
				return Request{}, wire.ErrDuplicateField("module")
			}
			v, err := wire.FieldString(r, "module")
			if err != nil {
				return Request{}, err
			}
			req.Module = v
			haveModule = true
		}
	}

	if !haveType {
		return Request{}, wire.ErrMissingField("msg_type")
	}
	switch req.MsgType {
	case Register:
		if !haveService {
			return Request{}, wire.ErrMissingField("service")
		}
		if !haveModule {
			return Request{}, wire.ErrMissingField("module")
		}
	case Lookup:
		if !haveService {
			return Request{}, wire.ErrMissingField("service")
		}
	case List:
		// no further fields required
	default:
		return Request{}, wire.ErrUnknownMessageType(uint8(req.MsgType))
	}
	return req, nil
}

// ListEntry is one (service, module) pair in a list reply.
type ListEntry struct {
	Service string
	Module  string
}

// Response is a decoded registry response (ack/lookup_reply/list_reply/error).
type Response struct {
	MsgType MsgType
	Status  Status
	Module  string
	List    []ListEntry
}

// EncodeAck builds an Ack response.
func EncodeAck(status Status) []byte {
	enc := wire.NewEncoder()
	enc.PutU8(fieldMsgType, uint8(Ack))
	enc.PutU8(fieldStatus, uint8(status))
	return enc.Bytes()
}

// EncodeLookupReply builds a LookupReply response. module must be empty
// unless status is Ok.
func EncodeLookupReply(status Status, module string) []byte {
	enc := wire.NewEncoder()
	enc.PutU8(fieldMsgType, uint8(LookupReply))
	enc.PutU8(fieldStatus, uint8(status))
	if status == Ok {
		enc.PutString(fieldModule, module)
	}
	return enc.Bytes()
}

// EncodeListReply builds a ListReply response carrying entries as
// alternating service/module records, in insertion order.
func EncodeListReply(status Status, entries []ListEntry) []byte {
	enc := wire.NewEncoder()
	enc.PutU8(fieldMsgType, uint8(ListReply))
	enc.PutU8(fieldStatus, uint8(status))
	for _, e := range entries {
		enc.PutString(fieldService, e.Service)
		enc.PutString(fieldModule, e.Module)
	}
	return enc.Bytes()
}

// EncodeError builds an Error response.
func EncodeError(status Status) []byte {
	enc := wire.NewEncoder()
	enc.PutU8(fieldMsgType, uint8(ErrorMsg))
	enc.PutU8(fieldStatus, uint8(status))
	return enc.Bytes()
}

// DecodeResponse parses any response shape. For ListReply, service/module
// fields are consumed as alternating pairs in encoding order: two service
// fields in a row are rejected as InvalidValue, a trailing service with no
// module as MissingField("module"), and a repeated service as
// DuplicateField. A module field with no service before it is taken as the
// response's single Module field; a second such field is a DuplicateField.
func DecodeResponse(buf []byte) (Response, error) {
	recs, err := wire.Decode(buf)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	var haveType, haveStatus, haveModule bool
	var pendingService *string
	seenPairs := make(map[string]bool)

	for _, r := range recs {
		switch r.Type {
		case fieldMsgType:
			if haveType {
				return Response{}, wire.ErrDuplicateField("msg_type")
			}
			v, err := wire.FieldU8(r, "msg_type")
			if err != nil {
				return Response{}, err
			}
			resp.MsgType = MsgType(v)
			haveType = true
		case fieldStatus:
			if haveStatus {
				return Response{}, wire.ErrDuplicateField("status")
			}
			v, err := wire.FieldU8(r, "status")
			if err != nil {
				return Response{}, err
			}
			resp.Status = Status(v)
			haveStatus = true
		case fieldService:
			v, err := wire.FieldString(r, "service")
			if err != nil {
				return Response{}, err
			}
			if pendingService != nil {
				return Response{}, wire.ErrInvalidValue("service")
			}
			pendingService = &v
		case fieldModule:
			v, err := wire.FieldString(r, "module")
			if err != nil {
				return Response{}, err
			}
			if pendingService == nil {
				if haveModule {
					return Response{}, wire.ErrDuplicateField("module")
				}
				resp.Module = v
				haveModule = true
				continue
			}
			if seenPairs[*pendingService] {
				return Response{}, wire.ErrDuplicateField("service")
			}
			seenPairs[*pendingService] = true
			resp.List = append(resp.List, ListEntry{Service: *pendingService, Module: v})
			pendingService = nil
		}
	}

	if pendingService != nil {
		return Response{}, wire.ErrMissingField("module")
	}
	if !haveType {
		return Response{}, wire.ErrMissingField("msg_type")
	}
	if !haveStatus {
		return Response{}, wire.ErrMissingField("status")
	}

	if resp.MsgType == LookupReply {
		if resp.Status == Ok && !haveModule {
			return Response{}, wire.ErrMissingField("module")
		}
		if resp.Status != Ok && haveModule {
			return Response{}, wire.ErrInvalidValue("module")
		}
	}

	return resp, nil
}
