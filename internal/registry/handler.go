package registry

import (
	"sort"

	"github.com/tinyrange/ruzzle/internal/registrywire"
)

// HandleRequest decodes a registrywire request, drives it against mgr's
// ServiceRegistry, and returns the encoded response. It is the wire-level
// front door a module would use to register, look up, or list services
// over an IPC endpoint instead of calling the Go API directly.
func HandleRequest(mgr *Manager, buf []byte) []byte {
	req, err := registrywire.DecodeRequest(buf)
	if err != nil {
		return registrywire.EncodeError(registrywire.Invalid)
	}

	reg := mgr.Registry()
	switch req.MsgType {
	case registrywire.Register:
		if !ValidServiceName(req.Service) || req.Module == "" {
			return registrywire.EncodeError(registrywire.Invalid)
		}
		if _, err := reg.Lookup(req.Service); err == nil {
			return registrywire.EncodeError(registrywire.AlreadyExists)
		}
		if err := reg.Register(req.Service, req.Module); err != nil {
			return registrywire.EncodeError(registrywire.Invalid)
		}
		return registrywire.EncodeAck(registrywire.Ok)

	case registrywire.Lookup:
		module, err := reg.Lookup(req.Service)
		if err != nil {
			return registrywire.EncodeLookupReply(registrywire.NotFound, "")
		}
		return registrywire.EncodeLookupReply(registrywire.Ok, module)

	case registrywire.List:
		owners := reg.List()
		names := make([]string, 0, len(owners))
		for service := range owners {
			names = append(names, service)
		}
		sort.Strings(names)
		entries := make([]registrywire.ListEntry, 0, len(names))
		for _, service := range names {
			entries = append(entries, registrywire.ListEntry{Service: service, Module: owners[service]})
		}
		return registrywire.EncodeListReply(registrywire.Ok, entries)

	default:
		return registrywire.EncodeError(registrywire.Invalid)
	}
}
