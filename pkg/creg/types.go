package creg

import "github.com/cregfs/creg/internal/format"

// RegType is a value's 32-bit type code (§6).
type RegType uint32

// Value type codes, numbered identically to libcreg's data_type table.
const (
	RegNone                     RegType = RegType(format.RegNone)
	RegSZ                       RegType = RegType(format.RegSZ)
	RegExpandSZ                 RegType = RegType(format.RegExpandSZ)
	RegBinary                   RegType = RegType(format.RegBinary)
	RegDwordLE                  RegType = RegType(format.RegDwordLE)
	RegDwordBE                  RegType = RegType(format.RegDwordBE)
	RegLink                     RegType = RegType(format.RegLink)
	RegMultiSZ                  RegType = RegType(format.RegMultiSZ)
	RegResourceList             RegType = RegType(format.RegResourceList)
	RegFullResourceDescriptor   RegType = RegType(format.RegFullResourceDescriptor)
	RegResourceRequirementsList RegType = RegType(format.RegResourceRequirementsList)
	RegQwordLE                  RegType = RegType(format.RegQwordLE)
)

// String renders the type's symbolic name from §6's enumeration.
func (t RegType) String() string {
	switch t {
	case RegNone:
		return "NONE"
	case RegSZ:
		return "SZ"
	case RegExpandSZ:
		return "EXPAND_SZ"
	case RegBinary:
		return "BINARY"
	case RegDwordLE:
		return "DWORD_LE"
	case RegDwordBE:
		return "DWORD_BE"
	case RegLink:
		return "LINK"
	case RegMultiSZ:
		return "MULTI_SZ"
	case RegResourceList:
		return "RESOURCE_LIST"
	case RegFullResourceDescriptor:
		return "FULL_RESOURCE_DESCRIPTOR"
	case RegResourceRequirementsList:
		return "RESOURCE_REQUIREMENTS_LIST"
	case RegQwordLE:
		return "QWORD_LE"
	default:
		return "UNKNOWN"
	}
}

// Sink receives a one-line notice the first time a given corruption
// condition is observed (§4.5 "log once"). It deliberately has no
// dependency on any logging library: callers that want structured
// logging wire Notify to one themselves.
type Sink interface {
	Notify(kind, msg string)
}

// DiscardSink is a Sink that drops every notification. It is the default
// when Open is not given one.
type DiscardSink struct{}

// Notify implements Sink by doing nothing.
func (DiscardSink) Notify(string, string) {}
