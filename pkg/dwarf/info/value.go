package info

import (
	"fmt"
	"strconv"
)

// Class is the kind of value an attribute decodes to. Which class a value
// has is entirely determined by its form.
type Class uint8

const (
	ClassAddress        Class = iota + 1 // U is an address
	ClassAddrIndex                       // U is an index into .debug_addr
	ClassBlock                           // Bytes is an opaque block
	ClassExprLoc                         // Bytes is a location expression
	ClassConstant                        // U is an unsigned constant
	ClassSigned                          // I is a signed constant
	ClassData16                          // Bytes is a 16 byte constant
	ClassFlag                            // U is 0 or 1
	ClassString                          // Bytes is an inline string, without the NUL
	ClassStrOffset                       // U is an offset into a string section
	ClassStrIndex                        // U is an index into .debug_str_offsets
	ClassReference                       // U is an offset relative to the compilation unit
	ClassRefAddr                         // U is an offset into a debug info section
	ClassRefSig8                         // U is a type signature
	ClassSecOffset                       // U is an offset into another section
	ClassLocListIndex                    // U is an index into .debug_loclists
	ClassRangeListIndex                  // U is an index into .debug_rnglists
)

var classNames = [...]string{
	ClassAddress:        "address",
	ClassAddrIndex:      "addrx",
	ClassBlock:          "block",
	ClassExprLoc:        "exprloc",
	ClassConstant:       "constant",
	ClassSigned:         "sconstant",
	ClassData16:         "data16",
	ClassFlag:           "flag",
	ClassString:         "string",
	ClassStrOffset:      "strp",
	ClassStrIndex:       "strx",
	ClassReference:      "reference",
	ClassRefAddr:        "ref_addr",
	ClassRefSig8:        "ref_sig8",
	ClassSecOffset:      "sec_offset",
	ClassLocListIndex:   "loclistx",
	ClassRangeListIndex: "rnglistx",
}

func (c Class) String() string {
	if int(c) < len(classNames) && classNames[c] != "" {
		return classNames[c]
	}
	return "Class(" + strconv.Itoa(int(c)) + ")"
}

// Value is a decoded attribute value. Only the payload field selected by
// Class is meaningful.
// Bytes aliases the buffer the value was decoded from.
type Value struct {
	Class Class
	U     uint64
	I     int64
	Bytes []byte
}

func (v Value) String() string {
	switch v.Class {
	case ClassSigned:
		return strconv.FormatInt(v.I, 10)
	case ClassString:
		return strconv.Quote(string(v.Bytes))
	case ClassBlock, ClassExprLoc, ClassData16:
		return fmt.Sprintf("[% x]", v.Bytes)
	case ClassFlag:
		return strconv.FormatBool(v.U != 0)
	case ClassConstant, ClassStrIndex, ClassAddrIndex, ClassLocListIndex, ClassRangeListIndex:
		return strconv.FormatUint(v.U, 10)
	}
	return fmt.Sprintf("%#x", v.U)
}
