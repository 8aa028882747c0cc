// Package id implements 128-bit typed object IDs for modules and port types.
//
// An ID's first three bits hold its Type. The remaining 125 bits are opaque;
// the kernel only requires that, per type, distinct objects use distinct
// values.
//
// # Text Form
//
// IDs render as 27 characters: the type letter, a hyphen, and 25 base32
// digits from the alphabet
//
//	0123456789ACDEFGHJKMNPQRTUVWXYZ-
//
// most significant bits first. Parsing is case-insensitive and tolerant of
// look-alikes: O reads as 0, I and L as 1, S as 5, B as 8, and _ as -.
// Full-width forms are folded to ASCII first. IDs are always rendered in
// upper case with digits rather than look-alike letters.
package id

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

var (
	// ErrMalformed indicates text that is not a well-formed ID. It takes
	// precedence over ErrInvalidType.
	ErrMalformed = errors.New("id: malformed")

	// ErrInvalidType indicates a well-formed ID of the wrong or an unknown
	// type.
	ErrInvalidType = errors.New("id: invalid type")
)

// Type is the 3-bit type tag of an ID. Zero is never valid and values above
// PortType are reserved.
type Type uint8

const (
	Invalid  Type = 0
	Module   Type = 1 // M
	PortType Type = 2 // P
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool { return t == Module || t == PortType }

// Char returns the letter that prefixes IDs of type t, or '?'.
func (t Type) Char() byte {
	switch t {
	case Module:
		return 'M'
	case PortType:
		return 'P'
	default:
		return '?'
	}
}

func (t Type) String() string {
	switch t {
	case Module:
		return "module"
	case PortType:
		return "port type"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

func typeFromChar(c byte) (Type, bool) {
	switch c {
	case 'M', 'm':
		return Module, true
	case 'P', 'p':
		return PortType, true
	default:
		return Invalid, false
	}
}

const (
	// TextLen is the length of an ID's text form.
	TextLen = 27

	digits   = 25
	alphabet = "0123456789ACDEFGHJKMNPQRTUVWXYZ-"
)

// Any is an ID whose type is not known statically, as when parsing user
// input.
type Any [16]byte

// Type returns the type tag. It may be invalid.
func (a Any) Type() Type { return Type(a[0] >> 5) }

// String renders a. An invalid type renders as '?'.
func (a Any) String() string {
	var buf [TextLen]byte
	buf[0] = a.Type().Char()
	buf[1] = '-'
	for i := range digits {
		buf[2+i] = alphabet[get5(&a, 3+5*i)]
	}
	return string(buf[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Any) MarshalText() ([]byte, error) {
	if !a.Type().Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, a.Type())
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Any) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Parse reads the text form of an ID of any valid type.
func Parse(s string) (Any, error) {
	s = width.Narrow.String(strings.TrimSpace(s))
	if len(s) != TextLen || s[1] != '-' {
		return Any{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	ty, ok := typeFromChar(s[0])
	if !ok {
		return Any{}, fmt.Errorf("%w: unknown type letter %q", ErrMalformed, s[0])
	}

	var a Any
	a[0] = byte(ty) << 5
	for i := range digits {
		v, ok := digitValue(s[2+i])
		if !ok {
			return Any{}, fmt.Errorf("%w: bad digit %q at %d", ErrMalformed, s[2+i], 2+i)
		}
		put5(&a, 3+5*i, v)
	}
	return a, nil
}

func digitValue(c byte) (byte, bool) {
	switch c {
	case 'O', 'o':
		return 0, true
	case 'I', 'i', 'L', 'l':
		return 1, true
	case 'S', 's':
		return 5, true
	case 'B', 'b':
		return 8, true
	case '_':
		return 31, true
	}
	if 'a' <= c && c <= 'z' {
		c -= 'a' - 'A'
	}
	if i := strings.IndexByte(alphabet, c); i >= 0 {
		return byte(i), true
	}
	return 0, false
}

// get5 returns the 5 bits of a starting at bit off, counted from the most
// significant bit of a[0].
func get5(a *Any, off int) byte {
	i := off / 8
	v := uint16(a[i]) << 8
	if i+1 < len(a) {
		v |= uint16(a[i+1])
	}
	return byte(v>>(11-off%8)) & 0x1F
}

func put5(a *Any, off int, c byte) {
	i := off / 8
	v := uint16(c&0x1F) << (11 - off%8)
	a[i] |= byte(v >> 8)
	if i+1 < len(a) {
		a[i+1] |= byte(v)
	}
}

// Kind fixes the Type of an ID at compile time.
type Kind interface {
	Type() Type
}

// ModuleKind is the Kind of module IDs.
type ModuleKind struct{}

// PortTypeKind is the Kind of port type IDs.
type PortTypeKind struct{}

func (ModuleKind) Type() Type   { return Module }
func (PortTypeKind) Type() Type { return PortType }

// ID is an ID whose type is K.
type ID[K Kind] struct {
	b Any
}

type (
	// ModuleID identifies a module.
	ModuleID = ID[ModuleKind]
	// PortTypeID identifies a port type.
	PortTypeID = ID[PortTypeKind]
)

func kindType[K Kind]() Type {
	var k K
	return k.Type()
}

// New returns an ID from data with its type bits overwritten by K's type.
func New[K Kind](data [16]byte) ID[K] {
	data[0] = data[0]&0x1F | byte(kindType[K]())<<5
	return ID[K]{b: Any(data)}
}

// TryNew returns an ID from data, which must already carry K's type bits.
func TryNew[K Kind](data [16]byte) (ID[K], error) {
	if got, want := Any(data).Type(), kindType[K](); got != want {
		return ID[K]{}, fmt.Errorf("%w: have %s, want %s", ErrInvalidType, got, want)
	}
	return ID[K]{b: Any(data)}, nil
}

// Random returns an ID of type K with random value bits.
func Random[K Kind]() (ID[K], error) {
	var data [16]byte
	if _, err := rand.Read(data[:]); err != nil {
		return ID[K]{}, fmt.Errorf("id: random: %w", err)
	}
	return New[K](data), nil
}

// ParseAs reads the text form of an ID that must be of K's type.
func ParseAs[K Kind](s string) (ID[K], error) {
	a, err := Parse(s)
	if err != nil {
		return ID[K]{}, err
	}
	return TryNew[K](a)
}

// Bytes returns the raw 16 bytes.
func (id ID[K]) Bytes() [16]byte { return id.b }

// Any returns id without its static type.
func (id ID[K]) Any() Any { return id.b }

// IsZero reports whether id is the zero value, which is not a valid ID.
func (id ID[K]) IsZero() bool { return id.b == Any{} }

func (id ID[K]) String() string { return id.b.String() }

// MarshalText implements encoding.TextMarshaler.
func (id ID[K]) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: zero %s id", ErrInvalidType, kindType[K]())
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID[K]) UnmarshalText(text []byte) error {
	v, err := ParseAs[K](string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
