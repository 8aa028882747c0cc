package id

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewOverwritesTypeBits(t *testing.T) {
	var data [16]byte
	for i := range data {
		data[i] = 0xFF
	}

	m := New[ModuleKind](data)
	require.Equal(t, Module, m.Any().Type())
	require.Equal(t, byte(0x3F), m.Bytes()[0])

	p := New[PortTypeKind](data)
	require.Equal(t, PortType, p.Any().Type())
	require.Equal(t, "P-", p.String()[:2])
}

func TestTryNew(t *testing.T) {
	data := [16]byte{0x20} // module
	_, err := TryNew[ModuleKind](data)
	require.NoError(t, err)

	_, err = TryNew[PortTypeKind](data)
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestStringLayout(t *testing.T) {
	require.Equal(t, "M-0000000000000000000000000", New[ModuleKind]([16]byte{}).String())

	var ones [16]byte
	for i := range ones {
		ones[i] = 0xFF
	}
	require.Equal(t, "M-"+repeat('-', 25), New[ModuleKind](ones).String())

	// First digit lives in bits 4:0 of byte 0, the last in bits 4:0 of byte 15.
	var first [16]byte
	first[0] = 0x01
	require.Equal(t, "M-1"+repeat('0', 24), New[ModuleKind](first).String())

	var last [16]byte
	last[15] = 0x0A
	require.Equal(t, "M-"+repeat('0', 24)+"A", New[ModuleKind](last).String())
}

func repeat(c byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}
	return string(b)
}

func TestRoundTrip(t *testing.T) {
	for range 64 {
		m, err := Random[ModuleKind]()
		require.NoError(t, err)

		parsed, err := ParseAs[ModuleKind](m.String())
		require.NoError(t, err)
		require.Equal(t, m, parsed)

		a, err := Parse(m.String())
		require.NoError(t, err)
		require.Equal(t, m.Any(), a)
	}
}

func TestParseTolerance(t *testing.T) {
	canonical := "M-0123456789ACDEFGHJKMNPQRT"
	want, err := Parse(canonical)
	require.NoError(t, err)
	require.Equal(t, canonical, want.String())

	tests := []struct {
		name string
		in   string
	}{
		{"lower case", "m-0123456789acdefghjkmnpqrt"},
		{"look-alikes", "M-OL234S67B9ACDEFGHJKMNPQRT"},
		{"lower look-alikes", "M-oi234s67b9ACDEFGHJKMNPQRT"},
		{"surrounding space", "  M-0123456789ACDEFGHJKMNPQRT\n"},
		{"full width", "Ｍ－０１２３４５６７８９ＡＣＤＥＦＧＨＪＫＭＮＰＱＲＴ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}

	dash, err := Parse("P-" + repeat('_', 20) + repeat('-', 5))
	require.NoError(t, err)
	require.Equal(t, "P-"+repeat('-', 25), dash.String())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrMalformed},
		{"short", "M-0123", ErrMalformed},
		{"missing hyphen", "M00123456789ACDEFGHJKMNPQRT", ErrMalformed},
		{"unknown type letter", "X-0123456789ACDEFGHJKMNPQRT", ErrMalformed},
		{"bad digit", "M-0123456789ACDEFGHJKMNPQR!", ErrMalformed},
		{"upper end of the alphabet", "M-UVWXYZUVWXYZUVWXYZUVWXYZU", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ParseAs[PortTypeKind]("M-0123456789ACDEFGHJKMNPQRT")
	require.ErrorIs(t, err, ErrInvalidType)
	require.NotErrorIs(t, err, ErrMalformed)

	// Malformed wins even when the type would also be wrong.
	_, err = ParseAs[PortTypeKind]("M-01")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestTextMarshalingInYAML(t *testing.T) {
	m, err := ParseAs[ModuleKind]("M-0123456789ACDEFGHJKMNPQRT")
	require.NoError(t, err)

	type doc struct {
		Module ModuleID `yaml:"module"`
		Any    Any      `yaml:"any"`
	}
	out, err := yaml.Marshal(doc{Module: m, Any: m.Any()})
	require.NoError(t, err)
	require.Contains(t, string(out), "module: M-0123456789ACDEFGHJKMNPQRT")

	var back doc
	require.NoError(t, yaml.Unmarshal(out, &back))
	require.Equal(t, m, back.Module)
	require.Equal(t, m.Any(), back.Any)

	var bad doc
	require.ErrorIs(t, yaml.Unmarshal([]byte("module: P-0123456789ACDEFGHJKMNPQRT\n"), &bad), ErrInvalidType)

	_, err = ModuleID{}.MarshalText()
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestTypeStrings(t *testing.T) {
	require.Equal(t, "module", Module.String())
	require.Equal(t, "port type", PortType.String())
	require.Equal(t, "Type(5)", Type(5).String())
	require.Equal(t, byte('?'), Invalid.Char())
	require.False(t, Invalid.Valid())
}
