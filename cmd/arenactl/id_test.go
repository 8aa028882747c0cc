package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/kernel/id"
)

func TestIDParseCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		json        bool
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "canonical module",
			args:        []string{"M-0123456789ACDEFGHJKMNPQRT"},
			wantContain: []string{"M-0123456789ACDEFGHJKMNPQRT", "(module)"},
		},
		{
			name:        "lower case port",
			args:        []string{"p-0123456789acdefghjkmnpqrt"},
			wantContain: []string{"P-0123456789ACDEFGHJKMNPQRT", "(port type)"},
		},
		{
			name:        "malformed reported",
			args:        []string{"M-0123456789ACDEFGHJKMNPQRT", "X-nope"},
			wantErr:     true,
			wantContain: []string{"error:", "M-0123456789ACDEFGHJKMNPQRT"},
		},
		{
			name:        "json",
			args:        []string{"M-0123456789ACDEFGHJKMNPQRT"},
			json:        true,
			wantContain: []string{`"canonical": "M-0123456789ACDEFGHJKMNPQRT"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			jsonOut = tt.json

			output, err := captureOutput(t, func() error { return runIDParse(tt.args) })
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.json {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestIDNewCommand(t *testing.T) {
	for _, tc := range []struct {
		flag string
		want id.Type
	}{
		{"module", id.Module},
		{"port", id.PortType},
	} {
		t.Run(tc.flag, func(t *testing.T) {
			resetFlags(t)
			idNewType = tc.flag

			output, err := captureOutput(t, runIDNew)
			require.NoError(t, err)

			a, err := id.Parse(strings.TrimSpace(output))
			require.NoError(t, err)
			require.Equal(t, tc.want, a.Type())
		})
	}

	t.Run("unknown type", func(t *testing.T) {
		resetFlags(t)
		idNewType = "socket"
		_, err := captureOutput(t, runIDNew)
		require.Error(t, err)
	})
}
