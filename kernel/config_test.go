package kernel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/kernel/id"
)

func TestParseConfigFillsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("frames: 64\n"))
	require.NoError(t, err)
	require.Equal(t, 64, cfg.Frames)
	require.Equal(t, DefaultSegmentSpan, cfg.SegmentSpan)
	require.Equal(t, uint64(DefaultFrameBase), cfg.FrameBase)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestParseConfigFull(t *testing.T) {
	const doc = `
segment_span: 1048576
frames: 512
frame_base: 0x200000
log_level: debug
slot_sizes:
  ring: 128
  thread: 64
modules:
  - M-0123456789ACDEFGHJKMNPQRT
`
	cfg, err := ParseConfig([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 1<<20, cfg.SegmentSpan)
	require.Equal(t, uint64(0x200000), cfg.FrameBase)
	require.Equal(t, map[string]int{"ring": 128, "thread": 64}, cfg.SlotSizes)
	require.Len(t, cfg.Modules, 1)
	require.Equal(t, "M-0123456789ACDEFGHJKMNPQRT", cfg.Modules[0].String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unaligned span", func(c *Config) { c.SegmentSpan = 4097 }},
		{"negative frames", func(c *Config) { c.Frames = -1 }},
		{"unaligned frame base", func(c *Config) { c.FrameBase = 0x1001 }},
		{"unknown kind", func(c *Config) { c.SlotSizes = map[string]int{"socket": 64} }},
		{"tiny slot", func(c *Config) { c.SlotSizes = map[string]int{KindPort: 8} }},
		{"unaligned slot", func(c *Config) { c.SlotSizes = map[string]int{KindPort: 36} }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrConfig)
		})
	}
	require.NoError(t, DefaultConfig().Validate())
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte("frames: [1, 2]\n"))
	require.Error(t, err)

	_, err = ParseConfig([]byte("modules: [P-0123456789ACDEFGHJKMNPQRT]\n"))
	require.ErrorIs(t, err, id.ErrInvalidType)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteAndLoadConfig(t *testing.T) {
	m, err := id.Random[id.ModuleKind]()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Frames = 99
	cfg.Modules = []id.ModuleID{m}

	path := filepath.Join(t.TempDir(), "kernel.yaml")
	require.NoError(t, WriteConfig(path, cfg))

	back, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, back)
}
