package kernel

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/kernel/id"
)

// ErrConfig indicates an invalid Config.
var ErrConfig = errors.New("kernel: invalid config")

const (
	// DefaultSegmentSpan is the virtual span reserved per registry segment.
	DefaultSegmentSpan = 16 << 20

	// DefaultFrames is the size of the hosted page-frame pool (64 MiB).
	DefaultFrames = 16384

	// DefaultFrameBase is where the hosted frame pool starts. Frame 0 is
	// left out so a zero address never names a real frame.
	DefaultFrameBase = 0x10_0000
)

// Config sizes the hosted kernel state.
type Config struct {
	// SegmentSpan is the bytes reserved for each registry segment. It caps
	// how many objects of each kind can exist.
	SegmentSpan int `yaml:"segment_span"`

	// Frames is how many 4 KiB frames the page-frame allocator owns.
	Frames int `yaml:"frames"`

	// FrameBase is the physical address of the first frame.
	FrameBase uint64 `yaml:"frame_base"`

	// SlotSizes overrides the slot stride per object kind (ring, module,
	// instance, thread, port).
	SlotSizes map[string]int `yaml:"slot_sizes,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Modules are created at boot, in order.
	Modules []id.ModuleID `yaml:"modules,omitempty"`
}

// DefaultConfig returns a Config suitable for tests and the CLI.
func DefaultConfig() Config {
	return Config{
		SegmentSpan: DefaultSegmentSpan,
		Frames:      DefaultFrames,
		FrameBase:   DefaultFrameBase,
		LogLevel:    "info",
	}
}

func (c *Config) normalize() {
	if c.SegmentSpan == 0 {
		c.SegmentSpan = DefaultSegmentSpan
	}
	if c.Frames == 0 {
		c.Frames = DefaultFrames
	}
	if c.FrameBase == 0 {
		c.FrameBase = DefaultFrameBase
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.SegmentSpan <= 0 || c.SegmentSpan&format.PageMask != 0 {
		return fmt.Errorf("%w: segment_span %d must be a positive multiple of %d", ErrConfig, c.SegmentSpan, format.PageSize)
	}
	if c.Frames <= 0 {
		return fmt.Errorf("%w: frames must be positive, got %d", ErrConfig, c.Frames)
	}
	if c.FrameBase&format.PageMask != 0 {
		return fmt.Errorf("%w: frame_base 0x%x is not page aligned", ErrConfig, c.FrameBase)
	}
	for kind, size := range c.SlotSizes {
		if !slices.Contains(Kinds, kind) {
			return fmt.Errorf("%w: slot_sizes: unknown kind %q", ErrConfig, kind)
		}
		if size < format.MinSlotSize || size&format.SlotAlignmentMask != 0 || size > c.SegmentSpan {
			return fmt.Errorf("%w: slot_sizes.%s: %d", ErrConfig, kind, size)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrConfig, c.LogLevel)
	}
	return nil
}

// ParseConfig decodes YAML, fills defaults, and validates the result.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("kernel: parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("kernel: read config: %w", err)
	}
	return ParseConfig(data)
}

// WriteConfig writes cfg to path as YAML.
func WriteConfig(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("kernel: create %s: %w", path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&cfg); err != nil {
		return fmt.Errorf("kernel: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("kernel: close %s: %w", path, err)
	}
	return nil
}
