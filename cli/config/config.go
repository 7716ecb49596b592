package config

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/justapithecus/packetstream/amqp"
	"github.com/justapithecus/packetstream/frame"
	"github.com/justapithecus/packetstream/layout"
)

// Built-in layout names, available without a config file.
const (
	// LayoutAMQP is the AMQP 0-9-1 frame layout with method payload decoding.
	LayoutAMQP = "amqp"
	// LayoutAMQPFrame is the AMQP 0-9-1 frame layout without nested decoding.
	LayoutAMQPFrame = "amqp-frame"
	// LayoutAMQPMethod is the fixed head of an AMQP method payload.
	LayoutAMQPMethod = "amqp-method"
)

// Config represents a packetstream.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Source  SourceConfig           `yaml:"source"`
	Layouts map[string]layout.Spec `yaml:"layouts"`
	Frame   FrameConfig            `yaml:"frame"`
	Storage StorageConfig          `yaml:"storage"`
	Adapter AdapterConfig          `yaml:"adapter"`
}

// SourceConfig holds input defaults for dial and decode.
type SourceConfig struct {
	Addr string `yaml:"addr"`
	// Addrs lists peers to pick from on each attempt. Addr is tried first
	// when both are set.
	Addrs []string `yaml:"addrs"`
	// Strategy is round_robin, random or sticky.
	Strategy string `yaml:"strategy"`
	// Handshake is "amqp" (send the protocol header) or "none".
	Handshake   string   `yaml:"handshake"`
	ChunkSize   int      `yaml:"chunk_size"`
	DialTimeout Duration `yaml:"dial_timeout"`
	Reconnect   int      `yaml:"reconnect"`
}

// FrameConfig selects the outer layout and describes its nested payload.
// Layout and Prefix name entries of Config.Layouts or built-in layouts.
type FrameConfig struct {
	Layout        string   `yaml:"layout"`
	Discriminator string   `yaml:"discriminator"`
	Match         []string `yaml:"match"`
	Payload       string   `yaml:"payload"`
	Trailer       string   `yaml:"trailer"`
	Prefix        string   `yaml:"prefix"`
	Remainder     string   `yaml:"remainder"`
	Unmatched     string   `yaml:"unmatched"`
}

// StorageConfig holds capture storage defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Endpoints returns the configured peer addresses.
func (s SourceConfig) Endpoints() []string {
	var out []string
	if s.Addr != "" {
		out = append(out, s.Addr)
	}
	for _, a := range s.Addrs {
		if a != s.Addr {
			out = append(out, a)
		}
	}
	return out
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Decoding is a resolved outer layout plus its optional nested payload
// configuration.
type Decoding struct {
	Name      string
	Outer     *layout.Layout
	Assembler *frame.Config
}

// LayoutNames returns the built-in and configured layout names, sorted.
// A configured layout shadows a built-in one of the same name.
func (c *Config) LayoutNames() []string {
	names := []string{LayoutAMQP, LayoutAMQPFrame, LayoutAMQPMethod}
	if c != nil {
		for name := range maps.Keys(c.Layouts) {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names
}

// Layout builds the named layout.
func (c *Config) Layout(name string) (*layout.Layout, error) {
	if c != nil {
		if spec, ok := c.Layouts[name]; ok {
			l, err := spec.Build()
			if err != nil {
				return nil, fmt.Errorf("layout %q: %w", name, err)
			}
			return l, nil
		}
	}
	switch name {
	case LayoutAMQP, LayoutAMQPFrame:
		return amqp.FrameLayout(), nil
	case LayoutAMQPMethod:
		return amqp.MethodPrefix(), nil
	default:
		return nil, fmt.Errorf("unknown layout %q", name)
	}
}

// Decoding resolves the named outer layout. An empty name falls back to
// frame.layout and then to the built-in AMQP layout. Nested decoding is
// configured when the name is the built-in "amqp", or when it is frame.layout
// and frame.discriminator is set.
func (c *Config) Decoding(name string) (*Decoding, error) {
	var fc FrameConfig
	if c != nil {
		fc = c.Frame
	}
	if name == "" {
		name = fc.Layout
	}
	if name == "" {
		name = LayoutAMQP
	}

	outer, err := c.Layout(name)
	if err != nil {
		return nil, err
	}
	d := &Decoding{Name: name, Outer: outer}

	unmatched, err := frame.ParseUnmatchedPolicy(fc.Unmatched)
	if err != nil {
		return nil, err
	}

	switch {
	case fc.Discriminator != "" && (fc.Layout == "" || fc.Layout == name):
		asm, err := c.frameConfig(fc, unmatched)
		if err != nil {
			return nil, err
		}
		d.Assembler = asm
	case name == LayoutAMQP && !c.hasLayout(LayoutAMQP):
		asm := amqp.AssemblerConfig(unmatched)
		d.Assembler = &asm
	}

	if d.Assembler != nil {
		if err := d.Assembler.ValidateAgainst(outer); err != nil {
			return nil, fmt.Errorf("layout %q: %w", name, err)
		}
	}
	return d, nil
}

func (c *Config) hasLayout(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Layouts[name]
	return ok
}

func (c *Config) frameConfig(fc FrameConfig, unmatched frame.UnmatchedPolicy) (*frame.Config, error) {
	if fc.Prefix == "" {
		return nil, fmt.Errorf("frame.prefix is required with frame.discriminator")
	}
	prefix, err := c.Layout(fc.Prefix)
	if err != nil {
		return nil, fmt.Errorf("frame.prefix: %w", err)
	}
	return &frame.Config{
		Discriminator: fc.Discriminator,
		Match:         fc.Match,
		Payload:       fc.Payload,
		Trailer:       fc.Trailer,
		Prefix:        prefix,
		Remainder:     fc.Remainder,
		Unmatched:     unmatched,
	}, nil
}
