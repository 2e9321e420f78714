package zinc

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything a Client needs to talk to one project: where it
// lives, who to authenticate as, and a few tunables the teacher would have
// exposed as flags (cmd/server/main.go's flagHTTP/flagTenant/flagVerbose)
// but which a library instead takes as a parsed struct.
type Config struct {
	BaseURL  string `yaml:"baseUrl"`
	Project  string `yaml:"project"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// RequestTimeout bounds every individual HTTP round-trip.
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	// ChunkSize is the byte-chunk size the transport reads the response
	// body in (spec §6's "lazy byte-chunk stream").
	ChunkSize int `yaml:"chunkSize"`
	// AutoRefresh enables session.go's background bearer-token refresh.
	AutoRefresh bool `yaml:"autoRefresh"`
	// RefreshInterval is how often the background refresh re-authenticates,
	// when AutoRefresh is set.
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// DefaultConfig returns a Config with conservative, explicit defaults; zero
// values from a partially-specified YAML document are filled in by
// withDefaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:  30 * time.Second,
		ChunkSize:       4096,
		AutoRefresh:     false,
		RefreshInterval: time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = d.RefreshInterval
	}
	return c
}

// LoadConfig parses a YAML document into a Config, filling unset fields
// with DefaultConfig's values.
func LoadConfig(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, err
	}
	return c.withDefaults(), nil
}
