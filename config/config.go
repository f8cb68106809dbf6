// Package config loads the settings of the fxaclient and fxaserver programs
// from YAML files and the positional X A P arguments.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	rxp "github.com/nicosta1132/rxp-go"
)

var ErrUsage = errors.New("expected arguments: X A P")

type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// PeerConfig is the local port to bind and the address all datagrams are
// sent to, usually a network emulator.
type PeerConfig struct {
	LocalPort   int    `yaml:"local_port"`
	PeerAddress string `yaml:"peer_address"`
	PeerPort    int    `yaml:"peer_port"`
}

type ClientConfig struct {
	PeerConfig  `yaml:",inline"`
	ReadTimeout string `yaml:"read_timeout"`
	MaxTries    int    `yaml:"max_tries"`
	// WindowSize is requested from the server right after connecting when
	// it is larger than 1.
	WindowSize int       `yaml:"window_size"`
	OutputDir  string    `yaml:"output_dir"`
	Log        LogConfig `yaml:"log"`
}

type ServerConfig struct {
	PeerConfig         `yaml:",inline"`
	RetransmitInterval string    `yaml:"retransmit_interval"`
	RootDir            string    `yaml:"root_dir"`
	Log                LogConfig `yaml:"log"`
}

func defaultLogConfig() LogConfig {
	return LogConfig{Level: "info", MaxSizeMB: 10}
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PeerConfig:  PeerConfig{PeerAddress: "127.0.0.1"},
		ReadTimeout: rxp.DefaultReadTimeout.String(),
		MaxTries:    rxp.DefaultMaxTries,
		WindowSize:  rxp.DefaultWindowSize,
		OutputDir:   ".",
		Log:         defaultLogConfig(),
	}
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		PeerConfig:         PeerConfig{PeerAddress: "127.0.0.1"},
		RetransmitInterval: rxp.DefaultRetransmitInterval.String(),
		RootDir:            ".",
		Log:                defaultLogConfig(),
	}
}

func LoadClient(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := parseFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func LoadServer(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := parseFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseFile(path string, cfg any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading configuration file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing %s: %w", path, err)
	}
	return nil
}

// ParseEndpointArgs reads the positional arguments X A P: the local port, the
// peer address and the peer port.
func ParseEndpointArgs(args []string) (PeerConfig, error) {
	if len(args) != 3 {
		return PeerConfig{}, fmt.Errorf("%w, got %d arguments", ErrUsage, len(args))
	}
	localPort, err := strconv.Atoi(args[0])
	if err != nil {
		return PeerConfig{}, fmt.Errorf("invalid local port %q", args[0])
	}
	peerPort, err := strconv.Atoi(args[2])
	if err != nil {
		return PeerConfig{}, fmt.Errorf("invalid peer port %q", args[2])
	}
	peer := PeerConfig{LocalPort: localPort, PeerAddress: args[1], PeerPort: peerPort}
	return peer, peer.Validate()
}

// ApplyArgs overrides the endpoint settings with positional arguments. No
// arguments leave the configuration untouched.
func (p *PeerConfig) ApplyArgs(args []string) error {
	if len(args) == 0 {
		return nil
	}
	peer, err := ParseEndpointArgs(args)
	if err != nil {
		return err
	}
	*p = peer
	return nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

func (p PeerConfig) Validate() error {
	if !validPort(p.LocalPort) {
		return fmt.Errorf("local port %d out of range", p.LocalPort)
	}
	if !validPort(p.PeerPort) {
		return fmt.Errorf("peer port %d out of range", p.PeerPort)
	}
	if p.PeerAddress == "" {
		return errors.New("peer address is empty")
	}
	return nil
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}

func (c ClientConfig) Validate() error {
	_, err := c.Options()
	return err
}

func (c ServerConfig) Validate() error {
	_, err := c.Options()
	return err
}

// Options checks the configuration and converts it for rxp.NewClient.
func (c ClientConfig) Options() (rxp.ClientOptions, error) {
	if err := c.PeerConfig.Validate(); err != nil {
		return rxp.ClientOptions{}, err
	}
	readTimeout, err := parsePositiveDuration("read_timeout", c.ReadTimeout)
	if err != nil {
		return rxp.ClientOptions{}, err
	}
	if c.MaxTries < 1 {
		return rxp.ClientOptions{}, fmt.Errorf("max_tries must be at least 1, got %d", c.MaxTries)
	}
	if c.WindowSize < 1 {
		return rxp.ClientOptions{}, fmt.Errorf("%w, got %d", rxp.ErrInvalidWindowSize, c.WindowSize)
	}
	return rxp.ClientOptions{
		LocalPort:   c.LocalPort,
		PeerAddress: c.PeerAddress,
		PeerPort:    c.PeerPort,
		ReadTimeout: readTimeout,
		MaxTries:    c.MaxTries,
		OutputDir:   c.OutputDir,
	}, nil
}

func (c ServerConfig) Options() (rxp.ServerOptions, error) {
	if err := c.PeerConfig.Validate(); err != nil {
		return rxp.ServerOptions{}, err
	}
	interval, err := parsePositiveDuration("retransmit_interval", c.RetransmitInterval)
	if err != nil {
		return rxp.ServerOptions{}, err
	}
	return rxp.ServerOptions{
		LocalPort:          c.LocalPort,
		PeerAddress:        c.PeerAddress,
		PeerPort:           c.PeerPort,
		RetransmitInterval: interval,
		RootDir:            c.RootDir,
	}, nil
}
