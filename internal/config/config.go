// Package config loads a node's identity, peer roster, advertise address
// and log level from the environment, with an optional YAML file providing
// defaults that environment variables may override.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the typed configuration surface consumed by cmd/node.
type Config struct {
	ID               uint8
	Peers            map[uint8]string
	AdvertiseAddress string
	LogLevel         string
}

const defaultAdvertiseAddress = "127.0.0.1:5678"
const defaultLogLevel = "info"

// fileConfig mirrors Config's shape for YAML unmarshaling.
type fileConfig struct {
	NodeID           *uint8      `yaml:"node_id"`
	Peers            []filePeer  `yaml:"peers"`
	AdvertiseAddress string      `yaml:"advertise_address"`
	LogLevel         string      `yaml:"log_level"`
}

type filePeer struct {
	ID      uint8  `yaml:"id"`
	Address string `yaml:"address"`
}

// Load builds a Config from the environment. If configPath is non-empty, it
// is parsed first and environment variables override any field they set.
func Load(configPath string) (Config, error) {
	cfg := Config{
		AdvertiseAddress: defaultAdvertiseAddress,
		LogLevel:         defaultLogLevel,
	}

	idSet := false
	if configPath != "" {
		fc, err := loadFile(configPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if fc.NodeID != nil {
			cfg.ID = *fc.NodeID
			idSet = true
		}
		if len(fc.Peers) > 0 {
			peers := make(map[uint8]string, len(fc.Peers))
			for _, p := range fc.Peers {
				if _, dup := peers[p.ID]; dup {
					return Config{}, fmt.Errorf("config: duplicate peer id %d", p.ID)
				}
				if err := validateAddress(p.Address); err != nil {
					return Config{}, fmt.Errorf("config: invalid address for peer %d: %w", p.ID, err)
				}
				peers[p.ID] = p.Address
			}
			cfg.Peers = peers
		}
		if fc.AdvertiseAddress != "" {
			cfg.AdvertiseAddress = fc.AdvertiseAddress
		}
		if fc.LogLevel != "" {
			cfg.LogLevel = fc.LogLevel
		}
	}

	if v, ok := os.LookupEnv("NODE_ID"); ok {
		id, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid NODE_ID %q: %w", v, err)
		}
		cfg.ID = uint8(id)
	} else if !idSet {
		return Config{}, fmt.Errorf("config: NODE_ID is required")
	}

	if v, ok := os.LookupEnv("PEERS"); ok {
		peers, err := parsePeers(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		cfg.Peers = peers
	} else if configPath == "" {
		return Config{}, fmt.Errorf("config: PEERS is required")
	}

	if len(cfg.Peers) == 0 {
		return Config{}, fmt.Errorf("config: peer roster must not be empty")
	}
	if _, ok := cfg.Peers[cfg.ID]; ok {
		return Config{}, fmt.Errorf("config: PEERS must not include this node's own id %d", cfg.ID)
	}

	if v, ok := os.LookupEnv("ADVERTISE_ADDRESS"); ok {
		cfg.AdvertiseAddress = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("config: invalid LOG_LEVEL %q", cfg.LogLevel)
	}

	return cfg, nil
}

func loadFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	return fc, nil
}

// parsePeers parses "id=host:port,id=host:port,...".
func parsePeers(s string) (map[uint8]string, error) {
	peers := make(map[uint8]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idStr, addr, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("malformed peer entry %q, want id=host:port", pair)
		}
		id, err := strconv.ParseUint(idStr, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("malformed peer id in %q: %w", pair, err)
		}
		if _, dup := peers[uint8(id)]; dup {
			return nil, fmt.Errorf("duplicate peer id %d", id)
		}
		if err := validateAddress(addr); err != nil {
			return nil, fmt.Errorf("invalid address in %q: %w", pair, err)
		}
		peers[uint8(id)] = addr
	}
	return peers, nil
}

// validateAddress checks that addr is a syntactically valid host:port pair
// without resolving the host, so a bad entry fails at config-load time
// rather than being deferred to DialPeers's net.DialTimeout.
func validateAddress(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("missing host")
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	if port == 0 {
		return fmt.Errorf("port must be nonzero")
	}
	return nil
}
