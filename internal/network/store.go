// Package network holds per-network settings and contract addresses, with an
// explicit current network that callers switch between.
package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnknownNetwork is returned for a network name not in the config
	ErrUnknownNetwork = errors.New("unknown network")
	// ErrUnknownContract is returned when the network has no such contract
	ErrUnknownContract = errors.New("unknown contract")
	// ErrInvalidConfig is returned when the config cannot be used
	ErrInvalidConfig = errors.New("invalid network config")
)

// Network is one chain the platform talks to.
type Network struct {
	Name    string `json:"name"`
	ChainID uint64 `json:"chainId"`
	RPCURL  string `json:"rpcUrl"`
	// Layer is 1 for a settlement chain, 2 or 3 for rollups.
	Layer int `json:"layer"`
	// Parent names the chain a rollup settles on.
	Parent    string                    `json:"parent,omitempty"`
	Contracts map[string]common.Address `json:"contracts"`
}

// Config is the JSON document the store is loaded from.
type Config struct {
	Networks map[string]Network `json:"networks"`
	Default  string             `json:"default"`
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	networks map[string]Network
	current  string
}

// New validates cfg and returns a store positioned on cfg.Default.
func New(cfg Config) (*Store, error) {
	if len(cfg.Networks) == 0 {
		return nil, fmt.Errorf("%w: no networks", ErrInvalidConfig)
	}

	networks := make(map[string]Network, len(cfg.Networks))
	for name, n := range cfg.Networks {
		key := normalize(name)
		if key == "" {
			return nil, fmt.Errorf("%w: empty network name", ErrInvalidConfig)
		}
		if n.Layer < 1 {
			return nil, fmt.Errorf("%w: network %q has layer %d", ErrInvalidConfig, name, n.Layer)
		}
		n.Name = key
		n.Parent = normalize(n.Parent)
		contracts := make(map[string]common.Address, len(n.Contracts))
		for c, addr := range n.Contracts {
			contracts[normalize(c)] = addr
		}
		n.Contracts = contracts
		networks[key] = n
	}
	for _, n := range networks {
		if n.Parent == "" {
			continue
		}
		if _, ok := networks[n.Parent]; !ok {
			return nil, fmt.Errorf("%w: network %q has unknown parent %q", ErrInvalidConfig, n.Name, n.Parent)
		}
	}

	def := normalize(cfg.Default)
	if _, ok := networks[def]; !ok {
		return nil, fmt.Errorf("%w: default %q: %w", ErrInvalidConfig, cfg.Default, ErrUnknownNetwork)
	}
	return &Store{networks: networks, current: def}, nil
}

// Load reads a JSON config from r.
func Load(r io.Reader) (*Store, error) {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return New(cfg)
}

// LoadFile reads a JSON config from path. An empty path loads the built-in
// networks.
func LoadFile(path string) (*Store, error) {
	if path == "" {
		return Load(strings.NewReader(DefaultConfig))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Current returns the network in use.
func (s *Store) Current() Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.networks[s.current]
}

// SwitchNetwork makes name the current network.
func (s *Store) SwitchNetwork(name string) (Network, error) {
	key := normalize(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.networks[key]
	if !ok {
		return Network{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
	}
	s.current = key
	return n, nil
}

// Network looks up a network by name.
func (s *Store) Network(name string) (Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.networks[normalize(name)]
	if !ok {
		return Network{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
	}
	return n, nil
}

// Networks lists every network ordered by layer, then name.
func (s *Store) Networks() []Network {
	s.mu.RLock()
	out := make([]Network, 0, len(s.networks))
	for _, n := range s.networks {
		out = append(out, n)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ContractAddress returns the named contract on the current network.
func (s *Store) ContractAddress(contract string) (common.Address, error) {
	n := s.Current()
	addr, ok := n.Contracts[normalize(contract)]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s on %s", ErrUnknownContract, contract, n.Name)
	}
	return addr, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
