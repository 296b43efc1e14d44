package network

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
  "default": "L1",
  "networks": {
    "l1": {"chainId": 1337, "rpcUrl": "http://localhost:8545", "layer": 1,
           "contracts": {"Inbox": "0x00000000000000000000000000000000000000aa"}},
    "l2": {"chainId": 412346, "rpcUrl": "http://localhost:8547", "layer": 2, "parent": "l1",
           "contracts": {"editions": "0x00000000000000000000000000000000000000bb"}}
  }
}`

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader(testConfig))
	require.NoError(t, err)

	cur := s.Current()
	assert.Equal(t, "l1", cur.Name)
	assert.Equal(t, uint64(1337), cur.ChainID)

	addr, err := s.ContractAddress("inbox")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xaa"), addr)

	_, err = s.ContractAddress("editions")
	assert.ErrorIs(t, err, ErrUnknownContract)
}

func TestSwitchNetwork(t *testing.T) {
	s, err := Load(strings.NewReader(testConfig))
	require.NoError(t, err)

	n, err := s.SwitchNetwork(" L2 ")
	require.NoError(t, err)
	assert.Equal(t, "l2", n.Name)
	assert.Equal(t, "l1", n.Parent)
	assert.Equal(t, "l2", s.Current().Name)

	addr, err := s.ContractAddress("Editions")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xbb"), addr)

	_, err = s.SwitchNetwork("mainnet")
	assert.ErrorIs(t, err, ErrUnknownNetwork)
	assert.Equal(t, "l2", s.Current().Name, "failed switch keeps the current network")
}

func TestNetworks_Ordered(t *testing.T) {
	s, err := LoadFile("")
	require.NoError(t, err)

	var names []string
	for _, n := range s.Networks() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"ethereum", "sepolia", "arbitrum-one", "arbitrum-sepolia"}, names)
	assert.Equal(t, "arbitrum-sepolia", s.Current().Name)

	parent, err := s.Network(s.Current().Parent)
	require.NoError(t, err)
	assert.Equal(t, uint64(11155111), parent.ChainID)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networks.json")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, s.Networks(), 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"Malformed", `{"networks":`},
		{"No networks", `{"networks": {}, "default": "x"}`},
		{"Unknown default", `{"networks": {"a": {"layer": 1}}, "default": "b"}`},
		{"Missing layer", `{"networks": {"a": {}}, "default": "a"}`},
		{"Unknown parent", `{"networks": {"a": {"layer": 2, "parent": "z"}}, "default": "a"}`},
		{"Bad address", `{"networks": {"a": {"layer": 1, "contracts": {"x": "0x12"}}}, "default": "a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.json))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestStore_Concurrent(t *testing.T) {
	s, err := Load(strings.NewReader(testConfig))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = s.SwitchNetwork("l2")
			} else {
				_, _ = s.SwitchNetwork("l1")
			}
			_ = s.Current()
			_, _ = s.ContractAddress("inbox")
		}(i)
	}
	wg.Wait()

	assert.Contains(t, []string{"l1", "l2"}, s.Current().Name)
}
