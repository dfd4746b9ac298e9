// Package config is the TOML node bootstrap configuration for an ismpd
// deployment: which state machine the node runs as, which consensus client
// families are registered, and the per-family challenge/unbonding periods a
// host.Host is expected to answer from (spec §4.1 ChallengePeriod). Grounded
// on the teacher's e2e/interchaintestv8/attestor/config.go BurntSushi/toml
// pattern: a struct tree with toml tags, a Default*Config constructor and a
// WriteTomlConfig/LoadConfig pair.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/polytope-labs/go-ismp/types"
)

// ClientConfig is one registered consensus client family's liveness
// parameters.
type ClientConfig struct {
	// ClientId is the 4-byte consensus client family tag, given as its raw
	// ASCII text (e.g. "ics23" truncates to "ics2" via Id; shorter text is
	// space-padded).
	ClientId string `toml:"client_id"`
	// ChallengePeriodSeconds is the minimum delay between a consensus
	// update and any proof verified against it (spec §4.4 step 4).
	ChallengePeriodSeconds uint64 `toml:"challenge_period_seconds"`
	// UnbondingPeriodSeconds bounds how stale a trusted consensus state may
	// become before handlers.UpdateConsensusClient/validateStateMachine
	// treats it as expired.
	UnbondingPeriodSeconds uint64 `toml:"unbonding_period_seconds"`
}

// Id packs ClientId into a types.ConsensusClientId, the 4-byte tag handlers
// and the consensus registry key off of.
func (c ClientConfig) Id() types.ConsensusClientId {
	return types.NewConsensusClientId(c.ClientId)
}

// ChallengePeriod returns the configured challenge period as a Duration.
func (c ClientConfig) ChallengePeriod() time.Duration {
	return time.Duration(c.ChallengePeriodSeconds) * time.Second
}

// UnbondingPeriod returns the configured unbonding period as a Duration.
func (c ClientConfig) UnbondingPeriod() time.Duration {
	return time.Duration(c.UnbondingPeriodSeconds) * time.Second
}

// HostConfig identifies the local chain a node instance runs as.
type HostConfig struct {
	Family  string `toml:"family"`
	StateId uint32 `toml:"state_id"`
}

// StateMachine resolves the configured family/id pair into a types.StateMachine.
func (h HostConfig) StateMachine() (types.StateMachine, error) {
	family, err := parseFamily(h.Family)
	if err != nil {
		return types.StateMachine{}, err
	}
	return types.StateMachine{Family: family, StateId: h.StateId}, nil
}

func parseFamily(s string) (types.StateMachineFamily, error) {
	switch s {
	case "POLKADOT":
		return types.Polkadot, nil
	case "KUSAMA":
		return types.Kusama, nil
	case "SUBSTRATE":
		return types.Substrate, nil
	case "TENDERMINT":
		return types.Tendermint, nil
	case "EVM":
		return types.Evm, nil
	case "BITCOIN":
		return types.Bitcoin, nil
	case "RELAY":
		return types.Relay, nil
	default:
		return 0, fmt.Errorf("config: unrecognized state machine family %q", s)
	}
}

// LogConfig sets the zerolog level cmd/ismpd serve logs at. The output
// format is not configurable.
type LogConfig struct {
	Level string `toml:"level"`
}

// Config is the full node bootstrap configuration.
type Config struct {
	Host    HostConfig     `toml:"host"`
	Log     LogConfig      `toml:"log"`
	Clients []ClientConfig `toml:"clients"`
}

// DefaultConfig returns a config with sensible defaults for a local relay
// chain demo: one client family tagged "ics23" and a one-hour challenge
// window, mirroring the teacher's DefaultAttestorConfig shape.
func DefaultConfig() *Config {
	return &Config{
		Host: HostConfig{Family: "RELAY", StateId: 0},
		Log:  LogConfig{Level: "info"},
		Clients: []ClientConfig{
			{
				ClientId:               "ics23",
				ChallengePeriodSeconds: 3600,
				UnbondingPeriodSeconds: 86400 * 14,
			},
		},
	}
}

// WriteTomlConfig writes the config to filePath.
func (c *Config) WriteTomlConfig(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}

// LoadConfig reads and decodes a TOML config file.
func LoadConfig(filePath string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(filePath, &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", filePath, err)
	}
	return &cfg, nil
}
