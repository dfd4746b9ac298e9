package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/polytope-labs/go-ismp/commitment"
	"github.com/polytope-labs/go-ismp/config"
	"github.com/polytope-labs/go-ismp/consensus"
	"github.com/polytope-labs/go-ismp/handlers"
	"github.com/polytope-labs/go-ismp/testutil/memhost"
	"github.com/polytope-labs/go-ismp/types"
)

// ServeCmd wires an in-memory host, router and consensus client registry
// from a node config, then runs a small fixture message batch through
// handlers.Handle and logs every outcome. It stands in for the networked
// node loop this module's scope explicitly excludes (spec §1 non-goals);
// the point is to exercise the wired-up handler core end to end, the way
// the teacher's e2e harness drives a live relayer.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Wire an in-memory node and process a fixture message batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString(FlagConfig)
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runFixture(cfg)
		},
	}
	cmd.Flags().String(FlagConfig, DefaultConfigPath, "path to the config file")
	return cmd
}

func runFixture(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Str("app", "ismpd").Logger()

	hostChain, err := cfg.Host.StateMachine()
	if err != nil {
		return err
	}
	if len(cfg.Clients) == 0 {
		return fmt.Errorf("config has no registered consensus clients")
	}

	remoteChain := types.StateMachine{Family: types.Relay, StateId: 2000}

	challengePeriods := make(map[types.ConsensusClientId]time.Duration)
	unbondingPeriods := make(map[types.ConsensusClientId]time.Duration)
	registry := consensus.NewRegistry()
	for _, c := range cfg.Clients {
		challengePeriods[c.Id()] = c.ChallengePeriod()
		unbondingPeriods[c.Id()] = c.UnbondingPeriod()
		registry.Register(c.Id(), &memhost.MockClient{Tracks: remoteChain, UnbondingPeriodDuration: c.UnbondingPeriod()})
	}
	clientId := cfg.Clients[0].Id()

	host := memhost.New(hostChain, challengePeriods, unbondingPeriods)
	router := memhost.NewRouter(host)
	module := handlers.New(host, router, registry, log)

	ctx := context.Background()
	stateId := types.NewConsensusStateId("demo")

	host.SetTimestamp(0)
	createRes, err := module.CreateConsensusClient(ctx, types.CreateConsensusClient{
		ConsensusClientId: clientId,
		ConsensusStateId:  stateId,
		ConsensusState:    []byte("genesis"),
		StateMachineCommitments: []types.StateMachineCommitmentEntry{
			{
				Id: types.StateMachineId{StateId: remoteChain, ConsensusStateId: stateId},
				Commitment: types.IntermediateState{
					Height:     1,
					Commitment: types.StateCommitment{Timestamp: 0, StateRoot: [32]byte{}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create consensus client: %w", err)
	}
	log.Info().Str("consensus_state_id", createRes.ConsensusStateId.String()).Int("genesis_heights", len(createRes.Genesis)).Msg("bootstrapped")

	host.AdvanceTimestamp(cfg.Clients[0].ChallengePeriod() + time.Second)

	updateRes, err := module.UpdateConsensusClient(ctx, types.ConsensusMessage{
		ConsensusStateId: stateId,
		ConsensusProof:   []byte("relayed-proof"),
	})
	if err != nil {
		return fmt.Errorf("update consensus client: %w", err)
	}
	log.Info().Int("state_updates", len(updateRes.StateUpdates)).Msg("consensus updated")

	host.AdvanceTimestamp(cfg.Clients[0].ChallengePeriod() + time.Second)

	post := types.Post{
		SourceChain:      remoteChain,
		DestChain:        hostChain,
		Nonce:            0,
		From:             []byte("source-module"),
		To:               []byte("dest-module"),
		TimeoutTimestamp: 0,
		Data:             []byte("hello ismp"),
	}
	req := types.PostRequest(post)
	_ = commitment.HashRequest(req)

	height := types.StateMachineHeight{Id: types.StateMachineId{StateId: remoteChain, ConsensusStateId: stateId}, Height: 1}
	requestResult, err := module.HandleRequests(ctx, types.RequestMessage{
		Requests: []types.Request{req},
		Proof:    types.Proof{Height: height, Proof: []byte("membership-proof")},
	})
	if err != nil {
		return fmt.Errorf("handle requests: %w", err)
	}
	for _, outcome := range requestResult.Outcomes {
		log.Info().Uint64("nonce", outcome.Nonce).Bool("ok", outcome.Err == nil).Msg("fixture request dispatched")
	}

	return nil
}
