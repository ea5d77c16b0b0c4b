package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreledger/ledgerd/internal/core/consensus"
	"github.com/coreledger/ledgerd/internal/core/consensus/rcl"
	"github.com/coreledger/ledgerd/internal/node"
)

func runCmd(configFile *string) *cobra.Command {
	var nodeName string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a standalone consensus node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*configFile, nodeName)
		},
	}
	cmd.Flags().StringVar(&nodeName, "node-id", "standalone", "label identifying this node's validator key")
	return cmd
}

func nodeIDFromName(name string) consensus.NodeID {
	sum := sha256.Sum256([]byte(name))
	var id consensus.NodeID
	copy(id[:], sum[:])
	return id
}

func run(configFile, nodeName string) error {
	cfg, err := loadRunConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	nodeID := nodeIDFromName(nodeName)

	adaptor := node.NewStandalone(nodeID, func(ledger consensus.Ledger, validations int) {
		fmt.Printf("ledger %d closed: txSet=%x validations=%d\n", ledger.Seq(), ledger.TxSetID(), validations)
	})

	engine := rcl.NewEngine(adaptor, rcl.Config{
		Timing:     cfg.Timing,
		Thresholds: cfg.Thresholds,
		Parms:      consensus.DefaultParms(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer engine.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lcl, err := adaptor.GetLastClosedLedger()
	if err != nil {
		return fmt.Errorf("get last closed ledger: %w", err)
	}

	ticker := time.NewTicker(cfg.idleTick())
	defer ticker.Stop()

	fmt.Printf("xrpld standalone node %x started\n", nodeID[:4])

	round := consensus.RoundID{Seq: lcl.Seq() + 1, ParentHash: lcl.ID()}
	if err := engine.StartRound(round, true); err != nil {
		return fmt.Errorf("start round: %w", err)
	}

	for {
		select {
		case <-sigCh:
			fmt.Println("shutting down")
			return nil
		case <-ticker.C:
			if engine.Phase() != consensus.PhaseAccepted {
				continue
			}
			lcl, err := adaptor.GetLastClosedLedger()
			if err != nil {
				return fmt.Errorf("get last closed ledger: %w", err)
			}
			round := consensus.RoundID{Seq: lcl.Seq() + 1, ParentHash: lcl.ID()}
			if err := engine.StartRound(round, true); err != nil {
				return fmt.Errorf("start round: %w", err)
			}
		}
	}
}
