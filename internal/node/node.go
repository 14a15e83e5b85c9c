// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/blinklabs-io/taleledger/api"
	"github.com/blinklabs-io/taleledger/database"
	"github.com/blinklabs-io/taleledger/event"
	"github.com/blinklabs-io/taleledger/governance"
	"github.com/blinklabs-io/taleledger/internal/config"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/blinklabs-io/taleledger/nft"
	"github.com/blinklabs-io/taleledger/story"
	"github.com/blinklabs-io/taleledger/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// loggedEventTypes are echoed to the debug log as they are published
var loggedEventTypes = []event.EventType{
	ledger.RecordCreatedEventType,
	ledger.RecordClosedEventType,
	governance.VoteCreatedEventType,
	governance.VoteCastEventType,
	governance.VoteFinalizedEventType,
}

// Node owns the database and every component built on top of it
type Node struct {
	config        *config.Config
	logger        *slog.Logger
	promRegistry  prometheus.Registerer
	db            *database.Database
	eventBus      *event.EventBus
	runtime       *ledger.Runtime
	tokens        *token.Ledger
	governance    *governance.Engine
	stories       *story.Store
	nfts          *nft.Registry
	shutdownFuncs []func(context.Context) error
}

// Open builds a node from the config. A nil registry disables metrics.
func Open(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Node, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	n := &Node{
		config:       cfg,
		logger:       logger,
		promRegistry: promRegistry,
	}
	if cfg.Tracing {
		if err := n.setupTracing(); err != nil {
			return nil, err
		}
	}
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		PromRegistry:   promRegistry,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
	if err != nil {
		_ = n.shutdown(context.Background())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	program, err := cfg.ProgramAddress()
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	n.eventBus = event.NewEventBus(promRegistry, logger)
	n.runtime = ledger.NewRuntime(
		db,
		ledger.WithLogger(logger),
		ledger.WithPromRegistry(promRegistry),
		ledger.WithProgramID(program),
		ledger.WithDepositSchedule(cfg.DepositSchedule()),
		ledger.WithEventBus(n.eventBus),
	)
	n.tokens = token.New(n.runtime)
	n.governance, err = governance.NewEngine(governance.EngineConfig{
		Runtime:      n.runtime,
		TokenOracle:  n.tokens,
		Logger:       logger,
		PromRegistry: promRegistry,
	})
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	n.stories = story.New(n.runtime)
	n.nfts = nft.New(n.runtime)
	for _, eventType := range loggedEventTypes {
		n.eventBus.SubscribeFunc(eventType, func(evt event.Event) {
			n.logger.Debug(
				"event",
				"type", string(evt.Type),
				"data", fmt.Sprintf("%+v", evt.Data),
				"component", "node",
			)
		})
	}
	return n, nil
}

func (n *Node) Runtime() *ledger.Runtime       { return n.runtime }
func (n *Node) Tokens() *token.Ledger          { return n.tokens }
func (n *Node) Governance() *governance.Engine { return n.governance }
func (n *Node) Stories() *story.Store          { return n.stories }
func (n *Node) NFTs() *nft.Registry            { return n.nfts }
func (n *Node) EventBus() *event.EventBus      { return n.eventBus }
func (n *Node) Database() *database.Database   { return n.db }

// ReindexResult counts the rows written by Reindex
type ReindexResult struct {
	Records int `json:"records"`
	Votes   int `json:"votes"`
	Ballots int `json:"ballots"`
}

// Reindex rebuilds the metadata index from the blob store. Use it after a
// partial commit left the index behind, or after swapping metadata plugins.
func (n *Node) Reindex(ctx context.Context) (ReindexResult, error) {
	var ret ReindexResult
	var err error
	if ret.Records, err = n.runtime.RebuildRecordIndex(ctx); err != nil {
		return ReindexResult{}, fmt.Errorf("rebuild record index: %w", err)
	}
	if ret.Votes, ret.Ballots, err = n.governance.RebuildIndex(ctx); err != nil {
		return ReindexResult{}, fmt.Errorf("rebuild vote index: %w", err)
	}
	return ret, nil
}

// Run serves the HTTP API and the metrics endpoint until ctx is cancelled,
// then shuts both down and closes the node
func (n *Node) Run(ctx context.Context) error {
	shutdownTimeout, err := n.config.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	apiServer := api.New(
		api.Config{
			ListenAddress: n.config.ApiListenAddress,
			PromRegistry:  n.promRegistry,
			Clock:         n.runtime.Clock(),
		},
		n.governance,
		n.logger,
	)
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	metricsServer, err := n.startMetrics()
	if err != nil {
		return errors.Join(err, apiServer.Stop(context.Background()))
	}
	<-ctx.Done()
	n.logger.Info("shutting down", "component", "node")
	//nolint:contextcheck
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	var errs []error
	if err := apiServer.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if err := n.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (n *Node) startMetrics() (*http.Server, error) {
	if n.config.MetricsListenAddress == "" || n.promRegistry == nil {
		return nil, nil
	}
	gatherer, ok := n.promRegistry.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              n.config.MetricsListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}
	n.logger.Info(
		"serving prometheus metrics on "+server.Addr,
		"component", "node",
	)
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			n.logger.Error(
				"metrics listener failed",
				"error", err,
				"component", "node",
			)
		}
	}()
	return server, nil
}

// Close stops the event bus, flushes tracing and closes the database
func (n *Node) Close() error {
	var errs []error
	if n.eventBus != nil {
		n.eventBus.Stop()
	}
	if err := n.shutdown(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		n.db = nil
	}
	return errors.Join(errs...)
}

func (n *Node) shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range n.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	n.shutdownFuncs = nil
	return errors.Join(errs...)
}
