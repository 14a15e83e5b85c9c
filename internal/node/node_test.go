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
	"crypto/ed25519"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/governance"
	"github.com/blinklabs-io/taleledger/internal/config"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.DatabasePath = ""
	cfg.ApiListenAddress = "127.0.0.1:0"
	cfg.MetricsListenAddress = ""
	cfg.ShutdownTimeout = "5s"
	return cfg
}

func TestOpenWiresComponents(t *testing.T) {
	n, err := Open(memoryConfig(), nil, prometheus.NewRegistry())
	require.NoError(t, err)
	defer n.Close()

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	creator := ledger.PublicKeyAddress(pub)
	ctx := context.Background()
	require.NoError(t, n.Runtime().Fund(ctx, creator, 100_000_000_000))

	now := n.Runtime().Clock().Now()
	addr, err := n.Governance().CreateVote(
		ctx,
		ledger.NewSignerSet(creator),
		creator,
		governance.CreateVoteParams{
			VotingId:         "wiring",
			Question:         "Does it work?",
			Choices:          []string{"yes", "no"},
			StartTime:        now.Add(-time.Minute),
			EndTime:          now.Add(time.Hour),
			RegularVotePower: 1,
			NftVotePower:     2,
			Category:         governance.CategoryTechnical,
		},
	)
	require.NoError(t, err)
	rows, total, err := n.Governance().QueryVotes(ctx, governanceFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, addr.Bytes(), rows[0].Address)
}

func TestReindexRestoresLostMetadata(t *testing.T) {
	cfg := memoryConfig()
	cfg.DatabasePath = t.TempDir()
	ctx := context.Background()
	n, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	creator := ledger.PublicKeyAddress(pub)
	require.NoError(t, n.Runtime().Fund(ctx, creator, 100_000_000_000))
	now := n.Runtime().Clock().Now()
	_, err = n.Governance().CreateVote(
		ctx,
		ledger.NewSignerSet(creator),
		creator,
		governance.CreateVoteParams{
			VotingId:         "reindex",
			Question:         "Still there?",
			Choices:          []string{"yes", "no"},
			StartTime:        now.Add(-time.Minute),
			EndTime:          now.Add(time.Hour),
			RegularVotePower: 1,
			NftVotePower:     2,
			Category:         governance.CategoryTechnical,
		},
	)
	require.NoError(t, err)
	require.NoError(t, n.Close())

	matches, err := filepath.Glob(filepath.Join(cfg.DatabasePath, "metadata.sqlite*"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, path := range matches {
		require.NoError(t, os.Remove(path))
	}

	n, err = Open(cfg, nil, nil)
	require.NoError(t, err)
	defer n.Close()
	_, total, err := n.Governance().QueryVotes(ctx, governanceFilter())
	require.NoError(t, err)
	require.Zero(t, total)

	result, err := n.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReindexResult{Records: 1, Votes: 1}, result)
	_, total, err = n.Governance().QueryVotes(ctx, governanceFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.ProgramId = "not base58 0"
	_, err := Open(cfg, nil, nil)
	assert.Error(t, err)
}

func TestRunServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	metricsAddr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := memoryConfig()
	cfg.MetricsListenAddress = metricsAddr
	n, err := Open(cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", metricsAddr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("node did not shut down")
	}
}

func governanceFilter() models.VoteFilter {
	return models.VoteFilter{Page: 1, PageSize: 10}
}
