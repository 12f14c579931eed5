//go:build integration

package rpc

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against live nodes: RPC_URLS=https://seed.archivas.ai,... go test -tags integration
func TestIntegration_LiveHosts(t *testing.T) {
	urls := os.Getenv("RPC_URLS")
	if urls == "" {
		t.Skip("RPC_URLS not set")
	}

	// a dead host first forces one failover
	hosts := append([]string{"http://127.0.0.1:1"}, strings.Split(urls, ",")...)
	c, err := NewClient(Config{BaseURLs: hosts, Timeout: 5 * time.Second}, WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tip, err := c.GetChainTip(ctx)
	require.NoError(t, err)

	height, err := tip.HeightUint64()
	require.NoError(t, err)
	assert.Greater(t, height, uint64(0))
	assert.NotEqual(t, "http://127.0.0.1:1", c.Hosts()[0])

	health, err := c.GetHealth(ctx)
	require.NoError(t, err)
	assert.True(t, health.OK)
}
