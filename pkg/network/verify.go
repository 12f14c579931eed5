package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// 预定义的网络 ID（eth_chainId 返回值）
const (
	DevnetLegacyChainID = 1
	DevnetChainID       = 1616
	BetanetChainID      = 1644
)

// VerifyTimeout bounds the chain id lookup, failover included.
const VerifyTimeout = 10 * time.Second

// ChainIDSource is satisfied by *rpc.Client.
type ChainIDSource interface {
	EthChainID(ctx context.Context) (uint64, error)
}

// Name 返回 Chain ID 对应的网络名称
func Name(chainID uint64) string {
	switch chainID {
	case BetanetChainID:
		return "Archivas Betanet"
	case DevnetChainID:
		return "Archivas Devnet"
	case DevnetLegacyChainID:
		return "Archivas Devnet (legacy)"
	default:
		return fmt.Sprintf("Unknown Network (Chain ID: %d)", chainID)
	}
}

// Detect returns the chain id reported by the first host that answers.
func Detect(ctx context.Context, src ChainIDSource) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, VerifyTimeout)
	defer cancel()

	id, err := src.EthChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return id, nil
}

// VerifyNetwork 校验 RPC 节点的 Chain ID
// 如果与预期不符或获取失败，返回 error
func VerifyNetwork(ctx context.Context, src ChainIDSource, expected uint64) error {
	actual, err := Detect(ctx, src)
	if err != nil {
		slog.Error("network_verify_failed", "error", err)
		return err
	}

	if actual != expected {
		slog.Error("network_mismatch",
			"expected", fmt.Sprintf("%s (ID: %d)", Name(expected), expected),
			"actual", fmt.Sprintf("%s (ID: %d)", Name(actual), actual),
		)
		return fmt.Errorf("network mismatch: expected %d, got %d", expected, actual)
	}

	slog.Info("network_verified",
		"network", Name(expected),
		"chain_id", expected,
	)
	return nil
}
