package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultRecentBlocks is the count sent by GetRecentBlocks for n <= 0.
const DefaultRecentBlocks = 20

// ChainTip is the current head of the chain. The node encodes the numbers as
// strings; json.Number accepts both forms.
type ChainTip struct {
	Height     json.Number `json:"height"`
	Hash       string      `json:"hash"`
	Difficulty json.Number `json:"difficulty"`
}

// HeightUint64 parses Height.
func (t ChainTip) HeightUint64() (uint64, error) {
	return strconv.ParseUint(t.Height.String(), 10, 64)
}

// RecentBlocks is the response of /recentBlocks. Blocks are left raw.
type RecentBlocks struct {
	Blocks []json.RawMessage `json:"blocks"`
	Count  int               `json:"count"`
}

// Challenge is the farming challenge for the next block.
type Challenge struct {
	Challenge  [32]byte    `json:"challenge"`
	Difficulty json.Number `json:"difficulty"`
	Height     json.Number `json:"height"`
}

type Health struct {
	OK         bool        `json:"ok"`
	Height     json.Number `json:"height"`
	Difficulty json.Number `json:"difficulty"`
	Peers      int         `json:"peers"`
}

type Balance struct {
	Address string      `json:"address"`
	Balance int64       `json:"balance"`
	Nonce   json.Number `json:"nonce"`
}

type Accounts struct {
	Count    int               `json:"count"`
	Accounts []json.RawMessage `json:"accounts"`
}

// call runs op through the failover driver, decoding each payload into T.
// A payload of the wrong shape fails that host and the next one is tried.
func call[T any](ctx context.Context, c *Client, op Operation) (T, error) {
	var out T
	op.Decode = func(payload json.RawMessage) error {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return err
		}
		out = v
		return nil
	}

	if _, err := c.Do(ctx, op); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// GetChainTip fetches the current chain tip.
func (c *Client) GetChainTip(ctx context.Context) (ChainTip, error) {
	return call[ChainTip](ctx, c, Operation{
		Name:   "chainTip",
		Method: http.MethodGet,
		Path:   "/chainTip",
	})
}

// GetRecentBlocks fetches the n most recent blocks.
func (c *Client) GetRecentBlocks(ctx context.Context, n int) (RecentBlocks, error) {
	if n <= 0 {
		n = DefaultRecentBlocks
	}
	return call[RecentBlocks](ctx, c, Operation{
		Name:   "recentBlocks",
		Method: http.MethodGet,
		Path:   "/recentBlocks?count=" + strconv.Itoa(n),
	})
}

// GetBlockByHeight fetches one block, undecoded.
func (c *Client) GetBlockByHeight(ctx context.Context, height uint64) (json.RawMessage, error) {
	return call[json.RawMessage](ctx, c, Operation{
		Name:   "blockByHeight",
		Method: http.MethodGet,
		Path:   "/block/" + strconv.FormatUint(height, 10),
	})
}

func (c *Client) GetChallenge(ctx context.Context) (Challenge, error) {
	return call[Challenge](ctx, c, Operation{
		Name:   "challenge",
		Method: http.MethodGet,
		Path:   "/challenge",
	})
}

func (c *Client) GetHealth(ctx context.Context) (Health, error) {
	return call[Health](ctx, c, Operation{
		Name:   "healthz",
		Method: http.MethodGet,
		Path:   "/healthz",
	})
}

// GetBalance fetches the balance and nonce of addr.
func (c *Client) GetBalance(ctx context.Context, addr string) (Balance, error) {
	return call[Balance](ctx, c, Operation{
		Name:   "balance",
		Method: http.MethodGet,
		Path:   "/balance/" + url.PathEscape(addr),
	})
}

func (c *Client) GetAccounts(ctx context.Context) (Accounts, error) {
	return call[Accounts](ctx, c, Operation{
		Name:   "accounts",
		Method: http.MethodGet,
		Path:   "/accounts",
	})
}

// SubmitTx posts a signed transaction. tx is JSON-encoded as is; a
// json.RawMessage is sent verbatim.
func (c *Client) SubmitTx(ctx context.Context, tx any) (json.RawMessage, error) {
	return call[json.RawMessage](ctx, c, Operation{
		Name:   "submitTx",
		Method: http.MethodPost,
		Path:   "/submitTx",
		Body:   tx,
	})
}
