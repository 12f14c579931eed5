package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *JSONRPCError   `json:"error"`
	ID      json.RawMessage `json:"id"`
}

// ethCall posts one JSON-RPC 2.0 request to the eth path and decodes result
// into out. An error member ends the call with a *JSONRPCError cause; an
// envelope without a usable result fails over like any other bad payload.
func (c *Client) ethCall(ctx context.Context, method string, out any, params ...any) error {
	if params == nil {
		params = []any{}
	}

	_, err := c.Do(ctx, Operation{
		Name:   method,
		Method: http.MethodPost,
		Path:   c.ethPath,
		Body: jsonRPCRequest{
			JSONRPC: "2.0",
			Method:  method,
			Params:  params,
			ID:      c.requestID.Add(1),
		},
		Decode: func(payload json.RawMessage) error {
			var resp jsonRPCResponse
			if err := json.Unmarshal(payload, &resp); err != nil {
				return err
			}
			if resp.Error != nil {
				return resp.Error
			}
			if len(resp.Result) == 0 || string(resp.Result) == "null" {
				return fmt.Errorf("%s: empty result", method)
			}
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("%s result: %w", method, err)
			}
			return nil
		},
	})
	return err
}

// EthChainID calls eth_chainId.
func (c *Client) EthChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.ethCall(ctx, "eth_chainId", &id); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// EthBlockNumber calls eth_blockNumber.
func (c *Client) EthBlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.ethCall(ctx, "eth_blockNumber", &n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// EthGetBalance calls eth_getBalance at the latest block.
func (c *Client) EthGetBalance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	var bal quantity256
	if err := c.ethCall(ctx, "eth_getBalance", &bal, addr, "latest"); err != nil {
		return nil, err
	}
	return bal.v, nil
}

// EthGetTransactionCount calls eth_getTransactionCount at the latest block.
func (c *Client) EthGetTransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	var n hexutil.Uint64
	if err := c.ethCall(ctx, "eth_getTransactionCount", &n, addr, "latest"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// EthGasPrice calls eth_gasPrice.
func (c *Client) EthGasPrice(ctx context.Context) (*uint256.Int, error) {
	var price quantity256
	if err := c.ethCall(ctx, "eth_gasPrice", &price); err != nil {
		return nil, err
	}
	return price.v, nil
}

// quantity256 is a hex quantity narrowed to 256 bits while decoding.
type quantity256 struct {
	v *uint256.Int
}

func (q *quantity256) UnmarshalJSON(input []byte) error {
	var big hexutil.Big
	if err := big.UnmarshalJSON(input); err != nil {
		return err
	}
	v, overflow := uint256.FromBig(big.ToInt())
	if overflow {
		return fmt.Errorf("quantity %s overflows 256 bits", big.String())
	}
	q.v = v
	return nil
}
