package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"archivas-rpc-go/internal/config"
	"archivas-rpc-go/internal/rpc"
	"archivas-rpc-go/pkg/network"
)

const usage = `usage: rpc-cli [-urls a,b] [-timeout 3s] [-jitter 150ms] [-v] <command> [args]

commands:
  tip                  current chain tip
  blocks [n]           n most recent blocks (default 20)
  block <height>       block at height
  challenge            current farming challenge
  health               node health
  balance <addr>       balance and nonce of an address
  accounts             all funded accounts
  submit <file|->      submit a signed transaction (JSON)
  eth-chainid          eth_chainId
  eth-block            eth_blockNumber
  eth-balance <0xaddr> eth_getBalance
  eth-nonce <0xaddr>   eth_getTransactionCount
  eth-gasprice         eth_gasPrice
  network              chain id and network name
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("rpc-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	urls := fs.String("urls", "", "comma-separated RPC hosts (overrides RPC_URLS)")
	timeout := fs.Duration("timeout", 0, "per-attempt timeout (0 = 3s reads, 5s writes)")
	jitter := fs.Duration("jitter", rpc.DefaultJitterDelay, "pause between failed attempts")
	verbose := fs.Bool("v", false, "log attempts and print the serving host")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg := config.Load()
	if *urls != "" {
		cfg.RPCURLs = config.SplitList(*urls)
	}
	if *timeout > 0 {
		cfg.RPCTimeout = *timeout
	}

	// attempt logs go to stderr so stdout stays pipeable JSON
	logOut := io.Discard
	if *verbose {
		logOut = stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	served := &lastServed{}
	client, err := rpc.NewClient(cfg.ClientConfig(),
		append(cfg.ClientOptions(), rpc.WithLogger(logger), rpc.WithObserver(served), rpc.WithJitterDelay(*jitter))...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if cfg.ChainID != 0 {
		if err := network.VerifyNetwork(ctx, client, cfg.ChainID); err != nil {
			return err
		}
	}

	result, err := dispatch(ctx, client, fs.Arg(0), fs.Args()[1:])
	if rpc.IsTimeout(err) {
		return fmt.Errorf("%w (raise -timeout)", err)
	}
	if err != nil {
		return err
	}

	if *verbose {
		fmt.Fprintln(stderr, "served by:", served.Host())
	}
	return printJSON(stdout, result)
}

// lastServed remembers the host that served the most recent call.
type lastServed struct {
	mu   sync.Mutex
	host string
}

func (l *lastServed) AttemptObserved(string, string, time.Duration, error) {}

func (l *lastServed) CallObserved(_, host string, _ time.Duration, err error) {
	if err != nil {
		return
	}
	l.mu.Lock()
	l.host = host
	l.mu.Unlock()
}

func (l *lastServed) Host() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.host
}

func dispatch(ctx context.Context, c *rpc.Client, cmd string, args []string) (any, error) {
	switch cmd {
	case "tip":
		return c.GetChainTip(ctx)
	case "blocks":
		n := 0
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, fmt.Errorf("invalid count %q: %w", args[0], err)
			}
			n = v
		}
		return c.GetRecentBlocks(ctx, n)
	case "block":
		if len(args) < 1 {
			return nil, errors.New("usage: block <height>")
		}
		h, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid height %q: %w", args[0], err)
		}
		return c.GetBlockByHeight(ctx, h)
	case "challenge":
		return c.GetChallenge(ctx)
	case "health":
		return c.GetHealth(ctx)
	case "balance":
		if len(args) < 1 {
			return nil, errors.New("usage: balance <addr>")
		}
		return c.GetBalance(ctx, args[0])
	case "accounts":
		return c.GetAccounts(ctx)
	case "submit":
		if len(args) < 1 {
			return nil, errors.New("usage: submit <file.json|->")
		}
		tx, err := readTx(args[0])
		if err != nil {
			return nil, err
		}
		return c.SubmitTx(ctx, tx)
	case "eth-chainid":
		return c.EthChainID(ctx)
	case "eth-block":
		return c.EthBlockNumber(ctx)
	case "eth-balance":
		if len(args) < 1 || !common.IsHexAddress(args[0]) {
			return nil, errors.New("usage: eth-balance <0xaddr>")
		}
		bal, err := c.EthGetBalance(ctx, common.HexToAddress(args[0]))
		if err != nil {
			return nil, err
		}
		return map[string]string{"address": args[0], "balance": bal.ToBig().String()}, nil
	case "eth-nonce":
		if len(args) < 1 || !common.IsHexAddress(args[0]) {
			return nil, errors.New("usage: eth-nonce <0xaddr>")
		}
		return c.EthGetTransactionCount(ctx, common.HexToAddress(args[0]))
	case "eth-gasprice":
		price, err := c.EthGasPrice(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]string{"gas_price": price.ToBig().String()}, nil
	case "network":
		id, err := network.Detect(ctx, c)
		if err != nil {
			return nil, err
		}
		return map[string]any{"chain_id": id, "name": network.Name(id)}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

// readTx loads a transaction from a file, or stdin for "-".
func readTx(path string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read tx: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("read tx: %s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
