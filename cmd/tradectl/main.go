package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"trade-monitor/internal/api"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: tradectl [-url URL] [-prefix /api] trades|current|refresh|status\n")
	flag.PrintDefaults()
}

func main() {
	baseURL := flag.String("url", envOr("TRADES_URL", "http://localhost:8000"), "trade monitor base URL")
	prefix := flag.String("prefix", "/api", "API prefix")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	attempts := flag.Int("attempts", 3, "attempts before giving up")
	verbose := flag.Bool("v", false, "log requests")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	client := api.NewClient(
		api.WithBaseURL(*baseURL),
		api.WithTimeout(*timeout),
		api.WithLogging(*verbose),
	)
	retry := api.DefaultRetryConfig()
	retry.MaxAttempts = *attempts
	trades := api.NewTradesClient(client, *prefix, retry)

	ctx := context.Background()

	var (
		out any
		err error
	)
	switch cmd := flag.Arg(0); cmd {
	case "trades":
		out, err = trades.Trades(ctx)
	case "current":
		out, err = trades.Current(ctx)
	case "refresh":
		out, err = trades.Refresh(ctx)
	case "status":
		out, err = trades.Status(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tradectl: %v\n", err)
		os.Exit(1)
	}

	if p, ok := out.(*api.TradesPayload); ok && p.Fingerprint != "" {
		fmt.Fprintf(os.Stderr, "fingerprint: %s\n", p.Fingerprint)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "tradectl: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
