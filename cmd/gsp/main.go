// Command gsp mines frequent sequential patterns from a JSON file of
// transactions and prints them level by level.
//
// Usage:
//
//	gsp [-input data.json] [-min-support 0.5] [-config configs/development.yaml] [-format text|json]
//
// Without -input a small built-in shopping dataset is mined. Use -input - to
// read from stdin. Logs go to stderr so stdout stays machine-readable.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/logger"
)

// sample is four shopping trips; each inner slice is one basket.
var sample = [][][]string{
	{{"a", "b"}, {"c"}, {"f", "g"}, {"g"}, {"e"}},
	{{"a", "d"}, {"c"}, {"b"}, {"a", "b", "e", "f"}},
	{{"a"}, {"b"}, {"f", "g"}, {"e"}},
	{{"b"}, {"f", "g"}},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "gsp: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gsp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "", "JSON file of transactions, - for stdin (default: built-in sample)")
	minSupport := fs.Float64("min-support", 0, "support fraction in (0, 1] (default: mining.minSupport from config)")
	configPath := fs.String("config", "", "path to config file")
	format := fs.String("format", "text", "output format: text or json")
	workers := fs.Int("workers", -1, "support-counting workers (default: from config)")
	matcher := fs.String("matcher", "", "containment matcher: greedy or backtracking")
	prune := fs.Bool("prune", false, "drop candidates with an infrequent sub-pattern before counting")
	symbols := fs.Bool("symbols", false, "print how often each symbol occurs before the patterns (text format)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != "text" && *format != "json" {
		return fmt.Errorf("unknown format %q", *format)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, "text")

	opts := mining.OptionsFromConfig(cfg.Mining)
	if *workers >= 0 {
		opts.Workers = *workers
	}
	if *matcher != "" {
		opts.Matcher = *matcher
	}
	opts.Prune = opts.Prune || *prune

	support := cfg.Mining.MinSupport
	if *minSupport != 0 {
		support = *minSupport
	}

	txs, err := readTransactions(*input, stdin)
	if err != nil {
		return err
	}

	miner, err := mining.New(opts, nil)
	if err != nil {
		return err
	}
	res, err := miner.Mine(ctx, txs, support)
	if err != nil {
		return err
	}

	resp := jobs.FromResult(res)
	if *format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if *symbols {
		ds, err := sequence.Load(txs)
		if err != nil {
			return err
		}
		printSymbols(stdout, ds)
	}
	return printText(stdout, resp)
}

// readTransactions accepts either a bare array of transactions or an object
// shaped like the HTTP mining request.
func readTransactions(path string, stdin io.Reader) ([][][]string, error) {
	if path == "" {
		return sample, nil
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}

	var txs [][][]string
	if err := json.Unmarshal(data, &txs); err == nil {
		return txs, nil
	}
	var req jobs.MineRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing transactions from %s: %w", path, err)
	}
	return req.Transactions, nil
}

// printSymbols lists each distinct symbol with its occurrence count across
// all itemsets.
func printSymbols(w io.Writer, ds *sequence.Dataset) {
	fmt.Fprintf(w, "%d symbols\n", ds.Symbols())
	for _, c := range ds.Singletons {
		sym := c.Symbols[0]
		fmt.Fprintf(w, "  %-24s occurrences=%d\n", sym, ds.Occurrences(sym))
	}
	fmt.Fprintln(w)
}

func printText(w io.Writer, resp *jobs.MineResponse) error {
	fmt.Fprintf(w, "%d transactions, min support %g (threshold %d), %d patterns in %dms\n",
		resp.TransactionCount, resp.MinSupport, resp.Threshold, resp.PatternCount(), resp.DurationMs)
	for _, lvl := range resp.Levels {
		fmt.Fprintf(w, "\nlength %d (%d)\n", lvl.Length, len(lvl.Patterns))
		for _, p := range lvl.Patterns {
			fmt.Fprintf(w, "  %-24s count=%d support=%.2f\n", p.Key, p.Count, p.Support)
		}
	}
	for _, f := range resp.Failures {
		fmt.Fprintf(w, "failed: %s: %s\n", f.Candidate, f.Error)
	}
	_, err := fmt.Fprintln(w)
	return err
}
