// Command journalctl operates directly on a segmented positioning store
// directory: recovering it, printing its summary, or compacting/
// truncating it, without bringing up a Raft cluster around it.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/journalkeeper-go/journal/internal/logx"
	"github.com/journalkeeper-go/journal/pkg/bufferpool"
	appconfig "github.com/journalkeeper-go/journal/pkg/config"
	"github.com/journalkeeper-go/journal/pkg/journal"
	"github.com/journalkeeper-go/journal/pkg/metrics"
)

func usage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, `usage: journalctl [flags] <command> [args]

commands:
  inspect                  recover the store and print its summary
  compact <min>            recover, then compact(min), printing bytes reclaimed
  truncate <max>           recover, then truncate(max)
  append <bytes-as-string> recover, append the given bytes, flush, print new max

flags:`)
	fs.PrintDefaults()
}

func main() {
	fs := flag.NewFlagSet("journalctl", flag.ExitOnError)
	fs.Usage = func() { usage(fs) }

	cfg, err := appconfig.Load(fs, os.Args[1:])
	if err != nil {
		logx.Fatal("load config: %v", err)
	}
	cfg.ApplyEnvOverrides()
	logx.SetLevel(cfg.LogLevel)

	args := fs.Args()
	if len(args) == 0 {
		usage(fs)
		os.Exit(2)
	}

	if cfg.EnableMetrics {
		metrics.StartMetricsServer(cfg.MetricsPort)
	}

	pool := bufferpool.New()
	jcfg := journal.FromProperties(cfg.Properties())

	store, err := journal.Open(cfg.StorePath, jcfg, pool)
	if err != nil {
		logx.Fatal("open store %s: %v", cfg.StorePath, err)
	}
	if err := store.Recover(0); err != nil {
		logx.Fatal("recover store %s: %v", cfg.StorePath, err)
	}

	switch cmd := args[0]; cmd {
	case "inspect":
		runInspect(store)
	case "compact":
		runCompact(store, args[1:])
	case "truncate":
		runTruncate(store, args[1:])
	case "append":
		runAppend(store, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage(fs)
		os.Exit(2)
	}

	if err := store.Close(); err != nil {
		logx.Fatal("close store: %v", err)
	}
}

func runInspect(store *journal.Store) {
	st := store.Stats()
	fmt.Printf("base=%s min=%d physicalMin=%d max=%d flushed=%d segments=%d\n",
		store.BasePath(), st.Min, st.PhysicalMin, st.Max, st.Flushed, st.Segments)
}

func runCompact(store *journal.Store, args []string) {
	if len(args) != 1 {
		logx.Fatal("compact requires exactly one argument: <min>")
	}
	min, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		logx.Fatal("invalid min %q: %v", args[0], err)
	}
	deleted, err := store.Compact(min)
	if err != nil {
		logx.Fatal("compact(%d): %v", min, err)
	}
	fmt.Printf("reclaimed %d bytes, min now %d\n", deleted, store.Min())
}

func runTruncate(store *journal.Store, args []string) {
	if len(args) != 1 {
		logx.Fatal("truncate requires exactly one argument: <max>")
	}
	max, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		logx.Fatal("invalid max %q: %v", args[0], err)
	}
	if err := store.Truncate(max); err != nil {
		logx.Fatal("truncate(%d): %v", max, err)
	}
	fmt.Printf("max now %d, flushed now %d\n", store.Max(), store.Flushed())
}

func runAppend(store *journal.Store, args []string) {
	if len(args) != 1 {
		logx.Fatal("append requires exactly one argument: <bytes-as-string>")
	}
	newMax, err := store.Append([]byte(args[0]))
	if err != nil {
		logx.Fatal("append: %v", err)
	}
	if err := store.Flush(); err != nil {
		logx.Fatal("flush: %v", err)
	}
	fmt.Printf("appended %d bytes, max now %d\n", len(args[0]), newMax)
}
