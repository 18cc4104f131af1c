// Command ruzzlekernel simulates booting the Ruzzle microkernel from a
// RUZZLEFS initramfs image: it loads and starts every bundled module,
// runs the first-boot wizard, spins up the scheduler and SMP topology,
// and then either runs a fixed number of scheduler ticks or drops into
// an interactive shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tinyrange/ruzzle/internal/consolewire"
)

func main() {
	if err := run(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "ruzzlekernel: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	initramfsPath := flag.String("initramfs", "", "path to a RUZZLEFS initramfs image (required)")
	catalogPath := flag.String("catalog", "", "path to a catalog.yaml of installable modules (optional)")
	dumpLog := flag.String("dump-log", "", "write the accumulated console log to this path after boot ('-' for stdout)")
	hostname := flag.String("hostname", "ruzzlebox", "first-boot hostname")
	locale := flag.String("locale", "en_US.UTF-8", "first-boot locale")
	timezone := flag.String("timezone", "UTC", "first-boot timezone")
	keyboard := flag.String("keyboard", "us", "first-boot keyboard layout")
	username := flag.String("user", "root", "first-boot admin username")
	cpus := flag.Int("cpus", 4, "number of simulated cores")
	tickRate := flag.Float64("tick-rate", 1000, "scheduler ticks per second")
	ticks := flag.Int("ticks", 0, "number of scheduler ticks to run before exiting (0 to skip)")
	interactive := flag.Bool("shell", false, "drop into an interactive shell after boot")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: ruzzlekernel -initramfs <image> [flags]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *initramfsPath == "" {
		flag.Usage()
		return &ExitError{Code: 2, Err: fmt.Errorf("missing -initramfs")}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	k, err := boot(ctx, bootConfig{
		initramfsPath: *initramfsPath,
		catalogPath:   *catalogPath,
		hostname:      *hostname,
		locale:        *locale,
		timezone:      *timezone,
		keyboard:      *keyboard,
		username:      *username,
		admin:         true,
		cpus:          *cpus,
	})
	if err != nil {
		return err
	}
	slog.Info("boot complete", "modules", len(k.pids), "cores", k.topology.Len())

	if *ticks > 0 {
		if err := runScheduler(ctx, k, *tickRate, *ticks); err != nil {
			return err
		}
	}

	if *interactive {
		if err := runShell(ctx, k, os.Stdin, os.Stdout); err != nil {
			return fmt.Errorf("ruzzlekernel: shell: %w", err)
		}
	}

	if *dumpLog != "" {
		if err := dumpConsoleLog(k, *dumpLog); err != nil {
			return err
		}
	}

	return nil
}

// dumpConsoleLog renders every accumulated console-log record and writes
// it to path, or to stdout when path is "-".
func dumpConsoleLog(k *kernel, path string) error {
	w := os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("ruzzlekernel: dump log: %w", err)
		}
		defer f.Close()
		w = f
	}
	for _, rec := range k.consoleLog {
		if _, err := fmt.Fprintln(w, consolewire.Render(rec)); err != nil {
			return fmt.Errorf("ruzzlekernel: dump log: %w", err)
		}
	}
	return nil
}
