package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tinyrange/ruzzle/internal/bootinfo"
	"github.com/tinyrange/ruzzle/internal/capset"
	"github.com/tinyrange/ruzzle/internal/catalog"
	"github.com/tinyrange/ruzzle/internal/consolewire"
	"github.com/tinyrange/ruzzle/internal/initpipe"
	"github.com/tinyrange/ruzzle/internal/initramfs"
	"github.com/tinyrange/ruzzle/internal/modbundle"
	"github.com/tinyrange/ruzzle/internal/pagingops"
	"github.com/tinyrange/ruzzle/internal/pmm"
	"github.com/tinyrange/ruzzle/internal/proc"
	"github.com/tinyrange/ruzzle/internal/puzzle"
	"github.com/tinyrange/ruzzle/internal/registry"
	"github.com/tinyrange/ruzzle/internal/rzfs"
	"github.com/tinyrange/ruzzle/internal/setup"
	"github.com/tinyrange/ruzzle/internal/settings"
	"github.com/tinyrange/ruzzle/internal/smp"
	"github.com/tinyrange/ruzzle/internal/users"
)

// bootConfig holds every first-boot and topology knob exposed on the
// command line.
type bootConfig struct {
	initramfsPath string
	catalogPath   string
	hostname      string
	locale        string
	timezone      string
	keyboard      string
	username      string
	admin         bool
	cpus          int
	memBytes      uint64
}

// kernel is the live state produced by booting: the registry manager and
// its running modules, the filesystem and settings it seeded, the
// process table, the scheduler, and the SMP topology load is spread
// across.
type kernel struct {
	manager  *registry.Manager
	board    *puzzle.Board
	fs       *rzfs.FS
	sys      *settings.System
	users    *users.Manager
	sched    *proc.Scheduler
	topology *smp.Topology
	pids     map[proc.PID]string // pid -> owning module name
	procs    map[proc.PID]*proc.PCB

	bootInfo *bootinfo.Info
	alloc    *pmm.Allocator
	vmm      *pagingops.VMM
	ops      *simPaging
	physMem  []byte

	catalog *catalog.Catalog

	shellCaps  capset.Set
	consoleLog []consolewire.Record
	cwd        string
}

// capabilityByName maps a manifest's requires_caps entries (and the
// catalog's mirror of the same field) onto the closed capset.Capability
// enum the syscall gate checks against. An unrecognized name is dropped
// with a warning rather than failing boot, since a capability named in a
// manifest ahead of a matching kernel release should degrade, not crash.
var capabilityByName = map[string]capset.Capability{
	"ConsoleWrite":   capset.ConsoleWrite,
	"EndpointCreate": capset.EndpointCreate,
	"ShmCreate":      capset.ShmCreate,
	"ProcessSpawn":   capset.ProcessSpawn,
	"Timer":          capset.Timer,
	"FsRoot":         capset.FsRoot,
	"WindowServer":   capset.WindowServer,
	"InputDevice":    capset.InputDevice,
	"GpuDevice":      capset.GpuDevice,
}

// capsFromNames builds a capset.Set from a manifest's requires_caps list.
func capsFromNames(names []string) capset.Set {
	caps := capset.Empty()
	for _, name := range names {
		c, ok := capabilityByName[name]
		if !ok {
			slog.Warn("unknown capability name in manifest", "capability", name)
			continue
		}
		caps = caps.Insert(c)
	}
	return caps
}

// logConsole appends a console-log record iff pid's process holds
// ConsoleWrite, the same gate a debug_log syscall would go through via
// capset.Dispatch.
func (k *kernel) logConsole(pid proc.PID, level consolewire.Severity, msg string) {
	caps := k.shellCaps
	if pcb, ok := k.procs[pid]; ok {
		caps = pcb.Caps
	}
	if _, err := capset.Dispatch(capset.DebugLog, caps, nil); err != nil {
		return
	}
	k.consoleLog = append(k.consoleLog, consolewire.Record{Level: level, PID: uint32(pid), Message: msg})
}

// loadBundles reads an initramfs image and parses every "*.rmod" entry
// into a module bundle, in container order.
func loadBundles(path string) ([]*modbundle.Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ruzzlekernel: read initramfs: %w", err)
	}
	entries, err := initramfs.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("ruzzlekernel: parse initramfs: %w", err)
	}

	var bundles []*modbundle.Bundle
	for _, e := range entries {
		if !strings.HasSuffix(e.Name, ".rmod") {
			slog.Debug("skipping non-module initramfs entry", "name", e.Name)
			continue
		}
		b, err := modbundle.Parse(e.Data)
		if err != nil {
			return nil, fmt.Errorf("ruzzlekernel: parse bundle %q: %w", e.Name, err)
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

// boardSlots is the kernel's fixed set of device-role slots: console and
// shell must end up filled for the system to be usable, net is optional.
var boardSlots = []struct {
	name     string
	required bool
}{
	{"console", true},
	{"shell", true},
	{"net", false},
}

// defaultMemBytes is the simulated physical memory size used when
// bootConfig.memBytes is left at zero.
const defaultMemBytes = 64 * 1024 * 1024

// boot runs the whole first-boot sequence: load bundles from initramfs,
// register and start every module tier, load each module's payload as an
// ELF image into its own simulated address space, run the setup wizard,
// seed the puzzle board and scheduler, and spread load across the SMP
// topology.
func boot(ctx context.Context, cfg bootConfig) (*kernel, error) {
	bundles, err := loadBundles(cfg.initramfsPath)
	if err != nil {
		return nil, err
	}

	mgr := registry.NewManager()
	pipeline := initpipe.New(mgr)
	for _, b := range bundles {
		if err := mgr.RegisterModule(b.Manifest); err != nil {
			return nil, fmt.Errorf("ruzzlekernel: register %q: %w", b.Manifest.Name, err)
		}
	}
	if err := pipeline.Run(ctx); err != nil {
		return nil, fmt.Errorf("ruzzlekernel: init pipeline: %w", err)
	}

	board := puzzle.NewBoard()
	for _, s := range boardSlots {
		if err := board.AddSlot(s.name, s.required); err != nil {
			return nil, fmt.Errorf("ruzzlekernel: add slot %q: %w", s.name, err)
		}
	}
	for _, b := range bundles {
		board.MarkRunning(b.Manifest.Name, b.Manifest.Slots)
	}
	if missing := board.MissingRequired(); len(missing) > 0 {
		slog.Warn("puzzle board missing required slots", "slots", missing)
	}

	fs := rzfs.New()
	sys := &settings.System{}
	um := users.NewManager()
	report, err := setup.RunFirstBoot(fs, sys, um, setup.Plan{
		Username: cfg.username,
		IsAdmin:  cfg.admin,
		Hostname: cfg.hostname,
		Locale:   cfg.locale,
		Timezone: cfg.timezone,
		Keyboard: cfg.keyboard,
	})
	if err != nil {
		return nil, fmt.Errorf("ruzzlekernel: first-boot setup: %w", err)
	}
	slog.Info("first boot complete",
		"dirs", len(report.Directories), "files", len(report.Files), "user", report.User.Name)
	if err := um.SetActive(report.User.Name); err != nil {
		return nil, fmt.Errorf("ruzzlekernel: activate boot user: %w", err)
	}

	topo := smp.New(cfg.cpus)
	for id := 0; id < cfg.cpus; id++ {
		if err := topo.SetState(id, smp.Online); err != nil {
			return nil, fmt.Errorf("ruzzlekernel: bring up core %d: %w", id, err)
		}
	}

	memBytes := cfg.memBytes
	if memBytes == 0 {
		memBytes = defaultMemBytes
	}
	bi := &bootinfo.Info{
		MemoryMap:   []bootinfo.Region{{Start: 0, End: memBytes, Kind: bootinfo.Usable}},
		KernelStart: 0,
		KernelEnd:   0,
	}
	if err := bi.Validate(); err != nil {
		return nil, fmt.Errorf("ruzzlekernel: boot info: %w", err)
	}
	alloc := pmm.New()
	for _, r := range bi.UsableRegions() {
		alloc.InitFromRegion(r.Start, r.End)
	}
	physMem := make([]byte, memBytes)
	ops := newSimPaging()
	vmm := pagingops.New(ops)

	var cat *catalog.Catalog
	if cfg.catalogPath != "" {
		raw, err := os.ReadFile(cfg.catalogPath)
		if err != nil {
			return nil, fmt.Errorf("ruzzlekernel: read catalog: %w", err)
		}
		cat, err = catalog.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("ruzzlekernel: parse catalog: %w", err)
		}
	}

	sched := proc.NewScheduler()
	pids := make(map[proc.PID]string, len(bundles))
	procs := make(map[proc.PID]*proc.PCB, len(bundles))
	assign := topo.Distribute(len(bundles))

	k := &kernel{
		manager:   mgr,
		board:     board,
		fs:        fs,
		sys:       sys,
		users:     um,
		sched:     sched,
		topology:  topo,
		pids:      pids,
		procs:     procs,
		bootInfo:  bi,
		alloc:     alloc,
		vmm:       vmm,
		ops:       ops,
		physMem:   physMem,
		catalog:   cat,
		shellCaps: capset.All(),
		cwd:       "/",
	}

	for i, b := range bundles {
		pid := proc.PID(i + 1)
		as := &pagingops.AddressSpace{Root: uint64(pid)}
		pcb := proc.New(pid, as.Root)
		pcb.Caps = capsFromNames(b.Manifest.RequiresCaps)

		if parsed, err := loadModuleImage(vmm, ops, as, alloc, physMem, 0, b.Payload); err != nil {
			slog.Warn("module payload is not a loadable ELF image, running without a mapped address space",
				"module", b.Manifest.Name, "error", err)
		} else {
			pcb.Ctx.PC = parsed.Entry
			slog.Debug("loaded module elf image", "module", b.Manifest.Name, "entry", fmt.Sprintf("0x%x", parsed.Entry))
		}

		sched.PushReady(pid)
		pids[pid] = b.Manifest.Name
		procs[pid] = pcb
		core := -1
		if i < len(assign) {
			core = assign[i]
		}
		k.logConsole(pid, consolewire.Info, fmt.Sprintf("module %s started", b.Manifest.Name))
		slog.Debug("scheduled module process", "pid", pid, "module", b.Manifest.Name, "core", core)
	}

	return k, nil
}
