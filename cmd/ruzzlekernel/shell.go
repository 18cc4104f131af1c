package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/tinyrange/ruzzle/internal/capset"
	"github.com/tinyrange/ruzzle/internal/catalog"
	"github.com/tinyrange/ruzzle/internal/registry"
	"github.com/tinyrange/ruzzle/internal/registrywire"
	"github.com/tinyrange/ruzzle/internal/rzfs"
	"github.com/tinyrange/ruzzle/internal/setup"
	"github.com/tinyrange/ruzzle/internal/shellwire"
)

// opcodeByName maps the shell's textual command names to their wire
// opcode, mirroring the line the shellwire protocol encodes as bytes.
// "mkdir"/"rm" resolve to the *P/*R opcode variants when a "-r"/"-p"
// flag token is present; see resolveOpcode.
var opcodeByName = map[string]shellwire.Opcode{
	"ps": shellwire.OpPs, "lsmod": shellwire.OpLsmod,
	"start": shellwire.OpStart, "stop": shellwire.OpStop,
	"catalog": shellwire.OpCatalog, "install": shellwire.OpInstall, "remove": shellwire.OpRemove,
	"setup": shellwire.OpSetup, "login": shellwire.OpLogin, "logout": shellwire.OpLogout,
	"whoami": shellwire.OpWhoami, "users": shellwire.OpUsers, "useradd": shellwire.OpUseradd,
	"pwd": shellwire.OpPwd, "ls": shellwire.OpLs, "cd": shellwire.OpCd,
	"mkdir": shellwire.OpMkdir, "touch": shellwire.OpTouch, "cat": shellwire.OpCat,
	"edit": shellwire.OpEdit, "cp": shellwire.OpCp, "mv": shellwire.OpMv,
	"write": shellwire.OpWrite, "rm": shellwire.OpRm,
	"slots": shellwire.OpSlots, "plug": shellwire.OpPlug, "unplug": shellwire.OpUnplug,
	"sysinfo": shellwire.OpSysinfo, "df": shellwire.OpDf, "du": shellwire.OpDu,
}

// resolveOpcode upgrades mkdir/rm to their recursive variant when
// FlagRecursive is set, leaving every other opcode untouched.
func resolveOpcode(op shellwire.Opcode, flags shellwire.Flag) shellwire.Opcode {
	if flags&shellwire.FlagRecursive == 0 {
		return op
	}
	switch op {
	case shellwire.OpMkdir:
		return shellwire.OpMkdirP
	case shellwire.OpRm:
		return shellwire.OpRmR
	default:
		return op
	}
}

// runScheduler paces ticks scheduler ticks at tickRate ticks per second,
// logging which process ran each tick. Pacing uses a rate.Limiter with a
// burst of 1 rather than a bare time.Sleep loop.
func runScheduler(ctx context.Context, k *kernel, tickRate float64, ticks int) error {
	lim := rate.NewLimiter(rate.Limit(tickRate), 1)
	for i := 0; i < ticks; i++ {
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("ruzzlekernel: scheduler tick: %w", err)
		}
		pid, ok := k.sched.ScheduleNext()
		if !ok {
			slog.Debug("scheduler idle, no ready process")
			continue
		}
		slog.Debug("scheduler tick", "tick", i, "pid", pid, "module", k.pids[pid])
	}
	return nil
}

// runShell drives an interactive line-oriented shell over in/out, each
// line parsed into a shellwire.Command and dispatched against the
// booted kernel state. It round-trips every command through the wire
// encoder/decoder before dispatch, the same as a real userspace client
// would send it over an IPC endpoint.
func runShell(ctx context.Context, k *kernel, in io.Reader, out io.Writer) error {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil {
			slog.Debug("shell terminal size", "width", w, "height", h)
		}

		resized := make(chan os.Signal, 1)
		signal.Notify(resized, unix.SIGWINCH)
		defer signal.Stop(resized)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-resized:
					if w, h, err := term.GetSize(fd); err == nil {
						slog.Debug("shell terminal resized", "width", w, "height", h)
					}
				}
			}
		}()
	}

	fmt.Fprintln(out, "ruzzle shell ready, type 'exit' to leave")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "ruzzle:%s> ", k.cwd)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		resp, err := dispatchLine(k, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, resp.Text)
	}
}

// fieldsForOpcode assigns a line's positional (non-flag) arguments to the
// Command fields the resolved opcode actually reads.
func fieldsForOpcode(enc *shellwire.Encoder, op shellwire.Opcode, positional []string) *shellwire.Encoder {
	arg := func(i int) string {
		if i < len(positional) {
			return positional[i]
		}
		return ""
	}
	switch op {
	case shellwire.OpStart, shellwire.OpStop, shellwire.OpInstall, shellwire.OpRemove:
		enc = enc.Module(arg(0))
	case shellwire.OpLogin, shellwire.OpUseradd, shellwire.OpSetup:
		enc = enc.User(arg(0))
	case shellwire.OpLs, shellwire.OpCd, shellwire.OpMkdir, shellwire.OpMkdirP,
		shellwire.OpTouch, shellwire.OpCat, shellwire.OpRm, shellwire.OpRmR, shellwire.OpDu:
		enc = enc.Path(arg(0))
	case shellwire.OpEdit, shellwire.OpWrite:
		enc = enc.Path(arg(0))
		if len(positional) > 1 {
			enc = enc.Content(strings.Join(positional[1:], " "))
		}
	case shellwire.OpCp, shellwire.OpMv:
		enc = enc.Src(arg(0)).Dst(arg(1))
	case shellwire.OpPlug:
		enc = enc.Slot(arg(0)).Module(arg(1))
	case shellwire.OpUnplug:
		enc = enc.Slot(arg(0))
	}
	return enc
}

// dispatchLine parses one shell line, encodes it to wire bytes, decodes
// it back (proving the round trip), and executes it against k.
func dispatchLine(k *kernel, line string) (shellwire.Response, error) {
	fields := strings.Fields(line)
	baseOp, ok := opcodeByName[fields[0]]
	if !ok {
		return shellwire.Response{}, fmt.Errorf("unknown command %q", fields[0])
	}

	var flags shellwire.Flag
	var positional []string
	for _, tok := range fields[1:] {
		switch tok {
		case "-r", "-p":
			flags |= shellwire.FlagRecursive
		default:
			positional = append(positional, tok)
		}
	}
	op := resolveOpcode(baseOp, flags)

	enc := shellwire.NewCommand(op)
	enc = fieldsForOpcode(enc, op, positional)
	if flags != 0 {
		enc = enc.FlagBits(flags)
	}
	buf := enc.Bytes()

	cmd, err := shellwire.DecodeCommand(buf)
	if err != nil {
		return shellwire.Response{}, err
	}

	return execCommand(k, cmd)
}

func ok(text string) (shellwire.Response, error) {
	return shellwire.Response{Status: shellwire.StatusOk, Text: text}, nil
}

func failed(err error) (shellwire.Response, error) {
	return shellwire.Response{Status: shellwire.StatusFailed, Text: err.Error()}, nil
}

// resolvePath turns a command's path argument into an absolute rzfs
// path, resolving it against the shell's current directory when it is
// empty or doesn't start with '/'.
func (k *kernel) resolvePath(path string) string {
	if path == "" {
		return k.cwd
	}
	if strings.HasPrefix(path, "/") {
		return path
	}
	if k.cwd == "/" {
		return "/" + path
	}
	return k.cwd + "/" + path
}

// mkdirAll creates every missing directory along path, tolerating
// components that already exist.
func mkdirAll(fs *rzfs.FS, path string) error {
	if path == "/" || path == "" {
		return nil
	}
	cur := ""
	for _, part := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		cur += "/" + part
		if err := fs.Mkdir(cur); err != nil && err != rzfs.ErrAlreadyExists {
			return err
		}
	}
	return nil
}

// removeRecursive deletes path, recursing into directories depth-first.
func removeRecursive(fs *rzfs.FS, path string) error {
	entries, err := fs.ListDir(path)
	switch {
	case err == nil:
		for _, name := range entries {
			child := path + "/" + name
			if path == "/" {
				child = "/" + name
			}
			if err := removeRecursive(fs, child); err != nil {
				return err
			}
		}
	case errors.Is(err, rzfs.ErrNotDir):
		// a plain file; fall through to Remove below
	default:
		return err
	}
	return fs.Remove(path)
}

// execCommand runs a decoded shell command against the kernel and
// produces the wire-level response text.
func execCommand(k *kernel, cmd shellwire.Command) (shellwire.Response, error) {
	switch cmd.Op {
	case shellwire.OpPs:
		var lines []string
		for pid, mod := range k.pids {
			lines = append(lines, fmt.Sprintf("%d\t%s", pid, mod))
		}
		sort.Strings(lines)
		return ok(strings.Join(lines, "\n"))

	case shellwire.OpLsmod:
		names := k.manager.ModuleNames()
		sort.Strings(names)
		text := strings.Join(names, "\n")

		// Exercise the registrywire protocol end to end: fetch the live
		// service list the same way an out-of-process client would.
		resp, err := registrywire.DecodeResponse(registry.HandleRequest(k.manager, registrywire.EncodeList()))
		if err == nil && resp.Status == registrywire.Ok && len(resp.List) > 0 {
			var svcLines []string
			for _, e := range resp.List {
				svcLines = append(svcLines, fmt.Sprintf("%s -> %s", e.Service, e.Module))
			}
			sort.Strings(svcLines)
			text += "\nservices:\n" + strings.Join(svcLines, "\n")
		}
		return ok(text)

	case shellwire.OpStart:
		if _, err := capset.Dispatch(capset.Spawn, k.shellCaps, nil); err != nil {
			return failed(err)
		}
		if err := k.manager.StartModule(cmd.Module); err != nil {
			return failed(err)
		}
		if rec, err := k.manager.Module(cmd.Module); err == nil {
			k.board.MarkRunning(cmd.Module, rec.Manifest.Slots)
		}
		return ok("started " + cmd.Module)

	case shellwire.OpStop:
		if _, err := capset.Dispatch(capset.Spawn, k.shellCaps, nil); err != nil {
			return failed(err)
		}
		if err := k.manager.StopModule(cmd.Module); err != nil {
			return failed(err)
		}
		return ok("stopped " + cmd.Module)

	case shellwire.OpCatalog:
		if k.catalog == nil {
			return failed(fmt.Errorf("no catalog configured"))
		}
		names := make([]string, 0, len(k.catalog.Entries))
		for _, e := range k.catalog.Entries {
			names = append(names, e.Name)
		}
		sort.Strings(names)
		return ok(strings.Join(names, "\n"))

	case shellwire.OpInstall:
		if k.catalog == nil {
			return failed(fmt.Errorf("no catalog configured"))
		}
		entry, err := k.catalog.Find(cmd.Module)
		if err != nil {
			return failed(err)
		}
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return failed(err)
		}
		if err := catalog.Install(k.manager, entry, data, io.Discard); err != nil {
			return failed(err)
		}
		return ok("installed " + cmd.Module)

	case shellwire.OpRemove:
		if err := k.manager.StopModule(cmd.Module); err != nil {
			return failed(err)
		}
		return ok("removed " + cmd.Module)

	case shellwire.OpSetup:
		if cmd.User == "" {
			return failed(fmt.Errorf("username required"))
		}
		report, err := setup.RunFirstBoot(k.fs, k.sys, k.users, setup.Plan{
			Username: cmd.User,
			IsAdmin:  false,
			Hostname: k.sys.Hostname,
			Locale:   k.sys.Locale,
			Timezone: k.sys.Timezone,
			Keyboard: k.sys.Keyboard,
		})
		if err != nil {
			return failed(err)
		}
		return ok("configured, user " + report.User.Name + " created")

	case shellwire.OpLogin:
		if err := k.users.SetActive(cmd.User); err != nil {
			return failed(err)
		}
		return ok("logged in as " + cmd.User)

	case shellwire.OpLogout:
		k.users.Logout()
		return ok("logged out")

	case shellwire.OpWhoami:
		u := k.users.ActiveUser()
		if u == nil {
			return failed(fmt.Errorf("not logged in"))
		}
		return ok(u.Name)

	case shellwire.OpUsers:
		var names []string
		for _, u := range k.users.List() {
			names = append(names, u.Name)
		}
		sort.Strings(names)
		return ok(strings.Join(names, "\n"))

	case shellwire.OpUseradd:
		rec, err := k.users.CreateUser(cmd.User, false)
		if err != nil {
			return failed(err)
		}
		return ok("created user " + rec.Name)

	case shellwire.OpPwd:
		return ok(k.cwd)

	case shellwire.OpLs:
		path := k.resolvePath(cmd.Path)
		entries, err := k.fs.ListDir(path)
		if err != nil {
			return failed(err)
		}
		return ok(strings.Join(entries, "\n"))

	case shellwire.OpCd:
		path := k.resolvePath(cmd.Path)
		if _, err := k.fs.ListDir(path); err != nil {
			return failed(err)
		}
		k.cwd = path
		return ok(k.cwd)

	case shellwire.OpMkdir:
		path := k.resolvePath(cmd.Path)
		if err := k.fs.Mkdir(path); err != nil {
			return failed(err)
		}
		return ok("created " + path)

	case shellwire.OpMkdirP:
		path := k.resolvePath(cmd.Path)
		if err := mkdirAll(k.fs, path); err != nil {
			return failed(err)
		}
		return ok("created " + path)

	case shellwire.OpTouch:
		path := k.resolvePath(cmd.Path)
		if _, err := k.fs.ReadFile(path); err != nil {
			if err := k.fs.WriteFile(path, nil); err != nil {
				return failed(err)
			}
		}
		return ok("touched " + path)

	case shellwire.OpCat:
		path := k.resolvePath(cmd.Path)
		data, err := k.fs.ReadFile(path)
		if err != nil {
			return failed(err)
		}
		return ok(string(data))

	case shellwire.OpEdit, shellwire.OpWrite:
		path := k.resolvePath(cmd.Path)
		if err := k.fs.WriteFile(path, []byte(cmd.Content)); err != nil {
			return failed(err)
		}
		return ok("wrote " + path)

	case shellwire.OpCp:
		data, err := k.fs.ReadFile(cmd.Src)
		if err != nil {
			return failed(err)
		}
		if err := k.fs.WriteFile(cmd.Dst, data); err != nil {
			return failed(err)
		}
		return ok(fmt.Sprintf("copied %s -> %s", cmd.Src, cmd.Dst))

	case shellwire.OpMv:
		data, err := k.fs.ReadFile(cmd.Src)
		if err != nil {
			return failed(err)
		}
		if err := k.fs.WriteFile(cmd.Dst, data); err != nil {
			return failed(err)
		}
		if err := k.fs.Remove(cmd.Src); err != nil {
			return failed(err)
		}
		return ok(fmt.Sprintf("moved %s -> %s", cmd.Src, cmd.Dst))

	case shellwire.OpRm:
		path := k.resolvePath(cmd.Path)
		if err := k.fs.Remove(path); err != nil {
			return failed(err)
		}
		return ok("removed " + path)

	case shellwire.OpRmR:
		path := k.resolvePath(cmd.Path)
		if err := removeRecursive(k.fs, path); err != nil {
			return failed(err)
		}
		return ok("removed " + path)

	case shellwire.OpSlots:
		var names []string
		for _, s := range boardSlots {
			provider, err := k.board.ProviderFor(s.name)
			if err != nil || provider == "" {
				names = append(names, fmt.Sprintf("%s: <empty>", s.name))
				continue
			}
			names = append(names, fmt.Sprintf("%s: %s", s.name, provider))
		}
		return ok(strings.Join(names, "\n"))

	case shellwire.OpPlug:
		rec, err := k.manager.Module(cmd.Module)
		if err != nil {
			return failed(err)
		}
		if err := k.board.Plug(cmd.Slot, cmd.Module, rec.Manifest.Slots); err != nil {
			return failed(err)
		}
		return ok(fmt.Sprintf("plugged %s into %s", cmd.Module, cmd.Slot))

	case shellwire.OpUnplug:
		prev, err := k.board.Unplug(cmd.Slot)
		if err != nil {
			return failed(err)
		}
		if prev == "" {
			return ok(cmd.Slot + " was already empty")
		}
		return ok(fmt.Sprintf("unplugged %s from %s", prev, cmd.Slot))

	case shellwire.OpSysinfo:
		stats := k.fs.Stats()
		text := fmt.Sprintf("modules=%d cores=%d online=%d free_frames=%d ready=%d files=%d dirs=%d bytes=%d",
			len(k.pids), k.topology.Len(), k.topology.OnlineCount(), k.alloc.FreeCount(), k.sched.ReadyLen(),
			stats.Files, stats.Dirs, stats.Bytes)
		return ok(text)

	case shellwire.OpDf:
		stats := k.fs.Stats()
		return ok(fmt.Sprintf("files=%d dirs=%d bytes=%d", stats.Files, stats.Dirs, stats.Bytes))

	case shellwire.OpDu:
		path := k.resolvePath(cmd.Path)
		stats, err := k.fs.StatsFor(path)
		if err != nil {
			return failed(err)
		}
		return ok(fmt.Sprintf("%s: files=%d dirs=%d bytes=%d", path, stats.Files, stats.Dirs, stats.Bytes))

	default:
		return shellwire.Response{}, fmt.Errorf("unsupported opcode %d", cmd.Op)
	}
}
