// Package setup implements the first-boot wizard: it validates the
// incoming settings, seeds the fixed directory tree, writes the config
// files, and creates the admin user.
package setup

import (
	"fmt"

	"github.com/tinyrange/ruzzle/internal/rzfs"
	"github.com/tinyrange/ruzzle/internal/settings"
	"github.com/tinyrange/ruzzle/internal/users"
)

// Plan describes a first-boot request.
type Plan struct {
	Username string
	IsAdmin  bool
	Hostname string
	Locale   string
	Timezone string
	Keyboard string
}

// Report lists everything the wizard created, in the order it ran.
type Report struct {
	Directories []string
	Files       []string
	User        *users.Record
}

var fixedDirs = []string{
	"/system", "/etc", "/var", "/tmp", "/bin", "/usr", "/home", "/srv", "/opt", "/lib", "/dev",
	"/system/bin", "/system/lib", "/system/modules", "/system/config",
	"/var/log", "/var/tmp", "/var/run",
	"/usr/bin", "/usr/lib",
}

// RunFirstBoot executes the wizard: settings validate first (fail fast,
// all-or-nothing at this step), then directories, config files, and the
// user record are created, with any error surfacing immediately.
func RunFirstBoot(fs *rzfs.FS, sys *settings.System, um *users.Manager, plan Plan) (*Report, error) {
	if err := sys.Apply(plan.Hostname, plan.Locale, plan.Timezone, plan.Keyboard); err != nil {
		return nil, fmt.Errorf("setup: settings: %w", err)
	}

	report := &Report{}

	for _, dir := range fixedDirs {
		if err := mkdirIdempotent(fs, dir); err != nil {
			return report, fmt.Errorf("setup: mkdir %s: %w", dir, err)
		}
		report.Directories = append(report.Directories, dir)
	}

	homeDir := "/home/" + plan.Username
	homeChildren := []string{homeDir, homeDir + "/docs", homeDir + "/bin", homeDir + "/.config", homeDir + "/downloads"}
	for _, dir := range homeChildren {
		if err := mkdirIdempotent(fs, dir); err != nil {
			return report, fmt.Errorf("setup: mkdir %s: %w", dir, err)
		}
		report.Directories = append(report.Directories, dir)
	}

	files := map[string]string{
		"/etc/hostname": plan.Hostname,
		"/etc/locale":   plan.Locale,
		"/etc/timezone": plan.Timezone,
		"/etc/keyboard": plan.Keyboard,
		"/etc/ruzzle.conf": sys.ConfigText(),
	}
	order := []string{"/etc/hostname", "/etc/locale", "/etc/timezone", "/etc/keyboard", "/etc/ruzzle.conf"}
	for _, path := range order {
		if err := fs.WriteFile(path, []byte(files[path])); err != nil {
			return report, fmt.Errorf("setup: write %s: %w", path, err)
		}
		report.Files = append(report.Files, path)
	}

	rec, err := um.CreateUser(plan.Username, plan.IsAdmin)
	if err != nil {
		return report, fmt.Errorf("setup: create user: %w", err)
	}
	report.User = rec

	return report, nil
}

// mkdirIdempotent creates dir, treating "already exists" as success.
func mkdirIdempotent(fs *rzfs.FS, dir string) error {
	err := fs.Mkdir(dir)
	if err == nil {
		return nil
	}
	if err == rzfs.ErrAlreadyExists {
		return nil
	}
	return err
}
