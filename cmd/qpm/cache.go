package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm"
	"github.com/StackDoubleFlow/qpm/internal/fsutil"
)

const cacheShortHelp = `Inspect or clear the local package cache`
const cacheLongHelp = `
qpm cache clear            remove every cached package
qpm cache list             print every cached (id, version) pair
qpm cache path             print the cache root directory
qpm cache legacy-fix       evict every cached entry that has src/ but an
                           absent or empty lib/
`

type cacheCommand struct{}

func (cmd *cacheCommand) Name() string      { return "cache" }
func (cmd *cacheCommand) Args() string      { return "<clear|list|path|legacy-fix>" }
func (cmd *cacheCommand) ShortHelp() string { return cacheShortHelp }
func (cmd *cacheCommand) LongHelp() string  { return cacheLongHelp }
func (cmd *cacheCommand) Hidden() bool      { return false }
func (cmd *cacheCommand) Register(fs *flag.FlagSet) {}

func (cmd *cacheCommand) Run(ctx *qpm.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("cache: expected a subcommand (clear, list, path, legacy-fix)")
	}

	c := ctx.Cache()
	switch args[0] {
	case "clear":
		return c.Clear()
	case "path":
		ctx.Log.Printf("%s\n", c.Root)
		return nil
	case "list":
		entries, err := c.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			ctx.Log.Printf("%s\n", e.String())
		}
		return nil
	case "legacy-fix":
		return legacyFixCache(c.Root)
	default:
		return errors.Errorf("cache: unknown subcommand %q", args[0])
	}
}

// legacyFixCache removes any cache entry whose src/ tree exists but whose
// lib/ directory is absent or empty, so the next restore repopulates both
// trees together rather than fetching just the missing half out of band.
// Entries cached for a headers-only package also have no lib/, so they are
// evicted too and refetched on the next restore.
func legacyFixCache(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "reading cache root")
	}

	for _, idEnt := range entries {
		if !idEnt.IsDir() {
			continue
		}
		idDir := filepath.Join(root, idEnt.Name())
		versions, err := os.ReadDir(idDir)
		if err != nil {
			continue
		}
		for _, vEnt := range versions {
			if !vEnt.IsDir() {
				continue
			}
			entryDir := filepath.Join(idDir, vEnt.Name())
			srcDir := filepath.Join(entryDir, "src")
			libDir := filepath.Join(entryDir, "lib")
			if isSrc, err := fsutil.IsDir(srcDir); err != nil || !isSrc {
				continue
			}
			stale := !fsutil.Exists(libDir)
			if !stale {
				libEntries, err := os.ReadDir(libDir)
				stale = err == nil && len(libEntries) == 0
			}
			if stale {
				if err := os.RemoveAll(entryDir); err != nil {
					return errors.Wrapf(err, "evicting stale cache entry %s", entryDir)
				}
			}
		}
	}
	return nil
}
