package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/StackDoubleFlow/qpm"
)

const clearShortHelp = `Remove the project's lockfile and materialized dependencies`
const clearLongHelp = `
Deletes qpm.shared.json and the dependencies directory, leaving qpm.json
untouched. A following restore starts from a clean resolve.
`

type clearCommand struct{}

func (cmd *clearCommand) Name() string      { return "clear" }
func (cmd *clearCommand) Args() string      { return "" }
func (cmd *clearCommand) ShortHelp() string { return clearShortHelp }
func (cmd *clearCommand) LongHelp() string  { return clearLongHelp }
func (cmd *clearCommand) Hidden() bool      { return false }
func (cmd *clearCommand) Register(fs *flag.FlagSet) {}

func (cmd *clearCommand) Run(ctx *qpm.Context, args []string) error {
	proj, err := ctx.LoadProject("")
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(proj.AbsRoot, qpm.LockfileName)); err != nil && !os.IsNotExist(err) {
		return err
	}

	depsDir := proj.Manifest.DependenciesDir
	if depsDir == "" {
		depsDir = "extern"
	}
	return os.RemoveAll(filepath.Join(proj.AbsRoot, depsDir))
}
