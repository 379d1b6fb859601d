package main

import (
	"context"
	"flag"
	"os"

	"github.com/StackDoubleFlow/qpm"
)

const restoreShortHelp = `Resolve and materialize the project's dependencies`
const restoreLongHelp = `
Resolves the project's dependency graph against the configured registry,
writes qpm.shared.json, then fetches, caches and projects every resolved
dependency into the project's dependencies directory.
`

type restoreCommand struct{}

func (cmd *restoreCommand) Name() string      { return "restore" }
func (cmd *restoreCommand) Args() string      { return "" }
func (cmd *restoreCommand) ShortHelp() string { return restoreShortHelp }
func (cmd *restoreCommand) LongHelp() string  { return restoreLongHelp }
func (cmd *restoreCommand) Hidden() bool      { return false }
func (cmd *restoreCommand) Register(fs *flag.FlagSet) {}

func (cmd *restoreCommand) Run(ctx *qpm.Context, args []string) error {
	proj, err := ctx.LoadProject("")
	if err != nil {
		return err
	}

	creds := qpm.NewEnvCredentials(os.Getenv("QPM_TOKEN"))
	client := ctx.RegistryClient(creds)
	f := ctx.Fetcher(creds)
	c := ctx.Cache()

	lock, err := qpm.Restore(context.Background(), ctx, proj, client, f, c)
	if err != nil {
		return err
	}
	ctx.Log.Printf("restored %d dependencies\n", len(lock.RestoredDependencies))
	return nil
}
