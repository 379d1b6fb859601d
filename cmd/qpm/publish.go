package main

import (
	"context"
	"flag"
	"os"

	"github.com/StackDoubleFlow/qpm"
)

const publishShortHelp = `Validate and upload the project's lockfile to the registry`
const publishLongHelp = `
Validates the project's manifest and lockfile (a package url, a soLink
unless headers-only, and a lockfile whose resolved versions satisfy every
declared dependency range), then uploads the lockfile to the registry.
`

type publishCommand struct{}

func (cmd *publishCommand) Name() string      { return "publish" }
func (cmd *publishCommand) Args() string      { return "" }
func (cmd *publishCommand) ShortHelp() string { return publishShortHelp }
func (cmd *publishCommand) LongHelp() string  { return publishLongHelp }
func (cmd *publishCommand) Hidden() bool      { return false }
func (cmd *publishCommand) Register(fs *flag.FlagSet) {}

func (cmd *publishCommand) Run(ctx *qpm.Context, args []string) error {
	proj, err := ctx.LoadProject("")
	if err != nil {
		return err
	}

	creds := qpm.NewEnvCredentials(os.Getenv("QPM_TOKEN"))
	client := ctx.RegistryClient(creds)

	if err := qpm.Publish(context.Background(), proj, client); err != nil {
		return err
	}
	ctx.Log.Printf("published %s@%s\n", proj.Manifest.Info.ID, proj.Manifest.Info.Version)
	return nil
}
