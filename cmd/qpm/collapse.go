package main

import (
	"context"
	"flag"
	"os"

	"github.com/StackDoubleFlow/qpm"
)

const collapseShortHelp = `Print the collapsed AdditionalData for every resolved dependency`
const collapseLongHelp = `
Resolves the project's dependency graph and folds every edge targeting
each selected package into one AdditionalData view, the same merge a
restore performs internally, without touching the filesystem.

"collect" is accepted as an alias.
`

type collapseCommand struct{ collect bool }

func (cmd *collapseCommand) Name() string {
	if cmd.collect {
		return "collect"
	}
	return "collapse"
}
func (cmd *collapseCommand) Args() string      { return "" }
func (cmd *collapseCommand) ShortHelp() string { return collapseShortHelp }
func (cmd *collapseCommand) LongHelp() string  { return collapseLongHelp }
func (cmd *collapseCommand) Hidden() bool      { return cmd.collect }
func (cmd *collapseCommand) Register(fs *flag.FlagSet) {}

func (cmd *collapseCommand) Run(ctx *qpm.Context, args []string) error {
	proj, err := ctx.LoadProject("")
	if err != nil {
		return err
	}

	creds := qpm.NewEnvCredentials(os.Getenv("QPM_TOKEN"))
	client := ctx.RegistryClient(creds)

	collapsed, err := qpm.Collapse(context.Background(), proj, client)
	if err != nil {
		return err
	}
	for id, ad := range collapsed {
		ctx.Log.Printf("%s: headersOnly=%v staticLinking=%v isPrivate=%v\n", id, ad.HeadersOnly, ad.StaticLinking, ad.IsPrivate)
	}
	return nil
}
