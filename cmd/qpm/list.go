package main

import (
	"context"
	"flag"
	"os"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

const listShortHelp = `List dependencies, their extra properties, or registry versions`
const listLongHelp = `
qpm list packages                 list every restored dependency
qpm list extra-properties <id>    print the resolved AdditionalData for one
                                   restored dependency
qpm list versions <id>            list every version of <id> the registry
                                   has published
`

type listCommand struct{}

func (cmd *listCommand) Name() string      { return "list" }
func (cmd *listCommand) Args() string      { return "<extra-properties|packages|versions> [id]" }
func (cmd *listCommand) ShortHelp() string { return listShortHelp }
func (cmd *listCommand) LongHelp() string  { return listLongHelp }
func (cmd *listCommand) Hidden() bool      { return false }
func (cmd *listCommand) Register(fs *flag.FlagSet) {}

func (cmd *listCommand) Run(ctx *qpm.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("list: expected a subcommand (extra-properties, packages, versions)")
	}

	switch args[0] {
	case "packages":
		proj, err := ctx.LoadProject("")
		if err != nil {
			return err
		}
		if proj.Lockfile == nil {
			return errors.New("list packages: no lockfile; run restore first")
		}
		for _, rd := range proj.Lockfile.RestoredDependencies {
			ctx.Log.Printf("%s@%s\n", rd.Dependency.ID, rd.Version)
		}
		return nil

	case "extra-properties":
		if len(args) != 2 {
			return errors.New("list extra-properties: expected <id>")
		}
		proj, err := ctx.LoadProject("")
		if err != nil {
			return err
		}
		if proj.Lockfile == nil {
			return errors.New("list extra-properties: no lockfile; run restore first")
		}
		rd, ok := proj.Lockfile.ByID(pkgid.NormalizeID(args[1]))
		if !ok {
			return errors.Errorf("list extra-properties: %s is not a restored dependency", args[1])
		}
		ad := rd.Dependency.AdditionalData
		ctx.Log.Printf("headersOnly=%v\nstaticLinking=%v\nisPrivate=%v\nuseRelease=%v\nsoLink=%s\ndebugSoLink=%s\n",
			ad.HeadersOnly, ad.StaticLinking, ad.IsPrivate, ad.UseRelease, ad.SoLink, ad.DebugSoLink)
		return nil

	case "versions":
		if len(args) != 2 {
			return errors.New("list versions: expected <id>")
		}
		creds := qpm.NewEnvCredentials(os.Getenv("QPM_TOKEN"))
		client := ctx.RegistryClient(creds)
		versions, err := client.ListVersions(context.Background(), pkgid.NormalizeID(args[1]))
		if err != nil {
			return err
		}
		for _, v := range versions {
			ctx.Log.Printf("%s\n", v.Version)
		}
		return nil

	default:
		return errors.Errorf("list: unknown subcommand %q", args[0])
	}
}
