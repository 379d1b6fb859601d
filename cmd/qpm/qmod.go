package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

const qmodShortHelp = `Create, build or edit the on-device mod descriptor`
const qmodLongHelp = `
qpm qmod create <modloaderId> <modFile...>  write a fresh mod.template.json
qpm qmod build <modloaderId> <modFile...>   fold the lockfile into mod.json
                                             via mod.template.json (or write
                                             mod.template.json if none exists)
qpm qmod edit modFiles|libraryFiles <value> append a path to
                                             mod.template.json's array field
`

type qmodCommand struct{}

func (cmd *qmodCommand) Name() string      { return "qmod" }
func (cmd *qmodCommand) Args() string      { return "<create|build|edit> ..." }
func (cmd *qmodCommand) ShortHelp() string { return qmodShortHelp }
func (cmd *qmodCommand) LongHelp() string  { return qmodLongHelp }
func (cmd *qmodCommand) Hidden() bool      { return false }
func (cmd *qmodCommand) Register(fs *flag.FlagSet) {}

func (cmd *qmodCommand) Run(ctx *qpm.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("qmod: expected a subcommand (create, build, edit)")
	}

	switch args[0] {
	case "create", "build":
		if len(args) < 2 {
			return errors.Errorf("qmod %s: expected <modloaderId> [modFile...]", args[0])
		}
		proj, err := ctx.LoadProject("")
		if err != nil {
			return err
		}
		if args[0] == "create" {
			// create always starts from a fresh template, so remove any
			// existing one before delegating to the same build logic.
			os.Remove(filepath.Join(proj.AbsRoot, "mod.template.json"))
		}
		return qpm.QmodBuild(proj, pkgid.NormalizeID(args[1]), args[2:])

	case "edit":
		if len(args) != 3 {
			return errors.New("qmod edit: expected <modFiles|libraryFiles> <path>")
		}
		proj, err := ctx.LoadProject("")
		if err != nil {
			return err
		}
		return qpm.QmodEditTemplate(proj.AbsRoot, args[1], args[2])

	default:
		return errors.Errorf("qmod: unknown subcommand %q", args[0])
	}
}
