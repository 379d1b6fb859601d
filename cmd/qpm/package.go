package main

import (
	"flag"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm"
	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

const packageShortHelp = `Create or edit qpm.json's package info`
const packageLongHelp = `
qpm package create <id> <name> <version>     scaffold a new qpm.json
qpm package edit url|sharedDir|dependenciesDir <value>
                                              set a top-level manifest field
qpm package edit-extra headersOnly|staticLinking|isPrivate|useRelease <true|false>
                                              set an additionalData flag
`

type packageCommand struct{}

func (cmd *packageCommand) Name() string      { return "package" }
func (cmd *packageCommand) Args() string      { return "<create|edit|edit-extra> ..." }
func (cmd *packageCommand) ShortHelp() string { return packageShortHelp }
func (cmd *packageCommand) LongHelp() string  { return packageLongHelp }
func (cmd *packageCommand) Hidden() bool      { return false }
func (cmd *packageCommand) Register(fs *flag.FlagSet) {}

func (cmd *packageCommand) Run(ctx *qpm.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("package: expected a subcommand (create, edit, edit-extra)")
	}

	switch args[0] {
	case "create":
		return cmd.create(ctx, args[1:])
	case "edit":
		return cmd.edit(ctx, args[1:])
	case "edit-extra":
		return cmd.editExtra(ctx, args[1:])
	default:
		return errors.Errorf("package: unknown subcommand %q", args[0])
	}
}

func (cmd *packageCommand) create(ctx *qpm.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("package create: expected <id> <name> <version>")
	}
	v, err := pkgid.ParseVersion(args[2])
	if err != nil {
		return errors.Wrap(err, "parsing version")
	}

	root := ctx.WorkingDir
	if root == "" {
		return errors.New("package create: no working directory")
	}

	m := &manifest.Manifest{
		Info: manifest.PackageInfo{
			ID:      pkgid.NormalizeID(args[0]),
			Name:    args[1],
			Version: v,
		},
		DependenciesDir: "extern",
		SharedDir:       "shared",
	}

	return qpm.WriteManifestFile(filepath.Join(root, qpm.ManifestName), m)
}

func (cmd *packageCommand) edit(ctx *qpm.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("package edit: expected <field> <value>")
	}
	proj, err := ctx.LoadProject("")
	if err != nil {
		return err
	}
	m := proj.Manifest

	switch args[0] {
	case "url":
		m.Info.URL = args[1]
	case "sharedDir":
		m.SharedDir = args[1]
	case "dependenciesDir":
		m.DependenciesDir = args[1]
	default:
		return errors.Errorf("package edit: unknown field %q", args[0])
	}

	return qpm.WriteManifestFile(filepath.Join(proj.AbsRoot, qpm.ManifestName), m)
}

func (cmd *packageCommand) editExtra(ctx *qpm.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("package edit-extra: expected <field> <true|false>")
	}
	proj, err := ctx.LoadProject("")
	if err != nil {
		return err
	}
	m := proj.Manifest
	val := args[1] == "true"

	switch args[0] {
	case "headersOnly":
		m.Info.AdditionalData.HeadersOnly = val
	case "staticLinking":
		m.Info.AdditionalData.StaticLinking = val
	case "isPrivate":
		m.Info.AdditionalData.IsPrivate = val
	case "useRelease":
		m.Info.AdditionalData.UseRelease = val
	default:
		return errors.Errorf("package edit-extra: unknown field %q", args[0])
	}

	return qpm.WriteManifestFile(filepath.Join(proj.AbsRoot, qpm.ManifestName), m)
}
