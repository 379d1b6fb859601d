package main

import (
	"flag"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm"
	"github.com/StackDoubleFlow/qpm/manifest"
	"github.com/StackDoubleFlow/qpm/pkgid"
)

const dependencyShortHelp = `Add or remove a declared dependency`
const dependencyLongHelp = `
qpm dependency add <id> <versionRange>       declare a dependency
qpm dependency remove <id>                   drop a declared dependency

Neither subcommand resolves or restores; run "qpm restore" afterward.
`

type dependencyCommand struct{}

func (cmd *dependencyCommand) Name() string      { return "dependency" }
func (cmd *dependencyCommand) Args() string      { return "<add|remove> <id> [versionRange]" }
func (cmd *dependencyCommand) ShortHelp() string { return dependencyShortHelp }
func (cmd *dependencyCommand) LongHelp() string  { return dependencyLongHelp }
func (cmd *dependencyCommand) Hidden() bool      { return false }
func (cmd *dependencyCommand) Register(fs *flag.FlagSet) {}

func (cmd *dependencyCommand) Run(ctx *qpm.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("dependency: expected a subcommand and a package id")
	}

	proj, err := ctx.LoadProject("")
	if err != nil {
		return err
	}
	m := proj.Manifest
	id := pkgid.NormalizeID(args[1])

	switch args[0] {
	case "add":
		if len(args) != 3 {
			return errors.New("dependency add: expected <id> <versionRange>")
		}
		rng, err := pkgid.ParseRange(args[2])
		if err != nil {
			return errors.Wrap(err, "parsing version range")
		}
		found := false
		for i := range m.Dependencies {
			if m.Dependencies[i].ID == id {
				m.Dependencies[i].VersionRange = rng
				found = true
				break
			}
		}
		if !found {
			m.Dependencies = append(m.Dependencies, manifest.Dependency{ID: id, VersionRange: rng})
		}
	case "remove":
		out := m.Dependencies[:0]
		removed := false
		for _, d := range m.Dependencies {
			if d.ID == id {
				removed = true
				continue
			}
			out = append(out, d)
		}
		if !removed {
			return errors.Errorf("dependency remove: %s is not declared", id)
		}
		m.Dependencies = out
	default:
		return errors.Errorf("dependency: unknown subcommand %q", args[0])
	}

	return writeManifest(proj.AbsRoot, m)
}

func writeManifest(root string, m *manifest.Manifest) error {
	return qpm.WriteManifestFile(filepath.Join(root, qpm.ManifestName), m)
}
