package main

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/StackDoubleFlow/qpm"
	"github.com/StackDoubleFlow/qpm/settings"
)

const configShortHelp = `Get or set a persisted user setting`
const configLongHelp = `
qpm config list                    print every setting
qpm config get <key>                print one setting
qpm config set <key> <value>        persist one setting

Recognized keys: cacheDir, useSymlink, timeoutMillis, ndkPath, registryUrl.
`

type configCommand struct{}

func (cmd *configCommand) Name() string      { return "config" }
func (cmd *configCommand) Args() string      { return "<list|get|set> [key] [value]" }
func (cmd *configCommand) ShortHelp() string { return configShortHelp }
func (cmd *configCommand) LongHelp() string  { return configLongHelp }
func (cmd *configCommand) Hidden() bool      { return false }
func (cmd *configCommand) Register(fs *flag.FlagSet) {}

func (cmd *configCommand) Run(ctx *qpm.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("config: expected a subcommand (list, get, set)")
	}

	switch args[0] {
	case "list":
		s := ctx.Settings
		ctx.Log.Printf("cacheDir=%s\nuseSymlink=%t\ntimeoutMillis=%d\nndkPath=%s\nregistryUrl=%s\n",
			s.CacheDir, s.UseSymlink, s.TimeoutMillis, s.NDKPath, s.RegistryURL)
		return nil
	case "get":
		if len(args) != 2 {
			return errors.New("config get: expected a single key")
		}
		v, err := getSetting(ctx.Settings, args[1])
		if err != nil {
			return err
		}
		ctx.Log.Printf("%s\n", v)
		return nil
	case "set":
		if len(args) != 3 {
			return errors.New("config set: expected a key and a value")
		}
		s := ctx.Settings
		if err := setSetting(&s, args[1], args[2]); err != nil {
			return err
		}
		store := settings.NewJSONSettingsStore(settingsPath(os.Environ()))
		if err := store.Save(s); err != nil {
			return err
		}
		ctx.Settings = s
		return nil
	default:
		return errors.Errorf("config: unknown subcommand %q", args[0])
	}
}

func getSetting(s settings.Settings, key string) (string, error) {
	switch key {
	case "cacheDir":
		return s.CacheDir, nil
	case "useSymlink":
		return strconv.FormatBool(s.UseSymlink), nil
	case "timeoutMillis":
		return strconv.Itoa(s.TimeoutMillis), nil
	case "ndkPath":
		return s.NDKPath, nil
	case "registryUrl":
		return s.RegistryURL, nil
	default:
		return "", errors.Errorf("config: unknown key %q", key)
	}
}

func setSetting(s *settings.Settings, key, value string) error {
	switch key {
	case "cacheDir":
		abs, err := filepath.Abs(value)
		if err != nil {
			return err
		}
		s.CacheDir = abs
	case "useSymlink":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrap(err, "useSymlink must be a boolean")
		}
		s.UseSymlink = b
	case "timeoutMillis":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrap(err, "timeoutMillis must be an integer")
		}
		s.TimeoutMillis = n
	case "ndkPath":
		s.NDKPath = value
	case "registryUrl":
		s.RegistryURL = value
	default:
		return errors.Errorf("config: unknown key %q", key)
	}
	return nil
}
