// Command qpm is the command-line front end for the qpm package manager.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/StackDoubleFlow/qpm"
	"github.com/StackDoubleFlow/qpm/internal/qlog"
	"github.com/StackDoubleFlow/qpm/settings"
)

type command interface {
	Name() string           // "restore"
	Args() string           // "[flags]"
	ShortHelp() string      // "Resolve and materialize dependencies"
	LongHelp() string       // full usage text
	Register(*flag.FlagSet) // command-specific flags
	Hidden() bool           // hide from the top-level help listing
	Run(*qpm.Context, []string) error
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory:", err)
		os.Exit(1)
	}
	c := &Config{
		Args:       os.Args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
		Env:        os.Environ(),
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for a qpm invocation.
type Config struct {
	WorkingDir     string
	Args           []string
	Env            []string
	Stdout, Stderr io.Writer
}

// settingsPath returns the fixed location of the user-scoped settings
// file, honoring QPM_SETTINGS for tests and alternate home directories.
func settingsPath(env []string) string {
	if v := getEnv(env, "QPM_SETTINGS"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".qpm", "settings.json")
}

// Run executes a configuration and returns an exit code.
func (c *Config) Run() (exitCode int) {
	commands := []command{
		&restoreCommand{},
		&publishCommand{},
		&collapseCommand{},
		&collapseCommand{collect: true},
		&cacheCommand{},
		&clearCommand{},
		&configCommand{},
		&dependencyCommand{},
		&packageCommand{},
		&listCommand{},
		&qmodCommand{},
	}

	errLogger := log.New(c.Stderr, "", 0)

	usage := func() {
		errLogger.Println("qpm manages native dependencies for Quest mods")
		errLogger.Println()
		errLogger.Println("Usage: qpm <command>")
		errLogger.Println()
		errLogger.Println("Commands:")
		errLogger.Println()
		w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			if !cmd.Hidden() {
				fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
			}
		}
		w.Flush()
		errLogger.Println()
		errLogger.Println(`Use "qpm help <command>" for more information about a command.`)
	}

	cmdName, printCommandHelp, exit := parseArgs(c.Args)
	if exit {
		usage()
		exitCode = 1
		return
	}

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}

		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		cmd.Register(fs)
		resetUsage(errLogger, fs, cmdName, cmd.Args(), cmd.LongHelp())

		if printCommandHelp {
			fs.Usage()
			exitCode = 1
			return
		}

		if err := fs.Parse(c.Args[2:]); err != nil {
			exitCode = 1
			return
		}

		store := settings.NewJSONSettingsStore(settingsPath(c.Env))
		ctx, err := qpm.NewContext(store)
		if err != nil {
			errLogger.Printf("qpm: %v\n", err)
			exitCode = 1
			return
		}
		ctx.WorkingDir = c.WorkingDir
		ctx.Log = qlog.New(c.Stdout, c.Stderr)

		if err := cmd.Run(ctx, fs.Args()); err != nil {
			errLogger.Printf("%v\n", err)
			exitCode = 1
			return
		}
		return
	}

	errLogger.Printf("qpm: %s: no such command\n", cmdName)
	usage()
	exitCode = 1
	return
}

func resetUsage(logger *log.Logger, fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		defValue := f.DefValue
		if defValue == "" {
			defValue = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		logger.Printf("Usage: qpm %s %s\n", name, args)
		logger.Println()
		logger.Println(strings.TrimSpace(longHelp))
		logger.Println()
		if hasFlags {
			logger.Println("Flags:")
			logger.Println()
			logger.Println(flagBlock.String())
		}
	}
}

// parseArgs determines the command name and whether the user asked for help.
func parseArgs(args []string) (cmdName string, printCmdUsage bool, exit bool) {
	isHelpArg := func() bool {
		return strings.Contains(strings.ToLower(args[1]), "help") || strings.ToLower(args[1]) == "-h"
	}

	switch len(args) {
	case 0, 1:
		exit = true
	case 2:
		if isHelpArg() {
			exit = true
		}
		cmdName = args[1]
	default:
		if isHelpArg() {
			cmdName = args[2]
			printCmdUsage = true
		} else {
			cmdName = args[1]
		}
	}
	return cmdName, printCmdUsage, exit
}

func getEnv(env []string, key string) string {
	for i := len(env) - 1; i >= 0; i-- {
		kv := strings.SplitN(env[i], "=", 2)
		if kv[0] == key {
			if len(kv) > 1 {
				return kv[1]
			}
			return ""
		}
	}
	return ""
}
