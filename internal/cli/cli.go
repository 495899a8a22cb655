// Package cli provides the command line interface of the di tool.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/sarulabs/di/v3"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI is the root command configuration with subcommands.
type CLI struct {
	LogLevel   string           `kong:"short='l',help='Log level',enum='debug,info,warn,error',default='info'"`
	EnvFile    []string         `kong:"name='env-file',sep='none',help='.env files read to build the configuration'"`
	Dev        bool             `kong:"help='Enable the development checks (cycles and illegal bindings)'"`
	SingleRoot bool             `kong:"name='single-root',help='Reject a second root scope'"`
	Tree       TreeCmd          `kong:"cmd,help='Open scope chains and print the forest'"`
	Demo       DemoCmd          `kong:"cmd,help='Resolve a sample graph from concurrent request scopes'"`
	Version    kong.VersionFlag `kong:"short='v',help='Show version and exit.'"`
}

// TreeCmd opens scope chains in an empty forest and prints it.
type TreeCmd struct {
	Chains []string `kong:"arg,sep='none',help='Comma separated scope names, outermost first (e.g. app,request)'"`
}

// Run executes the tree command.
func (c *TreeCmd) Run(cli *CLI, out io.Writer) error {
	forest, err := cli.forest()
	if err != nil {
		return err
	}

	for _, chain := range c.Chains {
		names := splitChain(chain)
		if len(names) == 0 {
			continue
		}

		slog.Debug("Opening scope chain", "chain", chain)

		if _, err := forest.OpenScopes(names...); err != nil {
			return fmt.Errorf("could not open `%s`: %w", chain, err)
		}
	}

	_, err = io.WriteString(out, forest.String())
	return err
}

func splitChain(chain string) []any {
	names := []any{}
	for _, n := range strings.Split(chain, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// forest creates a Forest from the environment and the flags.
func (cli *CLI) forest(registries ...di.Registry) (*di.Forest, error) {
	config, err := di.ConfigurationFromEnv(cli.EnvFile, registries...)
	if err != nil {
		return nil, err
	}

	if cli.Dev {
		config.Mode = di.DevelopmentMode
	}
	if cli.SingleRoot {
		config.RootPolicy = di.PreventMultipleRoots
	}

	config.Logger = di.NewSlogLogger(slog.Default())

	slog.Debug("Creating forest", "config", config.String())

	return di.NewForest(config), nil
}

// Run parses the arguments and executes the selected command.
func Run(args []string) error {
	return run(args, os.Stdout)
}

func run(args []string, out io.Writer) error {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name("di"),
		kong.Description("Inspect and exercise a dependency injection scope forest"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s) released on %s", version, commit, date),
		},
		kong.BindTo(out, (*io.Writer)(nil)),
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	setupLogger(cli.LogLevel)

	return kongCtx.Run(&cli)
}

func setupLogger(level string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
