package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/graphlint/internal"
	"github.com/starford/graphlint/internal/report"
	pkgconfig "github.com/starford/graphlint/pkg/config"
)

var version = "dev"

const defaultConfigPath = "config/graphlint.yaml"

// loadConfig layers defaults, the YAML config file and explicitly set flags.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	path := cmd.String("config")
	if path == "" {
		path = defaultConfigPath
	}
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cli.Command, cfg *internal.Config) error {
	if cmd.IsSet("root") {
		cfg.Lint.Root = cmd.String("root")
	}
	if cmd.IsSet("exclude") {
		cfg.Lint.Exclude = cmd.StringSlice("exclude")
	}
	if cmd.IsSet("required") {
		cfg.Lint.Required = internal.ParseRequired(cmd.String("required"))
	}
	if cmd.IsSet("check-links") {
		cfg.Lint.CheckLinks = cmd.Bool("check-links")
	}
	if cmd.Bool("no-check-links") {
		cfg.Lint.CheckLinks = false
	}
	if cmd.IsSet("check-orphans") {
		cfg.Lint.CheckOrphans = cmd.Bool("check-orphans")
	}
	if cmd.Bool("no-check-orphans") {
		cfg.Lint.CheckOrphans = false
	}
	if cmd.IsSet("root-index") {
		cfg.Lint.RootIndex = cmd.String("root-index")
	}
	if cmd.IsSet("format") {
		cfg.Lint.Format = cmd.String("format")
	}
	if cmd.IsSet("workers") {
		cfg.Lint.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("gitignore") {
		cfg.Lint.Gitignore = cmd.Bool("gitignore")
	}
	if cmd.IsSet("watch") {
		cfg.Lint.Watch = cmd.Bool("watch")
	}
	if cmd.IsSet("index-db") {
		cfg.Index.Path = cmd.String("index-db")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("log-level") {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", cmd.String("log-level"), err)
		}
		cfg.App.LogLevel = lvl
	}
	return nil
}

func newCommand(stdout, stderr io.Writer, code *int) *cli.Command {
	options := func(cfg *internal.Config) []internal.Option {
		return []internal.Option{
			internal.WithConfig(cfg),
			internal.WithOutput(stdout, stderr),
			internal.WithVersion(version),
		}
	}

	return &cli.Command{
		Name:      "graphlint",
		Usage:     "Lint a graph memory bank: frontmatter, links, orphans and duplicate ids",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		// Each --exclude is one glob; commas belong to the pattern.
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Sources:     cli.EnvVars("GRAPHLINT_CONFIG"),
			},
			&cli.StringFlag{Name: "root", Usage: "Scan root directory", DefaultText: "docs/graph"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "Glob to exclude, matched against the path relative to --root (repeatable)"},
			&cli.StringFlag{Name: "required", Usage: "Comma-separated required metadata keys", DefaultText: "id,type,title,status"},
			&cli.BoolFlag{Name: "check-links", Usage: "Report links to missing documents (default)"},
			&cli.BoolFlag{Name: "no-check-links", Usage: "Skip broken-link detection"},
			&cli.BoolFlag{Name: "check-orphans", Usage: "Report documents nothing links to (default)"},
			&cli.BoolFlag{Name: "no-check-orphans", Usage: "Skip orphan detection"},
			&cli.StringFlag{Name: "root-index", Usage: "Orphan-exempt root document, relative to --root", DefaultText: "index.md"},
			&cli.StringFlag{Name: "format", Usage: "Report format: text or json", DefaultText: report.FormatText},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent document readers (0 = GOMAXPROCS)"},
			&cli.BoolFlag{Name: "gitignore", Usage: "Skip files matched by <root>/.gitignore"},
			&cli.StringFlag{Name: "index-db", Usage: "Persist the graph to this SQLite database"},
			&cli.BoolFlag{Name: "watch", Usage: "Re-lint whenever a markdown file changes"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn or error", DefaultText: "warn"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			*code = internal.Lint(ctx, options(cfg)...)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the lint report, graph and backlinks over HTTP",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "HTTP port", DefaultText: "8080"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					if err := internal.Serve(ctx, options(cfg)...); err != nil {
						return fmt.Errorf("app run error: %w", err)
					}
					return nil
				},
			},
			{
				Name:  "mcp",
				Usage: "Expose lint tools over the Model Context Protocol (stdio)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.ServeMCP(ctx, options(cfg)...)
				},
			},
			{
				Name:      "backlinks",
				Usage:     "List documents linking to a path, from the --index-db index",
				ArgsUsage: "<path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					target := cmd.Args().First()
					if target == "" {
						return fmt.Errorf("backlinks: path argument is required")
					}
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					*code = internal.Backlinks(ctx, target, options(cfg)...)
					return nil
				},
			},
		},
	}
}

// run executes the CLI and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := report.ExitOK
	if err := newCommand(stdout, stderr, &code).Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return report.ExitUsage
	}
	return code
}

func main() {
	// Turn writes to a closed pipe into EPIPE errors instead of a fatal signal.
	signal.Notify(make(chan os.Signal, 1), syscall.SIGPIPE)

	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}
