package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	pkgconfig "github.com/starford/quire/pkg/config"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadLayered(cfg, cmd.String("config"), cmd.String("config-local")); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithEnvironment(cmd.String("env")),
		internal.WithVersion(version),
	}, nil
}

func target(name string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		opts, err := options(cmd)
		if err != nil {
			return err
		}
		if err := internal.Run(ctx, name, opts...); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

func runTarget(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("run: target name is required (see `quire targets`)")
	}
	return target(name)(ctx, cmd)
}

func listTargets(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	names, err := internal.Targets(ctx, opts...)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(cmd.Root().Writer, n)
	}
	return nil
}

func service(run func(context.Context, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		opts, err := options(cmd)
		if err != nil {
			return err
		}
		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "quire",
		Usage:   "Build Markdown and stylesheet sources into a static documentation site",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "config-local",
				Usage:   "Optional override file layered on top of --config",
				Value:   "config/config.local.yaml",
				Sources: cli.EnvVars("APP_CONFIG_LOCAL_FILE"),
			},
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Server environment (selects servers.<env> for base URL and install dir)",
				Sources: cli.EnvVars("APP_ENV"),
			},
		},
		Commands: []*cli.Command{
			{Name: "clean", Usage: "Remove the output and work directories", Action: target("clean")},
			{Name: "build", Usage: "Build the whole site", Action: target("build")},
			{Name: "install", Usage: "Build and copy the site to the environment's install_dir", Action: target("install")},
			{Name: "run", Usage: "Run a single target, e.g. a category output path", ArgsUsage: "<target>", Action: runTarget},
			{Name: "targets", Usage: "List runnable targets", Action: listTargets},
			{Name: "watch", Usage: "Build, then rebuild on source changes", Action: service(internal.Watch)},
			{Name: "serve", Usage: "Build, watch and serve the site with live reload", Action: service(internal.Serve)},
			{Name: "mcp", Usage: "Expose the site to LLM clients over MCP stdio", Action: service(internal.ServeMCP)},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
