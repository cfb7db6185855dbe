package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/layerline/internal"
	pkgconfig "github.com/starford/layerline/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func coverage(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := internal.CoverageRequest{
		Layers: cmd.StringSlice("layer"),
		Front:  cmd.String("front"),
		Back:   cmd.String("back"),
		Now:    cmd.String("now"),
		Zoom:   cmd.String("zoom"),
		Width:  cmd.Float("width"),
	}
	return internal.RunCoverage(ctx, req, os.Stdout, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "layerline",
		Usage:  "Timeline layer coverage service backed by a YAML layer catalogue",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, event stream and catalogue watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve layer tools to an MCP client over stdio",
				Action: serveMCP,
			},
			{
				Name:   "coverage",
				Usage:  "Print the coverage lines of layers for one window as JSON",
				Action: coverage,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "layer",
						Usage: "Layer id, repeatable or comma-separated (all layers when omitted)",
					},
					&cli.StringFlag{Name: "front", Usage: "One window boundary (ISO-8601)", Required: true},
					&cli.StringFlag{Name: "back", Usage: "The other window boundary (ISO-8601)", Required: true},
					&cli.StringFlag{Name: "now", Usage: "Current time, defaults to the system clock"},
					&cli.StringFlag{Name: "zoom", Usage: "Zoom unit: year, month, day, hour or minute"},
					&cli.FloatFlag{Name: "width", Usage: "Axis width in pixels"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
