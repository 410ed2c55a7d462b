package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

var version = "dev"

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "openkit",
		Usage:     "Memory Kernel for project docs: link integrity doctor, session capture and review",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: <project>/" + defaultConfigFile + ")",
				Sources: cli.EnvVars("OPENKIT_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project root (default: current directory)",
				Sources: cli.EnvVars("OPENKIT_PROJECT"),
			},
		},
		Commands: []*cli.Command{
			memoryCommand(),
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API with live doctor events",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the memory tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
