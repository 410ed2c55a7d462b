package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/openkit/internal"
	"github.com/starford/openkit/internal/apperr"
	"github.com/starford/openkit/internal/history"
	"github.com/starford/openkit/internal/kernel"
	"github.com/starford/openkit/internal/watch"
	pkgconfig "github.com/starford/openkit/pkg/config"
)

const defaultConfigFile = ".openkit/config.yaml"

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Memory Kernel operations",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create the Memory Kernel layout and contract files",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Overwrite existing files"},
					&cli.BoolFlag{Name: "docs", Usage: "Also seed the default docs hubs"},
				},
				Action: memoryInit,
			},
			{
				Name:  "doctor",
				Usage: "Check docs link integrity and print the health report",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the report as JSON"},
					&cli.BoolFlag{Name: "write", Usage: "Persist the report to the health file"},
				},
				Action: memoryDoctor,
			},
			{
				Name:  "capture",
				Usage: "Write a session snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "session-id", Usage: "Session identifier (default: mk-<unix>)"},
					&cli.StringFlag{Name: "summary", Usage: "Session summary"},
					&cli.StringSliceFlag{Name: "action", Usage: "Action taken in the session (repeatable)"},
				},
				Action: memoryCapture,
			},
			{
				Name:  "review",
				Usage: "Summarize operational memory and recommend follow-ups",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the review as JSON"},
				},
				Action: memoryReview,
			},
			{
				Name:  "history",
				Usage: "List recorded doctor runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Number of runs to list", Value: 10},
					&cli.BoolFlag{Name: "json", Usage: "Print the runs as JSON"},
				},
				Action: memoryHistory,
			},
			{
				Name:   "watch",
				Usage:  "Re-run the doctor whenever a Markdown document changes",
				Action: memoryWatch,
			},
		},
	}
}

// projectRoot resolves --project, falling back to the working directory.
func projectRoot(cmd *cli.Command) (string, error) {
	root := cmd.String("project")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("detect project root: %w", err)
		}
		root = wd
	}
	return filepath.Abs(root)
}

// loadConfig reads --config when given, otherwise the optional project config.
func loadConfig(cmd *cli.Command, root string) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if path := cmd.String("config"); path != "" {
		if err := pkgconfig.Load(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if err := pkgconfig.LoadOptional(filepath.Join(root, defaultConfigFile), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

type env struct {
	root   string
	cfg    *internal.Config
	logger *slog.Logger
	svc    *kernel.Service
	close  func() error
	out    io.Writer
}

func openEnv(cmd *cli.Command) (*env, error) {
	root, err := projectRoot(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(cmd.Root().ErrWriter, cfg.App.LogLevel)
	svc, closeFn, err := internal.OpenKernel(cfg, root, logger)
	if err != nil {
		return nil, err
	}
	return &env{
		root:   root,
		cfg:    cfg,
		logger: logger,
		svc:    svc,
		close:  closeFn,
		out:    cmd.Root().Writer,
	}, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func memoryInit(ctx context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := e.svc.Init(ctx, kernel.InitOptions{
		Force: cmd.Bool("force"),
		Docs:  cmd.Bool("docs"),
	}); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Initialized Memory Kernel structure at %s\n", e.root)
	return nil
}

func memoryDoctor(ctx context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	run, err := e.svc.Doctor(ctx, cmd.Bool("write"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		if err := printJSON(e.out, run.Result.Report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(e.out, run.Result.Report.Text())
	}
	if run.Result.Failed() {
		return fmt.Errorf("memory doctor failed: %w. Examples: %s", apperr.ErrBrokenLinks, run.Result.Preview(3))
	}
	return nil
}

func memoryCapture(ctx context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	snap, rel, err := e.svc.Capture(ctx, kernel.CaptureInput{
		SessionID: cmd.String("session-id"),
		Summary:   cmd.String("summary"),
		Actions:   cmd.StringSlice("action"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Captured session %s\n", snap.SessionID)
	fmt.Fprintf(e.out, "Snapshot: %s\n", rel)
	return nil
}

func memoryReview(ctx context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	report, err := e.svc.Review(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(e.out, report)
	}
	fmt.Fprint(e.out, report.Text())
	return nil
}

func memoryHistory(ctx context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	runs, err := e.svc.History(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		if runs == nil {
			runs = []history.Run{}
		}
		return printJSON(e.out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(e.out, "No recorded runs")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(e.out, "#%d %s %s (score=%d) broken=%d\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Status, r.Score, r.BrokenCount)
	}
	return nil
}

func memoryWatch(ctx context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch.Watch(ctx, e.svc, e.svc.DocsRoot(), e.logger, func(run *kernel.DoctorRun) {
		fmt.Fprint(e.out, run.Result.Report.Text())
	}, watch.WithDebounce(e.cfg.Watch.Debounce))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	root, err := projectRoot(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx,
		internal.WithConfig(cfg),
		internal.WithProjectRoot(root),
		internal.WithVersion(version),
	); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	root, err := projectRoot(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithProjectRoot(root),
		internal.WithVersion(version),
		internal.WithLogger(internal.NewLogger(cmd.Root().ErrWriter, cfg.App.LogLevel)),
	)
}
