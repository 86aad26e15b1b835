// Command export writes one project export to a local directory without the
// API or the queue. It reads the same DB_* environment as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vailabel/vailabel-studio-sub002/internal/bootstrap"
	"github.com/vailabel/vailabel-studio-sub002/internal/export"
	"github.com/vailabel/vailabel-studio-sub002/internal/filestorage"
	"github.com/vailabel/vailabel-studio-sub002/internal/telemetry"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type cliArgs struct {
	opt  usecase.ExportProjectOption
	out  string
	list bool
}

func newFlagSet(a *cliArgs) *flag.FlagSet {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.StringVar(&a.opt.ProjectID, "project", "", "project id to export")
	fs.Func("format", "export format: json|coco|pascal-voc|yolo (default json)", func(v string) error {
		f, err := export.ParseFormat(v)
		a.opt.Format = f
		return err
	})
	fs.StringVar(&a.out, "out", "exports", "output directory")
	fs.StringVar(&a.opt.FilenamePrefix, "prefix", "", "filename prefix, defaults to the project name")
	fs.BoolVar(&a.opt.NormalizeBoxes, "normalize", false, "swap inverted box corners before encoding (all formats)")
	fs.BoolVar(&a.opt.Strict, "strict", false, "fail on malformed annotations instead of encoding them as degenerate shapes")
	fs.BoolVar(&a.list, "formats", false, "list supported formats and exit")
	return fs
}

func parseArgs(args []string) (cliArgs, error) {
	a := cliArgs{opt: usecase.ExportProjectOption{Format: export.FormatJSON}}
	if err := newFlagSet(&a).Parse(args); err != nil {
		return cliArgs{}, err
	}
	if !a.list && a.opt.ProjectID == "" {
		return cliArgs{}, errors.New("missing -project")
	}
	return a, nil
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if args.list {
		for _, f := range export.Formats() {
			fmt.Printf("%-12s %-5s %s\n", f.ID, f.Extension, f.Description)
		}
		return
	}

	logger := telemetry.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, args.out, args.opt); err != nil {
		logger.Error("export failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, dir string, opt usecase.ExportProjectOption) error {
	repo, err := bootstrap.Repository(logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	sink, err := filestorage.NewLocalStorage(dir)
	if err != nil {
		return err
	}
	opt.Sink = sink
	opt.OnState = func(s usecase.ExportState) {
		logger.Debug("export state", slog.String("state", string(s)))
	}

	uc := usecase.New(repo, sink, nil, nil, nil, logger)
	res, err := uc.ExportProject(ctx, opt)
	if err != nil {
		return err
	}

	logger.Info("export written",
		slog.String("path", filepath.Join(sink.Dir(), res.Delivery.Location)),
		slog.Int("size", res.Size),
		slog.Int("files", res.Files),
		slog.Int("skipped", res.Skipped.Total()),
	)
	return nil
}
