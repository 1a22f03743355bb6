package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"autopilot/internal/layout"
)

const defaultRemote = "http://localhost:8080/api"

// config holds the parsed global flags.
type config struct {
	surface string
	remote  string
	local   string
	timeout time.Duration
	verbose bool
}

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "error: missing command")
		return 2
	}

	if err := dispatch(ctx, cfg, rest, stdout, stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 2
		}
		fmt.Fprintf(stderr, "layoutctl: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (config, []string, error) {
	var cfg config
	fs := flag.NewFlagSet("layoutctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.surface, "surface", "surface.json", "surface snapshot file to operate on")
	fs.StringVar(&cfg.remote, "remote", defaultRemote, "layout service base URL (empty disables the remote tier)")
	fs.StringVar(&cfg.local, "local", "", "local store directory (default: user config dir)")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "timeout for remote calls")
	fs.BoolVar(&cfg.verbose, "v", false, "enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: layoutctl [flags] <command> [args]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  init WIDTH HEIGHT PANEL[:WxH]...   create a surface snapshot\n")
		fmt.Fprintf(stderr, "  list                               list saved layouts\n")
		fmt.Fprintf(stderr, "  current                            print the current layout\n")
		fmt.Fprintf(stderr, "  save NAME                          save the current layout\n")
		fmt.Fprintf(stderr, "  load ID                            apply a saved layout\n")
		fmt.Fprintf(stderr, "  delete ID                          delete a saved layout\n")
		fmt.Fprintf(stderr, "  reset                              drop all geometry overrides\n")
		fmt.Fprintf(stderr, "  drag PANEL DX DY                   move a panel\n")
		fmt.Fprintf(stderr, "  resize PANEL DIR DX DY             resize a panel (DIR: n e s w ne se sw nw)\n")
		fmt.Fprintf(stderr, "  viewport WIDTH HEIGHT              change the viewport size\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}
	return cfg, fs.Args(), nil
}

func dispatch(ctx context.Context, cfg config, args []string, stdout, stderr io.Writer) error {
	cmd, args := args[0], args[1:]
	if cmd == "init" {
		return initSurface(cfg.surface, args)
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	surface, err := loadSurface(cfg.surface)
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg, surface, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	mutated, err := execute(ctx, mgr, surface, cmd, args, stdout)
	if err == nil && mutated {
		// The next run restores last-layout over the snapshot, so keep them in step.
		err = mgr.Persist()
	}
	mgr.Close()
	if err != nil {
		return err
	}
	if mutated {
		return saveSurface(cfg.surface, surface)
	}
	return nil
}

func newManager(cfg config, surface *layout.MemorySurface, logger *slog.Logger) (*layout.Manager, error) {
	dir := cfg.local
	if dir == "" {
		d, err := layout.DefaultLocalDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	local, err := layout.NewFileLocalStore(dir)
	if err != nil {
		return nil, err
	}

	opts := []layout.Option{layout.WithLogger(logger), layout.WithLocalStore(local)}
	if cfg.remote != "" {
		opts = append(opts, layout.WithRemoteStore(layout.NewHTTPRemoteStore(cfg.remote)))
	}
	mgr := layout.New(surface, opts...)
	for _, p := range surface.Snapshot().Panels {
		if err := mgr.RegisterPanel(p.ID); err != nil {
			mgr.Close()
			return nil, err
		}
	}
	return mgr, nil
}

// execute runs one command and reports whether the surface changed.
func execute(ctx context.Context, mgr *layout.Manager, surface *layout.MemorySurface, cmd string, args []string, stdout io.Writer) (bool, error) {
	switch cmd {
	case "list":
		if err := wantArgs(cmd, args, 0); err != nil {
			return false, err
		}
		return false, printLayouts(stdout, mgr.Layouts(ctx))

	case "current":
		if err := wantArgs(cmd, args, 0); err != nil {
			return false, err
		}
		return false, printJSON(stdout, mgr.CurrentLayout())

	case "save":
		if len(args) == 0 {
			return false, fmt.Errorf("%w: save NAME", errUsage)
		}
		saved, err := mgr.SaveLayout(ctx, strings.Join(args, " "))
		if err != nil {
			return false, err
		}
		fmt.Fprintf(stdout, "saved %s\n", saved.ID)
		return true, nil

	case "load":
		if err := wantArgs(cmd, args, 1); err != nil {
			return false, err
		}
		if _, ok := mgr.LoadLayout(ctx, args[0]); !ok {
			return false, fmt.Errorf("layout %q: %w", args[0], layout.ErrNotFound)
		}
		fmt.Fprintf(stdout, "loaded %s\n", args[0])
		return true, nil

	case "delete":
		if err := wantArgs(cmd, args, 1); err != nil {
			return false, err
		}
		if !mgr.DeleteLayout(ctx, args[0]) {
			return false, fmt.Errorf("delete %q failed", args[0])
		}
		fmt.Fprintf(stdout, "deleted %s\n", args[0])
		return false, nil

	case "reset":
		if err := wantArgs(cmd, args, 0); err != nil {
			return false, err
		}
		mgr.ResetToDefault()
		return true, nil

	case "drag":
		if err := wantArgs(cmd, args, 3); err != nil {
			return false, err
		}
		dx, dy, err := parseDelta(args[1], args[2])
		if err != nil {
			return false, err
		}
		if err := mgr.StartDrag(args[0], layout.PointerEvent{}); err != nil {
			return false, err
		}
		mgr.PointerMove(layout.PointerEvent{X: dx, Y: dy})
		mgr.PointerUp(layout.PointerEvent{X: dx, Y: dy})
		return true, nil

	case "resize":
		if err := wantArgs(cmd, args, 4); err != nil {
			return false, err
		}
		dx, dy, err := parseDelta(args[2], args[3])
		if err != nil {
			return false, err
		}
		if err := mgr.StartResize(args[0], layout.Direction(args[1]), layout.PointerEvent{}); err != nil {
			return false, err
		}
		mgr.PointerMove(layout.PointerEvent{X: dx, Y: dy})
		mgr.PointerUp(layout.PointerEvent{X: dx, Y: dy})
		return true, nil

	case "viewport":
		if err := wantArgs(cmd, args, 2); err != nil {
			return false, err
		}
		w, h, err := parseDelta(args[0], args[1])
		if err != nil {
			return false, err
		}
		surface.SetViewport(layout.Size{Width: w, Height: h})
		mgr.ViewportResized()
		return true, nil
	}
	return false, fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func wantArgs(cmd string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", errUsage, cmd, n, len(args))
	}
	return nil
}

func parseDelta(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad number %q", errUsage, xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad number %q", errUsage, ys)
	}
	return x, y, nil
}

func printLayouts(w io.Writer, layouts []layout.Layout) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPANELS\tSAVED")
	for _, l := range layouts {
		saved := "-"
		if l.SavedAt != nil {
			saved = l.SavedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", l.ID, l.Name, len(l.Panels), saved)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// initSurface writes a fresh snapshot. Panels default to 400x300.
func initSurface(path string, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: init WIDTH HEIGHT PANEL[:WxH]...", errUsage)
	}
	w, h, err := parseDelta(args[0], args[1])
	if err != nil {
		return err
	}
	surface := layout.NewMemorySurface(layout.Size{Width: w, Height: h})
	for _, arg := range args[2:] {
		id, size, _ := strings.Cut(arg, ":")
		natural := layout.PanelGeometry{Width: 400, Height: 300, Position: layout.PositionStatic}
		if size != "" {
			ws, hs, ok := strings.Cut(size, "x")
			if !ok {
				return fmt.Errorf("%w: bad panel size %q", errUsage, size)
			}
			if natural.Width, natural.Height, err = parseDelta(ws, hs); err != nil {
				return err
			}
		}
		if id == "" {
			return fmt.Errorf("%w: empty panel id", errUsage)
		}
		surface.AddElement(id, natural, true)
	}
	return saveSurface(path, surface)
}

func loadSurface(path string) (*layout.MemorySurface, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("surface %s not found, run init first", path)
		}
		return nil, err
	}
	var snap layout.SurfaceSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode surface %s: %w", path, err)
	}
	return layout.NewMemorySurfaceFromSnapshot(snap), nil
}

func saveSurface(path string, surface *layout.MemorySurface) error {
	data, err := json.MarshalIndent(surface.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".surface-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
