// Command colortest inspects the color pipeline of the test panes without a
// compositor: it lists presets, prints resolved matrices, dumps compiled
// scenes, renders TIFF previews on the CPU and probes the GPU.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	colortest "github.com/mahkoh/wayland-color-test"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	err := run(os.Args[1], os.Args[2:], os.Stdout)
	if errors.Is(err, errUsage) {
		usage(os.Stderr)
		os.Exit(2)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "colortest:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("unknown command")

func run(cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "list":
		return runList(args, out)
	case "matrix":
		return runMatrix(args, out)
	case "scene":
		return runScene(args, out)
	case "preview":
		return runPreview(args, out)
	case "probe":
		return runProbe(args, out)
	}
	return errUsage
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: colortest <command> [args]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  list    [-v]")
	fmt.Fprintln(w, "  matrix  [-primaries srgb] [-tf srgb|pow:2.4] [-lum min:max:white] [-scrgb] [-none]")
	fmt.Fprintln(w, "  scene   [-name grid]")
	fmt.Fprintln(w, "  preview -out preview.tiff [-name grid] [-w 800] [-h 600] [-thumb 0 -thumb-out t.tiff] [description flags]")
	fmt.Fprintln(w, "  probe   [-v]")
}

// newFlagSet returns a flag set with the common -v flag.
func newFlagSet(name string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	verbose := fs.Bool("v", false, "log debug output to stderr")
	return fs, verbose
}

func parse(fs *flag.FlagSet, verbose *bool, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if *verbose {
		colortest.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	return nil
}
