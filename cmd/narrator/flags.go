package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"video-narrator/internal/appdirs"
	"video-narrator/internal/deps"
	"video-narrator/internal/script"
	"video-narrator/internal/types"
	"video-narrator/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var errUsage = errors.New("usage: narrator [--output-dir DIR] [--format json|srt|vtt|yaml] [--mux] <video_path_or_url>")

type cliOptions struct {
	OutputDir string
	Format    string
	Mux       bool
	Version   bool
	Diagnose  bool
	Source    string
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions

	flags := flag.NewFlagSet("narrator", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.OutputDir, "output-dir", "", "directory that receives the run output folder")
	flags.StringVar(&opts.Format, "format", types.OutputFormatJSON, "narration script format: "+strings.Join(script.Formats, ", "))
	flags.BoolVar(&opts.Mux, "mux", false, "also write the source video with the narration track")
	flags.BoolVar(&opts.Version, "version", false, "print version information")
	flags.BoolVar(&opts.Diagnose, "diagnose", false, "print runtime diagnostics")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if opts.Version || opts.Diagnose {
		return opts, nil
	}

	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	if !script.IsSupported(opts.Format) {
		return opts, fmt.Errorf("unsupported format %q", opts.Format)
	}
	if flags.NArg() != 1 {
		return opts, errUsage
	}
	opts.Source = strings.TrimSpace(flags.Arg(0))
	if opts.Source == "" {
		return opts, errUsage
	}
	return opts, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose(w io.Writer) {
	fmt.Fprintf(w, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "version: %s\n", version)

	if exePath, err := os.Executable(); err == nil {
		fmt.Fprintf(w, "executable: %s\n", exePath)
	} else {
		fmt.Fprintf(w, "executable: <error: %v>\n", err)
	}

	if paths, err := appdirs.Resolve(); err == nil {
		printPath(w, "config", paths.ConfigFile)
		printPath(w, "output", appdirs.RunRootFor(paths))
		printPath(w, "workspace", appdirs.WorkspaceRootFor(paths))
		printPath(w, "db", appdirs.DBPathFor(paths))
	} else {
		fmt.Fprintf(w, "paths: <error: %v>\n", err)
	}

	if logDir, err := log.ResolveLogDir(); err == nil {
		printPath(w, "effective_log_dir", logDir)
	} else {
		fmt.Fprintf(w, "path.effective_log_dir: <error: %v>\n", err)
	}

	fmt.Fprintln(w, deps.FormatDependencyReport(deps.ResolveDependencyInventory()))
}

func printPath(w io.Writer, name, value string) {
	_, err := os.Stat(value)
	switch {
	case err == nil:
		fmt.Fprintf(w, "path.%s: %s (exists)\n", name, value)
	case os.IsNotExist(err):
		fmt.Fprintf(w, "path.%s: %s (missing)\n", name, value)
	default:
		fmt.Fprintf(w, "path.%s: %s (error=%v)\n", name, value, err)
	}
}
