// Command ustarls lists the members of ustar archives.
//
// Usage:
//
//	ustarls [flags] archive...
//
// An archive argument of "-" reads from standard input. Gzip and zstd
// compressed archives are detected and decompressed automatically.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

type config struct {
	strict   bool
	trailer  bool
	digest   string
	preview  int
	long     bool
	maxSize  uint64
	jobs     int
	verbose  bool
	archives []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("ustarls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&cfg.strict, "strict", false, "verify header checksums and ustar magic")
	fs.BoolVar(&cfg.trailer, "trailer", false, "require the two-block end-of-archive trailer")
	fs.StringVar(&cfg.digest, "digest", "", "print a content digest per entry (sha256, sha384, sha512)")
	fs.IntVar(&cfg.preview, "preview", 0, "print the first N bytes of each entry's content")
	fs.BoolVar(&cfg.long, "l", false, "dump every header field of each entry")
	fs.Uint64Var(&cfg.maxSize, "max-size", 0, "reject entries larger than this many bytes (0: no limit)")
	fs.IntVar(&cfg.jobs, "j", 4, "number of archives to read concurrently")
	fs.BoolVar(&cfg.verbose, "v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.archives = fs.Args()
	if len(cfg.archives) == 0 {
		return cfg, errors.New("no archives given")
	}
	stdinCount := 0
	for _, name := range cfg.archives {
		if name == "-" {
			stdinCount++
		}
	}
	if stdinCount > 1 {
		return cfg, errors.New(`standard input ("-") may be given only once`)
	}
	if cfg.digest != "" && !digest.Algorithm(cfg.digest).Available() {
		return cfg, fmt.Errorf("unsupported digest algorithm %q", cfg.digest)
	}
	if cfg.jobs < 1 {
		cfg.jobs = 1
	}
	return cfg, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "ustarls: %v\n", err)
		}
		return 2
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	outputs := make([]bytes.Buffer, len(cfg.archives))
	errs := make([]error, len(cfg.archives))

	var g errgroup.Group
	g.SetLimit(cfg.jobs)
	for i, name := range cfg.archives {
		g.Go(func() error {
			errs[i] = listFile(&outputs[i], name, stdin, &cfg, logger.With("archive", name))
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-archive errors are collected in errs

	status := 0
	for i, name := range cfg.archives {
		if len(cfg.archives) > 1 {
			fmt.Fprintf(stdout, "%s:\n", name)
		}
		_, _ = outputs[i].WriteTo(stdout)
		if errs[i] != nil {
			logger.Error("reading archive failed", "archive", name, "error", errs[i])
			status = 1
		}
	}
	return status
}
