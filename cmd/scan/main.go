package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/noah-isme/checkout-pricing/internal/checkout"
	"github.com/noah-isme/checkout-pricing/internal/obs"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run scans items given as arguments, or one per line from stdin when none
// are given, printing the running total after each scan.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		catalogPath = fs.String("catalog", os.Getenv("CATALOG_PATH"), "path to a YAML or JSON catalog file")
		quiet       = fs.Bool("quiet", false, "print only the final total")
		logLevel    = fs.String("log-level", "warn", "log level")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	logger := obs.NewLoggerTo(stderr, "console", *logLevel)

	if strings.TrimSpace(*catalogPath) == "" {
		logger.Error().Msg("catalog path is required (-catalog or CATALOG_PATH)")
		return 2
	}
	catalog, err := pricing.LoadFile(*catalogPath)
	if err != nil {
		logger.Error().Err(err).Str("path", *catalogPath).Msg("load catalog")
		return 1
	}
	logger.Debug().Int("rules", catalog.Len()).Msg("catalog loaded")

	co := checkout.New(catalog)
	scan := func(name string) error {
		if err := co.Scan(name); err != nil {
			return err
		}
		if !*quiet {
			fmt.Fprintf(stdout, "%-24s %d\n", name, co.Total())
		}
		return nil
	}

	if fs.NArg() > 0 {
		err = scanAll(fs.Args(), scan)
	} else {
		err = scanLines(stdin, scan)
	}
	if err != nil {
		var unknown *checkout.UnknownItemError
		if errors.As(err, &unknown) {
			logger.Error().Str("item", unknown.Name).Int64("total", co.Total()).Msg(err.Error())
		} else {
			logger.Error().Err(err).Msg("scan input")
		}
		fmt.Fprintf(stdout, "total %d\n", co.Total())
		return 1
	}
	fmt.Fprintf(stdout, "total %d\n", co.Total())
	return 0
}

func scanAll(names []string, scan func(string) error) error {
	for _, name := range names {
		if err := scan(name); err != nil {
			return err
		}
	}
	return nil
}

func scanLines(r io.Reader, scan func(string) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		if err := scan(name); err != nil {
			return err
		}
	}
	return scanner.Err()
}
