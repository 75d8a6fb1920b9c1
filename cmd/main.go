// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"regform-scan/internal/config"
	"regform-scan/internal/core"
	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
	"regform-scan/internal/formatters"
	_ "regform-scan/internal/formatters/json"
	_ "regform-scan/internal/formatters/text"
	_ "regform-scan/internal/formatters/yaml"
	"regform-scan/internal/help"
	"regform-scan/internal/host"
	"regform-scan/internal/observability"
	"regform-scan/internal/paths"
	"regform-scan/internal/readiness"
	"regform-scan/internal/version"
	"regform-scan/internal/web"
)

// configFlags holds command line flag values
type configFlags struct {
	outputFormat     string
	confidenceLevels string
	region           string
	verbose          bool
	debug            bool
	noColor          bool
}

// finalConfiguration holds resolved configuration values
type finalConfiguration struct {
	format           string
	confidenceLevels string
	region           string
	verbose          bool
	debug            bool
	noColor          bool
}

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string) *config.Config {
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg = config.Default()
	}
	return cfg
}

// resolveConfiguration resolves final values from the profiled config and
// command line flags; flags win only when set explicitly
func resolveConfiguration(cfg *config.Config, flags *configFlags) *finalConfiguration {
	final := &finalConfiguration{
		format:           "text",
		confidenceLevels: "all",
	}

	if cfg.Defaults.Format != "" {
		final.format = cfg.Defaults.Format
	}
	if isFlagSet("format") && flags.outputFormat != "" {
		final.format = flags.outputFormat
	}

	if cfg.Defaults.ConfidenceLevels != "" {
		final.confidenceLevels = cfg.Defaults.ConfidenceLevels
	}
	if isFlagSet("confidence") && flags.confidenceLevels != "" {
		final.confidenceLevels = flags.confidenceLevels
	}

	final.region = cfg.Defaults.Region
	if isFlagSet("region") {
		final.region = flags.region
	}

	final.debug = cfg.Defaults.Debug
	if isFlagSet("debug") {
		final.debug = flags.debug
	}

	final.noColor = cfg.Defaults.NoColor
	if isFlagSet("no-color") {
		final.noColor = flags.noColor
	}

	final.verbose = flags.verbose
	return final
}

// handleProfiles lists profiles when asked and returns the named one
func handleProfiles(cfg *config.Config, listProfiles bool, profileName string) *config.Profile {
	if listProfiles {
		profiles := cfg.ListProfiles()
		if len(profiles) == 0 {
			fmt.Println("No profiles defined in configuration file.")
		} else {
			fmt.Println("Available profiles:")
			for _, name := range profiles {
				profile := cfg.GetProfile(name)
				if profile != nil && profile.Description != "" {
					fmt.Printf("  - %s: %s\n", name, profile.Description)
				} else {
					fmt.Printf("  - %s\n", name)
				}
			}
		}
		os.Exit(0)
	}

	if profileName == "" {
		return nil
	}
	profile := cfg.GetProfile(profileName)
	if profile == nil {
		fmt.Fprintf(os.Stderr, "Error: Profile '%s' not found (available: %s)\n",
			profileName, strings.Join(cfg.ListProfiles(), ", "))
		os.Exit(1)
	}
	return profile
}

func main() {
	inputFile := flag.String("file", "", "HTML page to scan")
	snapshotFile := flag.String("snapshot", "", "JSON element tree captured from a live page")
	pageURL := flag.String("url", "", "Open the page in headless Chrome and scan it")
	watch := flag.Bool("watch", false, "With --url, rescan whenever the page changes")
	address := flag.String("address", "", "Page address used for region identification")
	region := flag.String("region", "", "Force a jurisdiction code and skip identification")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	listProfiles := flag.Bool("list-profiles", false, "List available profiles")
	dataDir := flag.String("data-dir", "", "Directory holding common.yaml and region override documents")
	outputFormat := flag.String("format", "", "Output format: text, json, yaml (default: text)")
	confidenceLevels := flag.String("confidence", "", "Confidence levels to display: high, medium, low, or combinations like 'high,medium'")
	verbose := flag.Bool("verbose", false, "Show matched-rule traces and diagnostics")
	debug := flag.Bool("debug", false, "Trace each pass stage on stderr")
	outputFile := flag.String("output", "", "Path to output file (if not specified, output to stdout)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	showHelp := flag.Bool("help", false, "Show help information")
	showVersion := flag.Bool("version", false, "Show version information")
	webMode := flag.Bool("web", false, "Serve the scan API instead of scanning once")
	webPort := flag.String("port", "", "Port for the scan API (default: 8080)")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return
	}

	cfg := loadConfiguration(*configFile)
	if isFlagSet("data-dir") {
		cfg.Knowledge.DataDir = paths.NormalizePath(*dataDir)
	}
	cfg = cfg.WithProfile(handleProfiles(cfg, *listProfiles, *profileName))

	final := resolveConfiguration(cfg, &configFlags{
		outputFormat:     *outputFormat,
		confidenceLevels: *confidenceLevels,
		region:           *region,
		verbose:          *verbose,
		debug:            *debug,
		noColor:          *noColor,
	})
	cfg.Defaults.Region = final.region

	// Colors only make sense on an interactive terminal
	if !isTerminal(os.Stdout) || os.Getenv("NO_COLOR") != "" {
		final.noColor = true
	}
	if final.noColor {
		color.NoColor = true
	}

	obs := observability.New(os.Stderr, false, final.debug)
	if final.debug {
		obs.LogDetail("main", fmt.Sprintf("Command line arguments: %v", os.Args))
	}

	if *showHelp {
		table := core.BuildStore(cfg).EffectivePatterns(final.region)
		h := help.NewSystem(os.Stdout, table, final.noColor)
		switch topic := flag.Arg(0); {
		case topic == "":
			h.ShowGeneralHelp()
		case strings.EqualFold(topic, "categories"):
			h.ShowCategoriesHelp()
		default:
			if !h.ShowCategoryHelp(topic) {
				os.Exit(1)
			}
		}
		return
	}

	if _, ok := formatters.Get(final.format); !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported format '%s' (available: %s)\n",
			final.format, strings.Join(formatters.List(), ", "))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *webMode {
		if err := runWeb(ctx, cfg, obs, *webPort); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sources := 0
	for _, s := range []string{*inputFile, *snapshotFile, *pageURL} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --file, --snapshot or --url is required")
		fmt.Fprintln(os.Stderr, "Use --help for usage information")
		os.Exit(1)
	}

	out := &reporter{
		format:     final.format,
		outputFile: *outputFile,
		options: formatters.FormatterOptions{
			ConfidenceLevel: core.ParseConfidenceLevels(final.confidenceLevels),
			Verbose:         final.verbose,
			NoColor:         final.noColor,
		},
		evaluator: readiness.NewEvaluator(cfg.Readiness),
	}

	var err error
	if *pageURL != "" {
		err = runLive(ctx, cfg, obs, *pageURL, *watch, out)
	} else {
		err = runStatic(ctx, cfg, obs, *inputFile, *snapshotFile, *address, out)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runStatic scans a saved page or snapshot once
func runStatic(ctx context.Context, cfg *config.Config, obs *observability.StandardObserver, htmlPath, snapshotPath, address string, out *reporter) error {
	doc, err := loadDocument(htmlPath, snapshotPath, address)
	if err != nil {
		return err
	}
	scanner := core.NewScanner(core.BuildStore(cfg), nil, core.BuildScannerOptions(cfg, obs, nil))
	defer scanner.Close()

	return out.write(scanner.Scan(ctx, doc))
}

// runLive opens the page in a browser session and scans it, optionally
// rescanning on every settled burst of page mutations until interrupted
func runLive(ctx context.Context, cfg *config.Config, obs *observability.StandardObserver, url string, watch bool, out *reporter) error {
	session, err := host.NewSession(host.Options{
		Headless:          cfg.Host.Headless,
		NavigationTimeout: cfg.Host.NavigationTimeout,
		SettleDelay:       cfg.Host.SettleDelay,
		UserAgent:         cfg.Host.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}

	scanner := core.NewScanner(core.BuildStore(cfg), session, core.BuildScannerOptions(cfg, obs, session))
	defer scanner.Close()

	report, err := scanner.Rescan(ctx)
	if err != nil {
		return err
	}
	if err := out.write(report); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	go func() {
		if err := session.Watch(ctx, scanner.Trigger); err != nil && !errors.Is(err, context.Canceled) {
			obs.LogDetail("main", fmt.Sprintf("watch stopped: %v", err))
		}
	}()

	printed := scanner.Stats().Passes
	interval := cfg.Scanner.Debounce
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if passes := scanner.Stats().Passes; passes != printed {
			printed = passes
			if err := out.write(scanner.LastReport()); err != nil {
				return err
			}
		}
	}
}

// runWeb serves the scan API until the context is cancelled
func runWeb(ctx context.Context, cfg *config.Config, obs *observability.StandardObserver, port string) error {
	if port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid port %q: must be 1-65535", port)
		}
		cfg.Web.Port = p
	}

	server := web.NewServer(cfg, nil, obs)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	}
}

// loadDocument reads the element tree from an HTML page or a JSON snapshot
func loadDocument(htmlPath, snapshotPath, address string) (*dom.Document, error) {
	path := htmlPath
	if path == "" {
		path = snapshotPath
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if htmlPath != "" {
		return dom.ParseHTML(f, address)
	}
	doc, err := dom.DecodeSnapshot(f)
	if err != nil {
		return nil, err
	}
	if address != "" {
		doc.Address = address
	}
	return doc, nil
}

// reporter renders reports to stdout or the output file
type reporter struct {
	format     string
	outputFile string
	options    formatters.FormatterOptions
	evaluator  *readiness.Evaluator
}

func (r *reporter) write(report *detector.Report) error {
	if report == nil {
		return nil
	}
	opts := r.options
	opts.Gates = r.evaluator.Gates(&report.Summary)

	result, err := formatters.Export(r.format, report, opts)
	if err != nil {
		return err
	}

	if r.outputFile == "" {
		fmt.Println(result)
		return nil
	}

	cleanOutputPath := filepath.Clean(r.outputFile)
	if strings.Contains(r.outputFile, "..") {
		return fmt.Errorf("path traversal not allowed in output path: %s", r.outputFile)
	}
	if err := os.MkdirAll(filepath.Dir(cleanOutputPath), 0700); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	if err := os.WriteFile(cleanOutputPath, []byte(result), 0600); err != nil {
		return fmt.Errorf("error writing to output file: %w", err)
	}
	return nil
}

// isFlagSet reports whether the named flag was given on the command line
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isTerminal checks if the file descriptor is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
