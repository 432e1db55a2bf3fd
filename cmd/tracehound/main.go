// Copyright 2025 The Tracehound Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command tracehound scans a username, email address, phone number or
// domain for presence across public internet services.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracehound/tracehound/pkg/adapter"
	"github.com/tracehound/tracehound/pkg/identifier"
	"github.com/tracehound/tracehound/pkg/license"
	"github.com/tracehound/tracehound/pkg/probe"
	"github.com/tracehound/tracehound/pkg/render"
	"github.com/tracehound/tracehound/pkg/scan"
)

// Exit codes form the CLI contract with wrapping scripts.
const (
	exitOK         = 0
	exitValidation = 2
	exitCancelled  = 3
	exitDeadline   = 4
	exitInternal   = 5
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	a := kingpin.New("tracehound", "OSINT reconnaissance engine")
	a.HelpFlag.Short('h')

	logLevel := a.Flag("log.level", "Log level: debug, info, warn, error.").
		Default("info").Enum("debug", "info", "warn", "error")
	logFormat := a.Flag("log.format", "Log format: logfmt or json.").
		Default("logfmt").Enum("logfmt", "json")

	mode := a.Flag("mode", "Probe subset: quick or deep.").
		Default("quick").Enum("quick", "deep")
	output := a.Flag("output", "Render form: console, json, html or all.").
		Default("console").Enum("console", "json", "html", "all")
	outputDir := a.Flag("output.dir", "Directory for json/html report files.").
		Default(".").String()
	timeout := a.Flag("timeout", "Per-request deadline in seconds.").
		Default("15").Int()
	scanTimeout := a.Flag("scan-timeout", "Whole-scan deadline in seconds; 0 uses the mode default.").
		Default("0").Int()
	concurrency := a.Flag("concurrency", "Global in-flight request cap.").
		Default("50").Int()
	hostInterval := a.Flag("host-interval", "Default minimum spacing between requests to one host.").
		Default("100ms").Duration()
	excludeCategories := a.Flag("exclude-category", "Category to exclude; repeatable.").Strings()
	noNSFW := a.Flag("no-nsfw", "Exclude NSFW probes.").Bool()

	registryFile := a.Flag("registry.file", "Optional registry overlay YAML file.").String()
	metricsAddr := a.Flag("metrics.listen-address", "Address to expose Prometheus metrics on; empty disables.").String()

	licenseURL := a.Flag("license.url", "Licence backend base URL; empty runs unlicensed.").String()
	licenseKey := a.Flag("license.key", "Licence key.").String()
	breachKey := a.Flag("adapter.breach-key", "API key for the breach lookup.").String()
	carrierKey := a.Flag("adapter.carrier-key", "API key for the phone carrier lookup.").String()

	type command struct {
		clause *kingpin.CmdClause
		target *string
		kind   identifier.Kind
	}
	commands := make([]command, 0, 4)
	for _, c := range []struct {
		kind identifier.Kind
		help string
	}{
		{identifier.KindUsername, "Scan a username across platforms."},
		{identifier.KindEmail, "Scan an email address across platforms."},
		{identifier.KindPhone, "Scan an E.164 phone number."},
		{identifier.KindDomain, "Scan a domain."},
	} {
		clause := a.Command(string(c.kind), c.help)
		commands = append(commands, command{
			clause: clause,
			target: clause.Arg("target", "The identifier to scan.").Required().String(),
			kind:   c.kind,
		})
	}

	parsed := kingpin.MustParse(a.Parse(os.Args[1:]))

	logger := newLogger(*logFormat, *logLevel)

	var (
		kind   identifier.Kind
		target string
	)
	for _, c := range commands {
		if parsed == c.clause.FullCommand() {
			kind = c.kind
			target = *c.target
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	scan.RegisterMetrics(reg)

	var overlay *probe.Overlay
	if *registryFile != "" {
		var err error
		overlay, err = probe.LoadOverlayFile(*registryFile)
		if err != nil {
			level.Error(logger).Log("msg", "loading registry overlay failed", "err", err)
			return exitInternal
		}
	}
	registry, err := probe.NewRegistryWithOverlay(overlay, probe.Builtins()...)
	if err != nil {
		level.Error(logger).Log("msg", "building probe registry failed", "err", err)
		return exitInternal
	}

	var gateway license.Gateway = license.AllowAll{}
	if *licenseURL != "" {
		gateway = license.NewClient(logger, cleanhttp.DefaultClient(), *licenseURL, *licenseKey)
	}

	adapters := adapter.NewSet(logger,
		adapter.NewBreach("", *breachKey),
		adapter.NewCarrier("", *carrierKey),
		adapter.NewGeoIP(""),
		adapter.NewDNS(""),
		adapter.NewWhois(),
		adapter.NewTLSCert(),
		adapter.NewHeaders(),
	)

	cfg := scan.Config{
		Mode:           probe.Mode(*mode),
		Concurrency:    *concurrency,
		RequestTimeout: time.Duration(*timeout) * time.Second,
		HostInterval:   *hostInterval,
		ScanTimeout:    time.Duration(*scanTimeout) * time.Second,
		Select: probe.SelectOptions{
			IncludeNSFW: !*noNSFW,
		},
	}
	for _, c := range *excludeCategories {
		cfg.Select.ExcludeCategories = append(cfg.Select.ExcludeCategories, probe.Category(c))
	}
	if overlay != nil {
		cfg.HostIntervalOverrides = overlay.Hosts
	}

	scanner := scan.NewScanner(logger, registry, gateway, adapters, cfg)

	var (
		report  *scan.Report
		scanErr error
	)
	var g run.Group
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			report, scanErr = runScan(ctx, scanner, kind, target)
			return nil
		}, func(error) {
			cancel()
		})
	}
	{
		term := make(chan os.Signal, 1)
		cancel := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)
		g.Add(func() error {
			select {
			case <-term:
				level.Info(logger).Log("msg", "received signal, cancelling scan")
			case <-cancel:
			}
			return nil
		}, func(error) {
			close(cancel)
		})
	}
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		server := &http.Server{Addr: *metricsAddr, Handler: mux}
		g.Add(func() error {
			level.Info(logger).Log("msg", "serving metrics", "listen", *metricsAddr)
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		})
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "running scan group failed", "err", err)
		return exitInternal
	}

	if report != nil {
		if err := emit(report, *output, *outputDir); err != nil {
			level.Error(logger).Log("msg", "rendering report failed", "err", err)
			return exitInternal
		}
	}
	return exitCode(logger, scanErr)
}

func runScan(ctx context.Context, scanner *scan.Scanner, kind identifier.Kind, target string) (*scan.Report, error) {
	switch kind {
	case identifier.KindUsername:
		return scanner.ScanUsername(ctx, target)
	case identifier.KindEmail:
		return scanner.ScanEmail(ctx, target)
	case identifier.KindPhone:
		return scanner.ScanPhone(ctx, target)
	case identifier.KindDomain:
		return scanner.ScanDomain(ctx, target)
	}
	return nil, errors.Errorf("unknown identifier kind %q", kind)
}

func exitCode(logger log.Logger, err error) int {
	if err == nil {
		return exitOK
	}
	var verr *identifier.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(os.Stderr, verr.Error())
		return exitValidation
	}
	var derr *license.DeniedError
	if errors.As(err, &derr) {
		fmt.Fprintln(os.Stderr, derr.Error())
		return exitValidation
	}
	switch {
	case errors.Is(err, scan.ErrScanCancelled):
		level.Warn(logger).Log("msg", "scan cancelled, report is partial")
		return exitCancelled
	case errors.Is(err, scan.ErrScanDeadline):
		level.Warn(logger).Log("msg", "scan deadline expired, report is partial")
		return exitDeadline
	}
	level.Error(logger).Log("msg", "scan failed", "err", err)
	return exitInternal
}

func emit(report *scan.Report, output, dir string) error {
	console := output == "console" || output == "all"
	jsonOut := output == "json" || output == "all"
	htmlOut := output == "html" || output == "all"

	if console {
		if err := render.Console(os.Stdout, report); err != nil {
			return err
		}
	}
	stamp := report.StartedAt.Format("20060102-150405")
	base := fmt.Sprintf("tracehound_%s_%s_%s", report.Target.Kind, sanitize(report.Target.Value), stamp)
	if jsonOut {
		if err := writeFile(filepath.Join(dir, base+".json"), report, render.JSON); err != nil {
			return err
		}
	}
	if htmlOut {
		if err := writeFile(filepath.Join(dir, base+".html"), report, render.HTML); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, report *scan.Report, fn func(w io.Writer, r *scan.Report) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := fn(f, report); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

func sanitize(v string) string {
	out := make([]rune, 0, len(v))
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func newLogger(format, lvl string) log.Logger {
	var logger log.Logger
	if format == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}
	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	logger = level.NewFilter(logger, opt)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	return logger
}
