package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/HW-25/Project-QLX/internal/api"
	"github.com/HW-25/Project-QLX/internal/broker"
	"github.com/HW-25/Project-QLX/internal/config"
	"github.com/HW-25/Project-QLX/internal/core"
	"github.com/HW-25/Project-QLX/internal/execx"
	"github.com/HW-25/Project-QLX/internal/maintenance"
	"github.com/HW-25/Project-QLX/internal/monitor"
	"github.com/HW-25/Project-QLX/internal/power"
	"github.com/HW-25/Project-QLX/internal/store"
	"github.com/HW-25/Project-QLX/internal/telemetry"
)

const version = "2.0.0"

const usage = `qlx - EON power telemetry node + core server

Usage:
  qlx monitor run [--config <path>] [--interval <sec>] [--simulate] [--csv <file>]
  qlx core serve [--config <path>] [--listen <addr>]
  qlx core status [--config <path>] [--remote <url>]
  qlx core restart [--config <path>]
  qlx stats [--csv <file>]
  qlx version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// A .env next to the binary may carry QLX_* overrides; absence is fine.
	_ = godotenv.Load()

	switch os.Args[1] {
	case "-h", "--help", "help":
		fmt.Print(usage)
	case "monitor":
		handleMonitor(os.Args[2:])
	case "core":
		handleCore(os.Args[2:])
	case "stats":
		statsCmd(os.Args[2:])
	case "version":
		fmt.Printf("qlx %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func handleMonitor(args []string) {
	if len(args) == 0 || args[0] != "run" {
		fmt.Fprint(os.Stderr, "monitor subcommand required (run)\n")
		os.Exit(2)
	}
	monitorRun(args[1:])
}

func monitorRun(args []string) {
	fs := flag.NewFlagSet("monitor run", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to config.json")
	interval := fs.Float64("interval", 0, "sampling interval override in seconds")
	simulate := fs.Bool("simulate", false, "force load-based simulation even on Apple Silicon")
	csvPath := fs.String("csv", "", "append per-tick telemetry to this CSV file")
	_ = fs.Parse(args)

	cfg := config.Load(*configPath)
	if *interval > 0 {
		cfg.SampleIntervalSec = *interval
	}
	if *csvPath != "" {
		cfg.TelemetryCSV = *csvPath
	}
	fatal(config.Validate(cfg))

	runner := execx.NewOSRunner(nil, nil)
	var sampler power.Sampler
	if *simulate {
		sampler = power.NewSimulatedSampler(runner)
	} else {
		sampler = power.Detect(runner)
	}

	// The shipped placeholder URL means "no core yet": run offline.
	var client *api.Client
	if cfg.UplinkURL != "" && cfg.UplinkURL != config.DefaultUplinkURL {
		client = api.NewClient(cfg.UplinkURL)
	}

	var pub *broker.Publisher
	if cfg.BrokerURL != "" {
		p, err := broker.Connect(cfg.BrokerURL, cfg.NodeID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] %v; continuing without broker\n", err)
		} else {
			pub = p
			defer pub.Close()
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	m := monitor.New(cfg, monitor.Options{
		Sampler:   sampler,
		Client:    client,
		Publisher: pub,
		Out:       os.Stdout,
	})
	if err := m.Run(ctx); err != nil {
		if errors.Is(err, power.ErrPrivilege) {
			fmt.Fprintf(os.Stderr, "\n[ERROR] %v\n", err)
			os.Exit(1)
		}
		fatal(err)
	}
}

func handleCore(args []string) {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, "core subcommand required (serve|status|restart)\n")
		os.Exit(2)
	}
	switch args[0] {
	case "serve":
		coreServe(args[1:])
	case "status":
		coreStatus(args[1:])
	case "restart":
		coreRestart(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown core subcommand %q\n", args[0])
		os.Exit(2)
	}
}

func coreServe(args []string) {
	fs := flag.NewFlagSet("core serve", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to config.json")
	listen := fs.String("listen", "", "listen address override")
	_ = fs.Parse(args)

	coreCfg := loadCoreConfig(*configPath)
	if *listen != "" {
		coreCfg.Listen = *listen
	}

	if err := maintenance.TrackPID(coreCfg); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] pid file not written: %v\n", err)
	}

	srv, err := core.NewServer(coreCfg)
	fatal(err)
	fatal(srv.ListenAndServe())
}

func coreStatus(args []string) {
	fs := flag.NewFlagSet("core status", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to config.json")
	remote := fs.String("remote", "", "query a running core over HTTP instead of reading the registry")
	_ = fs.Parse(args)

	if *remote != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		resp, err := api.NewClient(*remote).Nodes(ctx)
		fatal(err)
		if len(resp.Nodes) == 0 {
			fmt.Println("no registered nodes")
			return
		}
		fmt.Printf("%-14s  %10s  %14s  %-20s  %-9s\n", "NODE_ID", "AVG_MW", "VALOR", "LAST_SEEN", "STATUS")
		for _, n := range resp.Nodes {
			lastSeen := time.UnixMilli(int64(n.LastSeen * 1000)).UTC().Format(time.RFC3339)
			fmt.Printf("%-14s  %10.0f  %14.8f  %-20s  %-9s\n", n.UUID, n.AvgMW, n.TotalValor, lastSeen, n.Status)
		}
		return
	}

	coreCfg := loadCoreConfig(*configPath)
	reg, err := store.LoadRegistry(filepath.Join(coreCfg.DataDir, "registry.yaml"))
	fatal(err)
	if len(reg.Nodes) == 0 {
		fmt.Println("no registered nodes")
		return
	}
	fmt.Printf("%-14s  %10s  %14s  %-20s\n", "NODE_ID", "AVG_MW", "VALOR", "LAST_SEEN")
	for _, n := range reg.Nodes {
		fmt.Printf("%-14s  %10.0f  %14.8f  %-20s\n", n.UUID, n.AvgPowerMW, n.Valor, n.LastSeenAt.UTC().Format(time.RFC3339))
	}
}

func coreRestart(args []string) {
	fs := flag.NewFlagSet("core restart", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to config.json")
	_ = fs.Parse(args)

	exe, err := os.Executable()
	fatal(err)

	fatal(maintenance.Restart(maintenance.Options{
		Core:       loadCoreConfig(*configPath),
		ConfigPath: *configPath,
		Executable: exe,
		Out:        os.Stdout,
	}))
}

func statsCmd(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	csvPath := fs.String("csv", "telemetry.csv", "telemetry CSV file to summarize")
	_ = fs.Parse(args)

	samples, err := telemetry.ReadCSV(*csvPath)
	fatal(err)
	if len(samples) == 0 {
		fmt.Println("no samples")
		return
	}

	var sum, max float64
	min := samples[0].PowerMW
	for _, s := range samples {
		sum += s.PowerMW
		if s.PowerMW < min {
			min = s.PowerMW
		}
		if s.PowerMW > max {
			max = s.PowerMW
		}
	}
	last := samples[len(samples)-1]

	fmt.Printf("samples: %d (%s .. %s)\n", len(samples),
		samples[0].Timestamp.Format(time.RFC3339), last.Timestamp.Format(time.RFC3339))
	fmt.Printf("power:   avg=%.0fmW min=%.0fmW max=%.0fmW\n", sum/float64(len(samples)), min, max)
	fmt.Printf("energy:  %.1fJ\n", last.EnergyMWs/1000)
	fmt.Printf("yield:   %.8f QLX\n", last.Valor)
}

// loadCoreConfig loads config.json and guarantees a populated core section.
func loadCoreConfig(path string) config.CoreConfig {
	cfg := config.Load(path)
	if cfg.Core == nil {
		cfg.Core = &config.CoreConfig{}
		config.ApplyDefaults(&cfg)
	}
	return *cfg.Core
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()
	return ctx, cancel
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
