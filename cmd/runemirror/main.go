package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RuneMirror/RuneMirror/internal/config"
	"github.com/RuneMirror/RuneMirror/internal/version"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
)

func init() {
	logger.Init()
}

type flags struct {
	port          int
	targets       string
	targetsFile   string
	enable        bool
	monitorAddr   string
	journalDir    string
	followers     int
	operatorEvery int
	seed          int64
}

func main() {
	// 1. Парсинг флагов
	var f flags
	var showVersion bool
	flag.IntVar(&f.port, "port", 0, "Follower listen port (overrides RUNEMIRROR_FOLLOWER_PORT)")
	flag.StringVar(&f.targets, "targets", "", "Leader follower targets host:port,... (overrides RUNEMIRROR_LEADER_TARGETS)")
	flag.StringVar(&f.targetsFile, "targets-file", "", "Leader targets file, re-read on SIGHUP (overrides RUNEMIRROR_LEADER_TARGETS_FILE)")
	flag.BoolVar(&f.enable, "enable", false, "Enable mirroring on this side (same as RUNEMIRROR_LEADER_ENABLED / RUNEMIRROR_FOLLOWER_ENABLED)")
	flag.StringVar(&f.monitorAddr, "monitor", "", "Monitor HTTP address, e.g. :8080 (overrides RUNEMIRROR_MONITOR_ADDR)")
	flag.StringVar(&f.journalDir, "journal", "", "Directory for session journals (overrides RUNEMIRROR_JOURNAL_DIR)")
	flag.IntVar(&f.followers, "followers", 2, "Demo: number of followers")
	flag.IntVar(&f.operatorEvery, "operator-every", 3, "Scripted operator acts every N ticks (0 disables)")
	flag.Int64Var(&f.seed, "seed", 1, "Scripted operator seed")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	info := version.Info(protocol.Version)
	if showVersion {
		fmt.Println(info.String())
		return
	}
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	logger.Log.Info("Starting RuneMirror...")
	logger.Log.Info(info.String())

	// 2. Конфигурация из окружения, флаги поверх
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load config")
	}
	f.apply(&cfg)

	// Graceful Shutdown
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Log.Info("Shutting down...")
		cancel()
	}()

	// 3. Запуск режима
	switch mode := flag.Arg(0); mode {
	case "leader":
		err = runLeader(ctx, cfg, f)
	case "follower":
		err = runFollower(ctx, cfg)
	case "demo":
		err = runDemo(ctx, cfg, f)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Log.WithError(err).Fatal("RuneMirror stopped with error")
	}

	logger.Log.Info("Done.")
}

func (f flags) apply(cfg *config.Config) {
	if f.port != 0 {
		cfg.Follower.Port = f.port
	}
	if f.targets != "" {
		cfg.Leader.Targets = f.targets
	}
	if f.targetsFile != "" {
		cfg.Leader.TargetsFile = f.targetsFile
	}
	// Флаг только включает: выключенное по умолчанию остаётся за конфигом.
	if f.enable {
		cfg.Leader.Enabled = true
		cfg.Follower.Enabled = true
	}
	if f.monitorAddr != "" {
		cfg.Monitor.Addr = f.monitorAddr
	}
	if f.journalDir != "" {
		cfg.Journal.Dir = f.journalDir
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `RuneMirror - зеркалирование действий лидера на ведомых

Usage:
  runemirror [flags] leader     - захват ввода и рассылка ведомым
  runemirror [flags] follower   - приём и исполнение на своём клиенте
  runemirror [flags] demo       - лидер и ведомые в одном процессе

Flags:
`)
	flag.PrintDefaults()
}
