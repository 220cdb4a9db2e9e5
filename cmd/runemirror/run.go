package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/RuneMirror/RuneMirror/internal/agent"
	"github.com/RuneMirror/RuneMirror/internal/config"
	"github.com/RuneMirror/RuneMirror/internal/geo"
	"github.com/RuneMirror/RuneMirror/internal/journal"
	"github.com/RuneMirror/RuneMirror/internal/monitor"
	"github.com/RuneMirror/RuneMirror/internal/node"
	"github.com/RuneMirror/RuneMirror/internal/sim"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func sceneFrom(cfg config.Sim) geo.Scene {
	return geo.Scene{BaseX: cfg.SceneBaseX, BaseY: cfg.SceneBaseY, SizeX: cfg.SceneSize, SizeY: cfg.SceneSize}
}

func runLeader(ctx context.Context, cfg config.Config, f flags) error {
	if !cfg.Leader.Enabled {
		logger.For("leader").Warn("Mirroring disabled, pass -enable or set RUNEMIRROR_LEADER_ENABLED=true")
	}

	loop := sim.NewLoop()
	world := sim.NewWorld("leader", loop, sceneFrom(cfg.Sim))
	l := node.NewLeader(world, cfg.Leader, nil)
	if f.operatorEvery > 0 {
		agent.NewOperator(world, f.operatorEvery, f.seed, nil)
	}

	session := journal.NewSession(l.Capture.SessionID(), journal.RoleLeader)
	l.Capture.AddRecorder(session)

	hub := monitor.NewHub("leader")
	l.Capture.AddRecorder(hub)
	startMonitor(ctx, cfg.Monitor, hub, l.Sources())

	l.Start()
	go reloadOnHangup(ctx, l, f)

	loop.Run(ctx, cfg.Sim.TickInterval)

	l.Stop()
	saveJournal(cfg.Journal, session)
	return nil
}

func runFollower(ctx context.Context, cfg config.Config) error {
	if !cfg.Follower.Enabled {
		logger.For("follower").Warn("Mirroring disabled, pass -enable or set RUNEMIRROR_FOLLOWER_ENABLED=true")
	}

	loop := sim.NewLoop()
	world := sim.NewWorld("follower", loop, sceneFrom(cfg.Sim))
	fl := node.NewFollower(world, cfg.Follower, node.ListenAddr(cfg.Follower.Port), nil)

	session := journal.NewSession(uuid.New(), journal.RoleFollower)
	fl.Observe(session)

	hub := monitor.NewHub("follower")
	fl.Observe(hub)
	startMonitor(ctx, cfg.Monitor, hub, fl.Sources())

	if err := fl.Start(); err != nil {
		return err
	}

	loop.Run(ctx, cfg.Sim.TickInterval)

	fl.Stop()
	saveJournal(cfg.Journal, session)
	return nil
}

func runDemo(ctx context.Context, cfg config.Config, f flags) error {
	d := node.NewDemo(cfg, node.DemoOptions{
		Followers:     f.followers,
		OperatorEvery: f.operatorEvery,
		Seed:          f.seed,
	}, nil)

	sessions := []*journal.Session{journal.NewSession(d.Leader.Capture.SessionID(), journal.RoleLeader)}
	d.Leader.Capture.AddRecorder(sessions[0])

	hub := monitor.NewHub("demo")
	d.Leader.Capture.AddRecorder(hub)
	for _, fl := range d.Followers {
		s := journal.NewSession(uuid.New(), journal.RoleFollower)
		fl.Observe(s)
		fl.Observe(hub)
		sessions = append(sessions, s)
	}

	// В демо статус показывает лидера и первого ведомого.
	src := d.Leader.Sources()
	fsrc := d.Followers[0].Sources()
	src.Listener, src.Receiver = fsrc.Listener, fsrc.Receiver
	startMonitor(ctx, cfg.Monitor, hub, src)

	if err := d.Start(); err != nil {
		return err
	}

	d.Run(ctx)

	d.Stop()
	saveJournal(cfg.Journal, sessions...)
	return nil
}

func startMonitor(ctx context.Context, cfg config.Monitor, hub *monitor.Hub, src monitor.Sources) {
	if cfg.Addr == "" {
		return
	}
	srv := monitor.New(cfg.Addr, hub, src, nil)
	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.For("monitor").WithError(err).Error("Monitor stopped")
		}
	}()
}

// reloadOnHangup по SIGHUP заново собирает конфиг лидера (окружение + флаги)
// и применяет его: включение захвата, цели из файла целей. Без файла цели
// те же, и SIGHUP просто переподключает ведомых.
func reloadOnHangup(ctx context.Context, l *node.Leader, f flags) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	log := logger.For("leader")
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := reloadConfig(f)
			if err != nil {
				log.WithError(err).Warn("Reload failed, keeping current config")
				continue
			}
			if err := l.Reload(cfg.Leader); err != nil {
				log.WithError(err).Warn("Reload finished with errors")
			}
		}
	}
}

func reloadConfig(f flags) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	f.apply(&cfg)
	return cfg, nil
}

// Сохраняем журналы всех сессий
func saveJournal(cfg config.Journal, sessions ...*journal.Session) {
	if cfg.Dir == "" {
		return
	}
	log := logger.For("journal")

	svc, err := journal.NewService(cfg.Dir)
	if err != nil {
		log.WithError(err).Error("Journal directory unavailable")
		return
	}
	for _, s := range sessions {
		path, err := svc.Save(s)
		if err != nil {
			log.WithError(err).WithField("role", s.Role.String()).Error("Failed to save journal")
			continue
		}
		log.WithFields(logrus.Fields{
			"path":    path,
			"entries": s.Len(),
		}).Info("Journal saved")
	}
}
