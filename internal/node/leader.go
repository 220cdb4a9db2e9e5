package node

import (
	"sync"

	"github.com/RuneMirror/RuneMirror/internal/config"
	"github.com/RuneMirror/RuneMirror/internal/leader"
	"github.com/RuneMirror/RuneMirror/internal/sim"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Leader - сторона, которая захватывает ввод мира и рассылает его ведомым.
type Leader struct {
	World       *sim.World
	Capture     *leader.Capture
	Broadcaster *leader.Broadcaster

	mu      sync.Mutex
	targets []config.Target
	log     *logrus.Entry
}

// NewLeader подключает захват к вводу мира. Битые цели пропускаются с предупреждением.
func NewLeader(world *sim.World, cfg config.Leader, log *logrus.Entry) *Leader {
	log = logger.OrDefault(log, "leader").WithField("world", world.Name)

	raw, err := cfg.ResolveTargets()
	if err != nil {
		log.WithError(err).Warn("Targets file unavailable, using inline targets")
		raw = cfg.Targets
	}
	targets, err := config.ParseTargets(raw)
	if err != nil {
		log.WithError(err).Warn("Skipping malformed follower targets")
	}

	opts := leader.OptionsFromConfig(cfg)
	opts.Log = log
	b := leader.NewBroadcaster(opts)

	c := leader.NewCapture(world, world.Loop(), b, log)
	c.SetEnabled(cfg.Enabled)

	world.OnAction(c.OnAction)
	world.OnKey(c.OnKey)

	return &Leader{
		World:       world,
		Capture:     c,
		Broadcaster: b,
		targets:     targets,
		log:         log,
	}
}

// Targets - разобранные цели из конфигурации.
func (l *Leader) Targets() []config.Target {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]config.Target(nil), l.targets...)
}

// Start подключается к ведомым.
func (l *Leader) Start() {
	l.Broadcaster.SetTargets(l.Targets())
	l.log.WithFields(logrus.Fields{
		"session": l.Capture.SessionID().String(),
		"enabled": l.Capture.Enabled(),
	}).Info("Leader started")
}

// Retarget заменяет набор ведомых целиком (перечитанная конфигурация).
func (l *Leader) Retarget(raw string) error {
	targets, err := config.ParseTargets(raw)
	l.mu.Lock()
	l.targets = targets
	l.mu.Unlock()
	l.Broadcaster.SetTargets(targets)
	return err
}

// Reload применяет перечитанную конфигурацию: включение захвата и набор целей.
// Цели переподключаются даже без изменений. Если файл целей не читается,
// текущие цели остаются.
func (l *Leader) Reload(cfg config.Leader) error {
	l.Capture.SetEnabled(cfg.Enabled)

	raw, err := cfg.ResolveTargets()
	if err != nil {
		return err
	}
	err = l.Retarget(raw)
	l.log.WithFields(logrus.Fields{
		"enabled": cfg.Enabled,
		"targets": len(l.Targets()),
	}).Info("Leader config reloaded")
	return err
}

func (l *Leader) Stop() {
	l.Broadcaster.Close()
	l.log.WithField("seq", l.Capture.Seq()).Info("Leader stopped")
}
