package node

import (
	"context"
	"fmt"
	"strings"

	"github.com/RuneMirror/RuneMirror/internal/agent"
	"github.com/RuneMirror/RuneMirror/internal/config"
	"github.com/RuneMirror/RuneMirror/internal/geo"
	"github.com/RuneMirror/RuneMirror/internal/sim"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/sirupsen/logrus"
)

// baseShift - насколько сдвинута база сцены каждого следующего ведомого.
const baseShift = 8

// DemoOptions - параметры демо-стенда.
type DemoOptions struct {
	Followers int
	// OperatorEvery 0 - без оператора, ходы делает вызывающий.
	OperatorEvery int
	Seed          int64
}

// Demo - лидер и N ведомых в одном процессе, связанные через loopback TCP.
// У всех общий цикл, но разные базы сцены: аватары стоят в одной мировой точке,
// а сценовые координаты у каждого свои.
type Demo struct {
	Loop      *sim.Loop
	Leader    *Leader
	Followers []*Follower
	Operator  *agent.Operator

	cfg config.Config
	log *logrus.Entry
}

func NewDemo(cfg config.Config, opts DemoOptions, log *logrus.Entry) *Demo {
	log = logger.OrDefault(log, "demo")
	if opts.Followers < 1 {
		opts.Followers = 1
	}

	loop := sim.NewLoop()
	scene := geo.Scene{
		BaseX: cfg.Sim.SceneBaseX,
		BaseY: cfg.Sim.SceneBaseY,
		SizeX: cfg.Sim.SceneSize,
		SizeY: cfg.Sim.SceneSize,
	}

	lw := sim.NewWorld("leader", loop, scene)
	home, _ := lw.AvatarWorldPosition()

	leaderCfg := cfg.Leader
	leaderCfg.Enabled = true
	leaderCfg.Targets = ""

	d := &Demo{
		Loop:   loop,
		Leader: NewLeader(lw, leaderCfg, log),
		cfg:    cfg,
		log:    log,
	}

	followerCfg := cfg.Follower
	followerCfg.Enabled = true
	for i := 0; i < opts.Followers; i++ {
		fs := scene
		fs.BaseX += baseShift * (i + 1)
		fs.BaseY -= baseShift * (i + 1)

		fw := sim.NewWorld(fmt.Sprintf("follower-%d", i+1), loop, fs)
		if p, ok := fs.FromWorld(home); ok {
			fw.Teleport(p)
		}
		d.Followers = append(d.Followers, NewFollower(fw, followerCfg, "127.0.0.1:0", log))
	}

	if opts.OperatorEvery > 0 {
		d.Operator = agent.NewOperator(lw, opts.OperatorEvery, opts.Seed, nil)
	}
	return d
}

// Start поднимает ведомых на свободных портах и подключает к ним лидера.
func (d *Demo) Start() error {
	addrs := make([]string, 0, len(d.Followers))
	for _, f := range d.Followers {
		if err := f.Start(); err != nil {
			d.Stop()
			return err
		}
		addrs = append(addrs, f.Listener.Addr().String())
	}

	if err := d.Leader.Retarget(strings.Join(addrs, ",")); err != nil {
		d.Stop()
		return err
	}
	d.log.WithFields(logrus.Fields{
		"followers": len(d.Followers),
		"live":      len(d.Leader.Broadcaster.Live()),
	}).Info("Demo started")
	return nil
}

// Run крутит общий цикл до отмены ctx.
func (d *Demo) Run(ctx context.Context) {
	d.Loop.Run(ctx, d.cfg.Sim.TickInterval)
}

func (d *Demo) Stop() {
	d.Leader.Stop()
	for _, f := range d.Followers {
		f.Stop()
	}
}
