package node

import (
	"fmt"
	"net"
	"strconv"

	"github.com/RuneMirror/RuneMirror/internal/config"
	"github.com/RuneMirror/RuneMirror/internal/follower"
	"github.com/RuneMirror/RuneMirror/internal/sim"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Follower - сторона, которая принимает сообщения и исполняет их в своём мире.
type Follower struct {
	World    *sim.World
	Listener *follower.Listener
	Receiver *follower.Receiver
	Executor *follower.Executor

	log *logrus.Entry
}

// ListenAddr - адрес приёма для порта ведомого. Слушаем все интерфейсы, как и плагин.
func ListenAddr(port int) string {
	return net.JoinHostPort("", strconv.Itoa(port))
}

// NewFollower собирает цепочку Listener -> Receiver -> Executor для мира.
func NewFollower(world *sim.World, cfg config.Follower, addr string, log *logrus.Entry) *Follower {
	log = logger.OrDefault(log, "follower").WithField("world", world.Name)

	exec := follower.NewExecutor(world, world.Loop(), log)
	recv := follower.NewReceiver(world, world.Loop(), exec, cfg.MaxTickLag, log)
	recv.SetEnabled(cfg.Enabled)

	return &Follower{
		World:    world,
		Listener: follower.NewListener(addr, recv.HandleLine, log),
		Receiver: recv,
		Executor: exec,
		log:      log,
	}
}

// Observe подписывает наблюдателя на исходы исполнения.
func (f *Follower) Observe(o follower.Observer) {
	f.Executor.AddObserver(o)
}

func (f *Follower) Start() error {
	if err := f.Listener.Start(); err != nil {
		return fmt.Errorf("follower %s: %w", f.World.Name, err)
	}
	f.log.WithField("addr", f.Listener.Addr().String()).Info("Follower started")
	return nil
}

func (f *Follower) Stop() {
	f.Listener.Stop()
	f.log.WithField("counters", fmt.Sprintf("%+v", f.Receiver.Counters())).Info("Follower stopped")
}
