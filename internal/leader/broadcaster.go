package leader

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/RuneMirror/RuneMirror/internal/config"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

var errStaleTarget = errors.New("target set replaced")

// Options настраивают Broadcaster.
type Options struct {
	ConnectTimeout time.Duration
	// WriteTimeout 0 - пишем без дедлайна.
	WriteTimeout time.Duration

	Reconnect                bool
	ReconnectInitialInterval time.Duration
	ReconnectMaxInterval     time.Duration

	Log *logrus.Entry
}

// OptionsFromConfig переносит настройки лидера из окружения.
func OptionsFromConfig(cfg config.Leader) Options {
	return Options{
		ConnectTimeout:       cfg.ConnectTimeout,
		WriteTimeout:         cfg.WriteTimeout,
		Reconnect:            cfg.Reconnect,
		ReconnectMaxInterval: cfg.ReconnectMaxInterval,
	}
}

type peer struct {
	target config.Target
	conn   net.Conn
	w      *bufio.Writer
}

// Broadcaster держит по одному TCP-соединению на ведомого и рассылает им строки.
// Доставка "не более одного раза": без подтверждений и без повторной отправки.
type Broadcaster struct {
	opts Options
	log  *logrus.Entry

	mu         sync.Mutex
	peers      []*peer
	generation uint64
	closed     bool
	cancel     context.CancelFunc
	ctx        context.Context

	wg sync.WaitGroup
}

func NewBroadcaster(opts Options) *Broadcaster {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 200 * time.Millisecond
	}
	if opts.ReconnectInitialInterval <= 0 {
		opts.ReconnectInitialInterval = 250 * time.Millisecond
	}
	if opts.ReconnectMaxInterval <= 0 {
		opts.ReconnectMaxInterval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Broadcaster{
		opts:   opts,
		log:    logger.OrDefault(opts.Log, "broadcaster"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetTargets закрывает все текущие соединения и подключается к новому набору.
// Недоступная цель логируется и пропускается (или уходит в фоновое переподключение).
func (b *Broadcaster) SetTargets(targets []config.Target) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closeAllLocked()
	b.cancel()
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.generation++
	gen := b.generation
	ctx := b.ctx
	b.mu.Unlock()

	for _, t := range targets {
		conn, err := b.dial(t)
		if err != nil {
			b.log.WithFields(logrus.Fields{
				"target": t.String(),
				"error":  err,
			}).Warn("Follower unreachable")
			b.scheduleReconnect(ctx, gen, t)
			continue
		}
		if !b.attach(gen, t, conn) {
			return
		}
	}

	b.log.WithFields(logrus.Fields{
		"targets": len(targets),
		"live":    len(b.Live()),
	}).Info("Follower targets applied")
}

// Broadcast кодирует сообщение один раз и пишет его всем живым ведомым.
// Ошибка записи закрывает и убирает только это соединение.
// Возвращает число ведомых, которым строка ушла.
func (b *Broadcaster) Broadcast(m protocol.Message) (int, error) {
	line, err := protocol.Encode(m)
	if err != nil {
		return 0, err
	}
	line = append(line, '\n')

	b.mu.Lock()

	var (
		alive   = b.peers[:0]
		dropped []config.Target
		sent    int
	)
	for _, p := range b.peers {
		if err := b.write(p, line); err != nil {
			b.log.WithFields(logrus.Fields{
				"target": p.target.String(),
				"seq":    m.Seq,
				"error":  err,
			}).Warn("Follower write failed, dropping connection")
			_ = p.conn.Close()
			dropped = append(dropped, p.target)
			continue
		}
		alive = append(alive, p)
		sent++
	}
	for i := len(alive); i < len(b.peers); i++ {
		b.peers[i] = nil
	}
	b.peers = alive
	ctx, gen := b.ctx, b.generation
	b.mu.Unlock()

	for _, t := range dropped {
		b.scheduleReconnect(ctx, gen, t)
	}
	return sent, nil
}

// Live - адреса ведомых, с которыми сейчас есть соединение.
func (b *Broadcaster) Live() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.peers))
	for _, p := range b.peers {
		out = append(out, p.target.String())
	}
	return out
}

// Close закрывает все соединения и останавливает переподключения. Идемпотентен.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.closeAllLocked()
	b.cancel()
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Broadcaster) write(p *peer, line []byte) error {
	if b.opts.WriteTimeout > 0 {
		if err := p.conn.SetWriteDeadline(time.Now().Add(b.opts.WriteTimeout)); err != nil {
			return err
		}
	}
	if _, err := p.w.Write(line); err != nil {
		return err
	}
	return p.w.Flush()
}

func (b *Broadcaster) dial(t config.Target) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", t.Address(), b.opts.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return conn, nil
}

// attach добавляет соединение, если набор целей за это время не поменялся.
func (b *Broadcaster) attach(gen uint64, t config.Target, conn net.Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || gen != b.generation {
		_ = conn.Close()
		return false
	}
	b.peers = append(b.peers, &peer{target: t, conn: conn, w: bufio.NewWriter(conn)})
	b.log.WithField("target", t.String()).Info("Follower connected")
	return true
}

// scheduleReconnect переподключается в фоне с экспоненциальной задержкой,
// пока не получится, не сменятся цели или Broadcaster не закроют.
func (b *Broadcaster) scheduleReconnect(ctx context.Context, gen uint64, t config.Target) {
	if !b.opts.Reconnect {
		return
	}

	b.mu.Lock()
	if b.closed || gen != b.generation {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = b.opts.ReconnectInitialInterval
		bo.MaxInterval = b.opts.ReconnectMaxInterval

		conn, err := backoff.Retry(ctx, func() (net.Conn, error) {
			if b.stale(gen) {
				return nil, backoff.Permanent(errStaleTarget)
			}
			return b.dial(t)
		},
			backoff.WithBackOff(bo),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(func(err error, next time.Duration) {
				b.log.WithFields(logrus.Fields{
					"target": t.String(),
					"retry":  next,
				}).Debug("Reconnect attempt failed")
			}),
		)
		if err != nil {
			return
		}
		b.attach(gen, t, conn)
	}()
}

func (b *Broadcaster) stale(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed || gen != b.generation
}

func (b *Broadcaster) closeAllLocked() {
	for _, p := range b.peers {
		_ = p.conn.Close()
	}
	b.peers = nil
}
