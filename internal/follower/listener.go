package follower

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/sirupsen/logrus"
)

// maxLineSize - предел одной строки протокола. Реальные строки меньше килобайта.
const maxLineSize = 64 * 1024

// State - состояние слушателя.
type State int32

const (
	StateStopped State = iota
	StateListening
	StateConnected
)

var stateNames = map[State]string{
	StateStopped:   "STOPPED",
	StateListening: "LISTENING",
	StateConnected: "CONNECTED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// LineHandler получает одну непустую строку. Срез действителен только во время вызова.
type LineHandler func(line []byte)

// Listener принимает соединения лидера. Активно одно соединение:
// новое вытесняет старое, и строки старого после этого не доставляются.
type Listener struct {
	addr    string
	handler LineHandler
	log     *logrus.Entry

	state atomic.Int32

	// mu защищает активное соединение и поколение.
	// Обработчик строк вызывается под mu, чтобы вытеснение не пересекалось с доставкой.
	mu         sync.Mutex
	ln         net.Listener
	active     net.Conn
	generation uint64

	wg sync.WaitGroup
}

func NewListener(addr string, handler LineHandler, log *logrus.Entry) *Listener {
	return &Listener{
		addr:    addr,
		handler: handler,
		log:     logger.OrDefault(log, "listener"),
	}
}

// Start открывает порт и запускает цикл приёма в фоне.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	l.state.Store(int32(StateListening))

	l.log.WithField("addr", ln.Addr().String()).Info("Listening for leader")

	l.wg.Add(1)
	go l.acceptLoop(ln)
	return nil
}

// Addr - фактический адрес (полезно при порте 0). nil до Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) State() State {
	return State(l.state.Load())
}

// Stop закрывает порт и активное соединение и ждёт завершения горутин.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.State() == StateStopped {
		l.mu.Unlock()
		return
	}
	l.state.Store(int32(StateStopped))
	if l.ln != nil {
		_ = l.ln.Close()
	}
	if l.active != nil {
		_ = l.active.Close()
		l.active = nil
	}
	l.generation++
	l.mu.Unlock()

	l.wg.Wait()
	l.log.Info("Listener stopped")
}

func (l *Listener) acceptLoop(ln net.Listener) {
	defer l.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || l.State() == StateStopped {
				return
			}
			l.log.WithError(err).Warn("Accept failed")
			continue
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		l.mu.Lock()
		if l.State() == StateStopped {
			l.mu.Unlock()
			_ = conn.Close()
			return
		}
		if l.active != nil {
			l.log.WithField("remote", l.active.RemoteAddr().String()).Info("Replacing leader connection")
			_ = l.active.Close()
		}
		l.generation++
		gen := l.generation
		l.active = conn
		l.state.Store(int32(StateConnected))
		l.mu.Unlock()

		l.log.WithField("remote", conn.RemoteAddr().String()).Info("Leader connected")

		l.wg.Add(1)
		go l.serve(conn, gen)
	}
}

func (l *Listener) serve(conn net.Conn, gen uint64) {
	defer l.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		l.mu.Lock()
		if gen != l.generation {
			l.mu.Unlock()
			return
		}
		l.handler(line)
		l.mu.Unlock()
	}

	l.mu.Lock()
	current := gen == l.generation
	if current {
		l.active = nil
		l.state.Store(int32(StateListening))
	}
	l.mu.Unlock()

	if current {
		fields := logrus.Fields{"remote": conn.RemoteAddr().String()}
		if err := scanner.Err(); err != nil {
			fields["error"] = err
		}
		l.log.WithFields(fields).Info("Leader connection ended")
	}
}
