package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Leader - настройки стороны, которая захватывает ввод и рассылает его.
type Leader struct {
	Enabled bool   `env:"RUNEMIRROR_LEADER_ENABLED" envDefault:"false"`
	Targets string `env:"RUNEMIRROR_LEADER_TARGETS" envDefault:"127.0.0.1:46001"`
	// TargetsFile, если задан, главнее Targets и перечитывается по SIGHUP.
	TargetsFile    string        `env:"RUNEMIRROR_LEADER_TARGETS_FILE"`
	ConnectTimeout time.Duration `env:"RUNEMIRROR_LEADER_CONNECT_TIMEOUT" envDefault:"200ms"`
	// WriteTimeout 0 - без дедлайна на запись (медленный ведомый может тормозить цикл лидера).
	WriteTimeout         time.Duration `env:"RUNEMIRROR_LEADER_WRITE_TIMEOUT" envDefault:"0s"`
	Reconnect            bool          `env:"RUNEMIRROR_LEADER_RECONNECT" envDefault:"true"`
	ReconnectMaxInterval time.Duration `env:"RUNEMIRROR_LEADER_RECONNECT_MAX_INTERVAL" envDefault:"5s"`
}

// ResolveTargets - сырой список целей: из файла, если он задан, иначе из Targets.
func (l Leader) ResolveTargets() (string, error) {
	if l.TargetsFile == "" {
		return l.Targets, nil
	}
	return ReadTargetsFile(l.TargetsFile)
}

// Follower - настройки ведомого.
type Follower struct {
	Enabled    bool `env:"RUNEMIRROR_FOLLOWER_ENABLED" envDefault:"false"`
	Port       int  `env:"RUNEMIRROR_FOLLOWER_PORT" envDefault:"46001"`
	MaxTickLag int  `env:"RUNEMIRROR_FOLLOWER_MAX_TICK_LAG" envDefault:"1"`
}

// Monitor - HTTP/WebSocket наблюдатель. Пустой адрес выключает.
type Monitor struct {
	Addr string `env:"RUNEMIRROR_MONITOR_ADDR"`
}

// Journal - куда сохранять журнал сессии. Пусто - не сохраняем.
type Journal struct {
	Dir string `env:"RUNEMIRROR_JOURNAL_DIR"`
}

// Sim - параметры встроенной симуляции (demo и standalone режимы).
type Sim struct {
	TickInterval time.Duration `env:"RUNEMIRROR_TICK_INTERVAL" envDefault:"600ms"`
	SceneBaseX   int           `env:"RUNEMIRROR_SCENE_BASE_X" envDefault:"3136"`
	SceneBaseY   int           `env:"RUNEMIRROR_SCENE_BASE_Y" envDefault:"3136"`
	SceneSize    int           `env:"RUNEMIRROR_SCENE_SIZE" envDefault:"104"`
}

// Config хранит все параметры запуска
type Config struct {
	Leader   Leader
	Follower Follower
	Monitor  Monitor
	Journal  Journal
	Sim      Sim
}

// ParseEnv загружает конфигурацию из переменных окружения.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load читает весь Config из окружения с дефолтами.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Follower.MaxTickLag < 0 {
		return Config{}, fmt.Errorf("max tick lag must be >= 0, got %d", cfg.Follower.MaxTickLag)
	}
	return cfg, nil
}
