package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

var ErrInvalidTarget = errors.New("invalid follower target")

// Target - адрес ведомого host:port.
type Target struct {
	Host string
	Port int
}

// Address возвращает строку для net.Dial.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	return t.Address()
}

// ParseTargets разбирает список "host:port,host:port".
// Битые записи пропускаются поштучно: возвращаются все валидные цели
// плюс объединённая ошибка по каждой битой записи.
func ParseTargets(raw string) ([]Target, error) {
	var (
		targets []Target
		errs    []error
	)

	for _, part := range strings.Split(raw, ",") {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}

		host, portStr, err := net.SplitHostPort(s)
		if err != nil || host == "" {
			errs = append(errs, fmt.Errorf("%w %q: expected host:port", ErrInvalidTarget, s))
			continue
		}

		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%w %q: bad port", ErrInvalidTarget, s))
			continue
		}

		targets = append(targets, Target{Host: host, Port: port})
	}

	return targets, errors.Join(errs...)
}

// ReadTargetsFile читает цели из файла: по одной или через запятую на строке,
// пустые строки и строки с '#' пропускаются. Результат в формате ParseTargets.
func ReadTargetsFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read targets file: %w", err)
	}

	var parts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, ","), nil
}
