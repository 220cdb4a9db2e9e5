package journal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	MagicHeader string = `RMJL` // 4 байта
	Version1    uint32 = 1
	Extension          = ".rmj"
)

// FileHeader - заголовок файла журнала.
// binary.Write пишет его целиком: только массивы и числа.
type FileHeader struct {
	Magic      [4]byte  // 4 байта
	Version    uint32   // 4 байта
	SessionID  [16]byte // 16 байт
	Started    int64    // 8 байт, unix nano
	Role       uint8    // 1 байт
	EntryCount uint32   // 4 байта
}

// EntryHeader - заголовок каждой записи.
type EntryHeader struct {
	At         int64  // 8, unix nano
	Tick       int32  // 4
	Seq        uint64 // 8
	Direction  uint8  // 1
	Kind       uint8  // 1
	Outcome    uint8  // 1
	Delivered  uint16 // 2
	PayloadLen uint16 // 2
}

// Service сохраняет и читает журналы из каталога.
type Service struct {
	Dir string
}

func NewService(dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return &Service{Dir: dir}, nil
}

// Save пишет сессию в файл <role>_<id>_<started>.rmj и возвращает путь.
func (s *Service) Save(session *Session) (string, error) {
	filename := fmt.Sprintf("%s_%s_%d%s", session.Role, session.ID, session.Started.Unix(), Extension)
	path := filepath.Join(s.Dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := Write(w, session); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return path, nil
}

// Write сериализует сессию в бинарный формат.
func Write(w io.Writer, s *Session) error {
	entries := s.Entries()

	header := FileHeader{
		Version:    Version1,
		SessionID:  s.ID,
		Started:    s.Started.UnixNano(),
		Role:       uint8(s.Role),
		EntryCount: uint32(len(entries)),
	}
	copy(header.Magic[:], MagicHeader)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range entries {
		payloadLen := len(e.Payload)
		if payloadLen > 65535 {
			return fmt.Errorf("payload too long: %d", payloadLen)
		}

		eh := EntryHeader{
			At:         e.At.UnixNano(),
			Tick:       int32(e.Tick),
			Seq:        e.Seq,
			Direction:  uint8(e.Direction),
			Kind:       uint8(e.Kind),
			Outcome:    uint8(e.Outcome),
			Delivered:  uint16(e.Delivered),
			PayloadLen: uint16(payloadLen),
		}
		if err := binary.Write(w, binary.LittleEndian, &eh); err != nil {
			return err
		}
		if payloadLen > 0 {
			if _, err := w.Write(e.Payload); err != nil {
				return err
			}
		}
	}

	return nil
}
