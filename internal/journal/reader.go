package journal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/RuneMirror/RuneMirror/internal/follower"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/google/uuid"
)

var ErrInvalidMagic = errors.New("invalid magic")

// Load читает журнал из файла.
func Load(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(bufio.NewReader(f))
}

// Read разбирает журнал, записанный Write.
func Read(r io.Reader) (*Session, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicHeader {
		return nil, ErrInvalidMagic
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}

	s := NewSession(uuid.UUID(header.SessionID), Role(header.Role))
	s.Started = time.Unix(0, header.Started)
	s.entries = make([]Entry, 0, header.EntryCount)

	for i := 0; i < int(header.EntryCount); i++ {
		var eh EntryHeader
		if err := binary.Read(r, binary.LittleEndian, &eh); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		e := Entry{
			At:        time.Unix(0, eh.At),
			Tick:      int(eh.Tick),
			Seq:       eh.Seq,
			Direction: Direction(eh.Direction),
			Kind:      protocol.Kind(eh.Kind),
			Outcome:   follower.Outcome(eh.Outcome),
			Delivered: int(eh.Delivered),
		}
		if eh.PayloadLen > 0 {
			e.Payload = make(json.RawMessage, eh.PayloadLen)
			if _, err := io.ReadFull(r, e.Payload); err != nil {
				return nil, fmt.Errorf("entry %d payload: %w", i, err)
			}
		}
		s.entries = append(s.entries, e)
	}

	return s, nil
}
