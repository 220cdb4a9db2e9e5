package protocol

import "fmt"

// Validator - интерфейс, который могут реализовать нагрузки
type Validator interface {
	Validate() error
}

func (p WalkTo) Validate() error {
	if p.Destination == nil && p.Relative == nil {
		return ErrMissingDestination
	}
	return nil
}

// CheckVersion - версионный шлюз. Проверяется ДО валидации нагрузки.
func (m Message) CheckVersion() error {
	if m.Version != Version {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, m.Version, Version)
	}
	return nil
}

// Validate проверяет версию, затем нагрузку (если она реализует Validator).
func (m Message) Validate() error {
	if err := m.CheckVersion(); err != nil {
		return err
	}
	if m.Payload == nil {
		return ErrUnknownKind
	}
	if v, ok := m.Payload.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}
