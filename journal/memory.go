package journal

import "sync"

// Memory is the in-process journal used for tests and ephemeral sessions.
type Memory struct {
	mu    sync.Mutex
	fills []Fill
	notes map[string]Note
}

func NewMemory() *Memory {
	return &Memory{notes: make(map[string]Note)}
}

func (m *Memory) RecordFill(f Fill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fills = append(m.fills, f)
	return nil
}

func (m *Memory) AttachNote(fillID string, n Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[fillID] = n
	return nil
}

func (m *Memory) Fills() ([]Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Fill, len(m.fills))
	copy(out, m.fills)
	return out, nil
}

func (m *Memory) Notes() (map[string]Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Note, len(m.notes))
	for k, v := range m.notes {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fills = nil
	m.notes = make(map[string]Note)
	return nil
}

func (m *Memory) Close() error { return nil }
