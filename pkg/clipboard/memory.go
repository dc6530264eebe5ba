package clipboard

import (
	"strings"
	"sync"
)

// Memory is an in-process clipboard used by tests and dry runs.
type Memory struct {
	mu     sync.Mutex
	items  []Item
	writes int

	// ReadErr and WriteErr, when set, are returned by every read or write.
	ReadErr  error
	WriteErr error
}

var _ Backend = (*Memory)(nil)

// NewMemory returns a clipboard holding items.
func NewMemory(items ...Item) *Memory {
	m := &Memory{}
	m.items = cloneItems(items)
	return m
}

func (m *Memory) Text() (string, error) {
	data, err := m.Read(FormatText)
	return string(data), err
}

func (m *Memory) HTML() (string, error) {
	data, err := m.Read(FormatHTML)
	return string(data), err
}

func (m *Memory) Files() ([]string, error) {
	data, err := m.Read(FormatFiles)
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return ParseURIList(string(data)), nil
}

func (m *Memory) Formats() ([]Format, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	formats := make([]Format, 0, len(m.items))
	for _, it := range m.items {
		formats = append(formats, it.Format)
	}
	return formats, nil
}

func (m *Memory) Read(format Format) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	for _, it := range m.items {
		if it.Format == format {
			return append([]byte(nil), it.Data...), nil
		}
	}
	return nil, nil
}

func (m *Memory) Write(content Content) error {
	return m.WriteFormats(content.Items())
}

func (m *Memory) WriteFormats(items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.items = cloneItems(items)
	m.writes++
	return nil
}

// Writes counts successful WriteFormats calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// SetText replaces the clipboard with plain text, like a user copy.
func (m *Memory) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = []Item{{Format: FormatText, Data: []byte(text)}}
}

func (m *Memory) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := make([]string, 0, len(m.items))
	for _, it := range m.items {
		parts = append(parts, string(it.Format))
	}
	return "memory clipboard [" + strings.Join(parts, ", ") + "]"
}

func cloneItems(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = Item{Format: it.Format, Data: append([]byte(nil), it.Data...)}
	}
	return out
}
