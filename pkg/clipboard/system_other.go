//go:build !linux && !darwin && !windows

package clipboard

import (
	"pastemd/pkg/proc"

	atotto "github.com/atotto/clipboard"
)

// textBackend only knows plain text.
type textBackend struct{}

func NewSystem(proc.Runner) Backend {
	return textBackend{}
}

func (textBackend) Text() (string, error) { return atotto.ReadAll() }

func (textBackend) HTML() (string, error) { return "", nil }

func (textBackend) Files() ([]string, error) { return nil, nil }

func (b textBackend) Formats() ([]Format, error) {
	text, err := b.Text()
	if err != nil || text == "" {
		return nil, err
	}
	return []Format{FormatText}, nil
}

func (b textBackend) Read(format Format) ([]byte, error) {
	if format != FormatText {
		return nil, nil
	}
	text, err := b.Text()
	return []byte(text), err
}

func (b textBackend) Write(content Content) error {
	return atotto.WriteAll(content.Text)
}

func (textBackend) WriteFormats(items []Item) error {
	for _, it := range items {
		if it.Format == FormatText {
			return atotto.WriteAll(string(it.Data))
		}
	}
	return atotto.WriteAll("")
}
