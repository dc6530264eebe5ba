//go:build linux

package clipboard

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"pastemd/pkg/clipboard/internal/wayland"
	"pastemd/pkg/logger"
	"pastemd/pkg/proc"

	atotto "github.com/atotto/clipboard"
)

const (
	readTimeout  = 5 * time.Second
	ownerStartup = 2 * time.Second
)

var textTargets = []Format{FormatText, "text/plain;charset=utf-8", "UTF8_STRING", "STRING", "TEXT"}

// X11 bookkeeping targets that carry no content.
var x11MetaTargets = map[Format]bool{
	"TARGETS": true, "MULTIPLE": true, "TIMESTAMP": true, "SAVE_TARGETS": true,
}

type linuxBackend struct {
	runner  proc.Runner
	wayland bool
}

// NewSystem returns the clipboard of the current desktop session:
// wl-paste plus the built-in owner on Wayland, xclip on X11.
func NewSystem(runner proc.Runner) Backend {
	return &linuxBackend{runner: runner, wayland: os.Getenv("WAYLAND_DISPLAY") != ""}
}

func (b *linuxBackend) Formats() ([]Format, error) {
	var cmd proc.Cmd
	if b.wayland {
		cmd = proc.Cmd{Name: "wl-paste", Args: []string{"--list-types"}, Timeout: readTimeout}
	} else {
		cmd = proc.Cmd{Name: "xclip", Args: []string{"-selection", "clipboard", "-t", "TARGETS", "-o"}, Timeout: readTimeout}
	}

	res, err := b.runner.Run(context.Background(), cmd)
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		return nil, res.Err(cmd.Name)
	}
	if res.ExitCode != 0 {
		// both tools exit non-zero when nothing owns the selection
		return nil, nil
	}

	var formats []Format
	for _, line := range strings.Split(res.Stdout, "\n") {
		f := Format(strings.TrimSpace(line))
		if f == "" || x11MetaTargets[f] {
			continue
		}
		formats = append(formats, f)
	}
	return formats, nil
}

func (b *linuxBackend) Read(format Format) ([]byte, error) {
	var cmd proc.Cmd
	if b.wayland {
		cmd = proc.Cmd{Name: "wl-paste", Args: []string{"--no-newline", "--type", string(format)}, Timeout: readTimeout}
	} else {
		cmd = proc.Cmd{Name: "xclip", Args: []string{"-selection", "clipboard", "-t", string(format), "-o"}, Timeout: readTimeout}
	}

	out, err := proc.Output(context.Background(), b.runner, cmd)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (b *linuxBackend) Text() (string, error) {
	formats, err := b.Formats()
	if err != nil {
		return "", err
	}
	if !containsFormat(formats, textTargets...) {
		return "", nil
	}
	return atotto.ReadAll()
}

func (b *linuxBackend) HTML() (string, error) {
	formats, err := b.Formats()
	if err != nil || !containsFormat(formats, FormatHTML) {
		return "", err
	}
	data, err := b.Read(FormatHTML)
	return string(data), err
}

func (b *linuxBackend) Files() ([]string, error) {
	formats, err := b.Formats()
	if err != nil {
		return nil, err
	}
	for _, f := range []Format{FormatFiles, "x-special/gnome-copied-files"} {
		if !containsFormat(formats, f) {
			continue
		}
		data, err := b.Read(f)
		if err != nil {
			return nil, err
		}
		return ParseURIList(string(data)), nil
	}
	return nil, nil
}

func (b *linuxBackend) Write(content Content) error {
	if b.wayland {
		return b.WriteFormats(content.Items())
	}
	return b.writeX11(content.Items(), false)
}

func (b *linuxBackend) WriteFormats(items []Item) error {
	if b.wayland {
		if len(items) == 0 {
			_, err := proc.Output(context.Background(), b.runner, proc.Cmd{Name: "wl-copy", Args: []string{"--clear"}, Timeout: readTimeout})
			return err
		}
		return spawnOwner(items)
	}
	return b.writeX11(items, true)
}

// writeX11 offers a single target per xclip process. Write keeps the
// richest item so a paste lands formatted; WriteFormats, which restores
// snapshots, keeps the text item when there is one.
func (b *linuxBackend) writeX11(items []Item, preferText bool) error {
	args := []string{"-selection", "clipboard"}
	data := []byte{}
	if it, ok := pickX11(items, preferText); ok {
		data = it.Data
		if !containsFormat([]Format{it.Format}, textTargets...) {
			args = append(args, "-t", string(it.Format))
		}
	}
	args = append(args, "-i")

	_, err := proc.Output(context.Background(), b.runner, proc.Cmd{
		Name:          "xclip",
		Args:          args,
		Stdin:         data,
		Timeout:       readTimeout,
		DiscardOutput: true,
	})
	return err
}

func pickX11(items []Item, preferText bool) (Item, bool) {
	if len(items) == 0 {
		return Item{}, false
	}
	if preferText {
		for _, t := range textTargets {
			for _, it := range items {
				if it.Format == t {
					return it, true
				}
			}
		}
	}
	best := items[0]
	for _, it := range items {
		if rank(it.Format) < rank(best.Format) {
			best = it
		}
	}
	return best, true
}

func rank(f Format) int {
	switch f {
	case FormatHTML:
		return 0
	case FormatRTF:
		return 1
	case FormatFiles:
		return 2
	case FormatText:
		return 3
	}
	return 4
}

// spawnOwner re-execs this binary as a detached clipboard owner and waits
// until it reports that it holds the selection.
func spawnOwner(items []Item) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}

	cmd := exec.Command(os.Args[0], ServeCommand)
	cmd.Stdin = bytes.NewReader(payload)
	// own session so the owner outlives this process
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting clipboard owner: %w", err)
	}

	ready := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(stdout).ReadString('\n')
		if err != nil {
			ready <- fmt.Errorf("clipboard owner exited before taking the selection: %w", err)
			return
		}
		if strings.TrimSpace(line) != readyLine {
			ready <- fmt.Errorf("clipboard owner: %s", strings.TrimSpace(line))
			return
		}
		ready <- nil
	}()

	select {
	case err := <-ready:
		if err != nil {
			return err
		}
	case <-time.After(ownerStartup):
		log := logger.Component("clipboard")
		log.Warn().Msg("clipboard owner slow to start")
	}
	return cmd.Process.Release()
}

// Serve runs the Wayland owner for the ServeCommand subcommand. It reads the
// JSON items written by spawnOwner from in and prints readyLine to out once
// the selection is held.
func Serve(in []byte, out func(string)) error {
	var items []Item
	if err := json.Unmarshal(in, &items); err != nil {
		return fmt.Errorf("decoding clipboard payload: %w", err)
	}
	return wayland.Own(offers(items), func() { out(readyLine) })
}

// offers maps items to MIME types, adding the aliases X11 and Wayland
// clients look for.
func offers(items []Item) map[string][]byte {
	out := make(map[string][]byte, len(items)*2)
	add := func(mime string, data []byte) {
		if _, exists := out[mime]; !exists {
			out[mime] = data
		}
	}
	for _, it := range items {
		out[string(it.Format)] = it.Data
	}
	for _, it := range items {
		switch it.Format {
		case FormatText:
			for _, alias := range textTargets[1:] {
				add(string(alias), it.Data)
			}
		case FormatRTF:
			add("application/rtf", it.Data)
		case FormatFiles:
			add("x-special/gnome-copied-files", append([]byte("copy\n"), bytes.ReplaceAll(it.Data, []byte("\r\n"), []byte("\n"))...))
		}
	}
	return out
}
