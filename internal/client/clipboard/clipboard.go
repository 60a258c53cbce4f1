// Package clipboard reads and writes the OS clipboard through the platform's
// command line tools.
package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

var (
	// ErrUnavailable means no clipboard tool was found for this platform.
	ErrUnavailable = errors.New("clipboard: unavailable")
	// ErrPermission means the OS refused clipboard access. It is recoverable.
	ErrPermission = errors.New("clipboard: permission denied")
)

// Clipboard is text access to a clipboard.
type Clipboard interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) error
}

// Command runs external tools: Paste prints the clipboard, Copy reads stdin into it.
type Command struct {
	Paste []string
	Copy  []string
}

type candidate struct {
	when  func() bool
	paste []string
	cp    []string
}

func always() bool { return true }

func env(name string) func() bool {
	return func() bool { return os.Getenv(name) != "" }
}

func candidates(goos string) []candidate {
	switch goos {
	case "darwin":
		return []candidate{{always, []string{"pbpaste"}, []string{"pbcopy"}}}
	case "windows":
		return []candidate{{always,
			[]string{"powershell.exe", "-NoProfile", "-Command", "Get-Clipboard -Raw"},
			[]string{"clip.exe"}}}
	}
	return []candidate{
		{env("WAYLAND_DISPLAY"), []string{"wl-paste", "--no-newline"}, []string{"wl-copy"}},
		{env("DISPLAY"), []string{"xclip", "-selection", "clipboard", "-o"}, []string{"xclip", "-selection", "clipboard"}},
		{env("DISPLAY"), []string{"xsel", "--clipboard", "--output"}, []string{"xsel", "--clipboard", "--input"}},
		// WSL
		{always, []string{"powershell.exe", "-NoProfile", "-Command", "Get-Clipboard -Raw"}, []string{"clip.exe"}},
	}
}

// Detect picks the first usable tool pair for this platform.
func Detect() (*Command, error) {
	for _, c := range candidates(runtime.GOOS) {
		if !c.when() {
			continue
		}
		if _, err := exec.LookPath(c.paste[0]); err != nil {
			continue
		}
		if _, err := exec.LookPath(c.cp[0]); err != nil {
			continue
		}
		return &Command{Paste: c.paste, Copy: c.cp}, nil
	}
	return nil, ErrUnavailable
}

// Read returns the clipboard text.
func (c *Command) Read(ctx context.Context) (string, error) {
	if len(c.Paste) == 0 {
		return "", ErrUnavailable
	}
	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Paste[0], c.Paste[1:]...)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", classify(err, stderr.String())
	}
	return strings.ReplaceAll(out.String(), "\r\n", "\n"), nil
}

// Write replaces the clipboard text.
func (c *Command) Write(ctx context.Context, text string) error {
	if len(c.Copy) == 0 {
		return ErrUnavailable
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Copy[0], c.Copy[1:]...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return classify(err, stderr.String())
	}
	return nil
}

func classify(err error, stderr string) error {
	msg := strings.ToLower(stderr)
	switch {
	case errors.Is(err, fs.ErrPermission),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "not authorized"):
		return fmt.Errorf("%w: %v", ErrPermission, err)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if s := strings.TrimSpace(stderr); s != "" {
		return fmt.Errorf("clipboard: %w: %s", err, s)
	}
	return fmt.Errorf("clipboard: %w", err)
}

// Memory is a process-local clipboard.
type Memory struct {
	mu   sync.Mutex
	text string
}

func (m *Memory) Read(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *Memory) Write(_ context.Context, text string) error {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
	return nil
}
