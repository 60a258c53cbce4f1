// Command clipsync is the terminal Session Client for a ClipSync server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/and161185/clipsync/internal/client/clipboard"
	"github.com/and161185/clipsync/internal/errs"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}

// hintFor suggests a next step for the failures a user can act on.
func hintFor(err error) string {
	switch {
	case errors.Is(err, errNoSession):
		return "run `clipsync create` or `clipsync join CODE` first"
	case errors.Is(err, errs.ErrNotFound):
		return "check the code; sessions are case-insensitive"
	case errors.Is(err, errs.ErrRateLimited):
		return "too many failed joins from this address, wait and retry"
	case errors.Is(err, errs.ErrNotConnected):
		return "the server is unreachable; check --addr and TLS flags"
	case errors.Is(err, clipboard.ErrPermission):
		return "grant clipboard access to this terminal and retry"
	case errors.Is(err, clipboard.ErrUnavailable):
		return "install wl-clipboard, xclip or xsel"
	}
	return ""
}
