package main

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/and161185/clipsync/internal/client"
	"github.com/and161185/clipsync/internal/model"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"

	previewWidth = 60
)

func validFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", f)
}

func writef(cmd *cobra.Command, format string, args ...any) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	return err
}

var linkRe = regexp.MustCompile(`https?://[^\s<>"']+`)

// findLinks returns the URLs in s in order of appearance, trailing
// punctuation trimmed.
func findLinks(s string) []string {
	raw := linkRe.FindAllString(s, -1)
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		out = append(out, strings.TrimRight(l, ".,;:!?)]}"))
	}
	return out
}

type attachmentOut struct {
	Kind string `json:"kind" yaml:"kind"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	URL  string `json:"url" yaml:"url"`
}

type entryOut struct {
	ID         string         `json:"id" yaml:"id"`
	Content    string         `json:"content" yaml:"content"`
	CreatedAt  time.Time      `json:"created_at" yaml:"created_at"`
	Attachment *attachmentOut `json:"attachment,omitempty" yaml:"attachment,omitempty"`
	Links      []string       `json:"links,omitempty" yaml:"links,omitempty"`
}

func toOut(e model.Entry) entryOut {
	out := entryOut{ID: e.ID, Content: e.Content, CreatedAt: e.CreatedAt.UTC()}
	if e.HasAttachment() {
		out.Attachment = &attachmentOut{Kind: string(e.Attachment.Kind), Name: e.Attachment.Name, URL: e.Attachment.URL}
	}
	if links := findLinks(e.Content); len(links) > 0 {
		out.Links = links
	}
	return out
}

func writeEntries(w io.Writer, format string, view []model.Entry) error {
	list := make([]entryOut, 0, len(view))
	for _, e := range view {
		list = append(list, toOut(e))
	}
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return err
		}
		return enc.Close()
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no entries")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tKIND\tCONTENT\tLINKS")
	for _, e := range list {
		kind := "text"
		if e.Attachment != nil {
			kind = e.Attachment.Kind
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			e.ID, e.CreatedAt.Local().Format(time.DateTime), kind, preview(e), len(e.Links))
	}
	return tw.Flush()
}

func preview(e entryOut) string {
	s := e.Content
	if strings.TrimSpace(s) == "" && e.Attachment != nil {
		s = e.Attachment.Name
	}
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > previewWidth {
		s = string(r[:previewWidth-1]) + "…"
	}
	return s
}

// printer serializes output from the command and the subscription goroutine.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Write(b)
}

func (p *printer) change(ch client.Change) {
	if ch.Event == nil {
		if ch.State == client.Disconnected || ch.State == client.Joined {
			fmt.Fprintf(p, "# %s\n", ch.State)
		}
		return
	}
	ev := ch.Event
	switch ev.Kind {
	case model.EventCreated:
		fmt.Fprintf(p, "+ %s %s\n", ev.Entry.ID, preview(toOut(*ev.Entry)))
		for _, l := range findLinks(ev.Entry.Content) {
			fmt.Fprintf(p, "  -> %s\n", l)
		}
	case model.EventDeleted:
		fmt.Fprintf(p, "- %s\n", ev.EntryID)
	case model.EventCleared:
		fmt.Fprintln(p, "* cleared")
	}
}
