package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/clipsync/internal/client"
	"github.com/and161185/clipsync/internal/client/state"
	"github.com/and161185/clipsync/internal/model"
)

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a session and join it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, sessionOpts{}, func(ctx context.Context, cl *client.Client) error {
				code, err := cl.Create(ctx)
				if err != nil {
					return err
				}
				return writef(cmd, "session %s\njoin from another device with: clipsync join %s\n", code, code)
			})
		},
	}
}

func newJoinCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "join CODE",
		Short: "Join an existing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, sessionOpts{}, func(ctx context.Context, cl *client.Client) error {
				code, err := cl.Join(ctx, args[0])
				if err != nil {
					return err
				}
				return writef(cmd, "joined %s (%d entries)\n", code, len(cl.View()))
			})
		},
	}
}

func newLeaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Forget the current session on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withState(cmd, func(ctx context.Context, st *state.DB, _ *client.Client) error {
				rec, err := st.Load(ctx)
				if err != nil {
					return err
				}
				if rec.SessionCode == "" {
					return writef(cmd, "not in a session\n")
				}
				code := rec.SessionCode
				rec.SessionCode = ""
				if err := st.Save(ctx, rec); err != nil {
					return err
				}
				return writef(cmd, "left %s\n", code)
			})
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session, connection and theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, sessionOpts{}, func(ctx context.Context, cl *client.Client) error {
				theme, err := cl.Theme(ctx)
				if err != nil {
					return err
				}
				resumeErr := cl.Resume(ctx)
				code := cl.Code()
				if code == "" {
					code = "-"
				}
				if err := writef(cmd, "session: %s\nstate: %s\nentries: %d\ntheme: %s\n",
					code, cl.State(), len(cl.View()), theme); err != nil {
					return err
				}
				if resumeErr != nil {
					return writef(cmd, "error: %v\n", resumeErr)
				}
				return nil
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the session's entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(output); err != nil {
				return err
			}
			return a.withClient(cmd, sessionOpts{resume: true}, func(_ context.Context, cl *client.Client) error {
				return writeEntries(cmd.OutOrStdout(), output, cl.View())
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func newShareCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "share [TEXT|-]",
		Short: "Share text, stdin or a file with the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 1 {
				text = args[0]
				if text == "-" {
					b, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return err
					}
					text = string(b)
				}
			}
			if text == "" && file == "" {
				return errors.New("nothing to share: pass TEXT, - or --file")
			}
			return a.withClient(cmd, sessionOpts{resume: true}, func(ctx context.Context, cl *client.Client) error {
				var (
					e   *model.Entry
					err error
				)
				if file != "" {
					data, rerr := os.ReadFile(file)
					if rerr != nil {
						return rerr
					}
					e, err = cl.ShareFile(ctx, filepath.Base(file), http.DetectContentType(data), data, text)
				} else {
					e, err = cl.Share(ctx, text, nil)
				}
				if err != nil {
					return err
				}
				return writef(cmd, "shared %s\n", e.ID)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "attach a file")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one entry (an unambiguous ID prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, sessionOpts{resume: true}, func(ctx context.Context, cl *client.Client) error {
				id, err := resolveID(cl.View(), args[0])
				if err != nil {
					return err
				}
				if err := cl.Delete(ctx, id); err != nil {
					return err
				}
				return writef(cmd, "deleted %s\n", id)
			})
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, sessionOpts{resume: true}, func(ctx context.Context, cl *client.Client) error {
				res, err := cl.Clear(ctx)
				if err != nil {
					return err
				}
				if res.Nothing() {
					return writef(cmd, "nothing to clear\n")
				}
				return writef(cmd, "cleared %d entries\n", res.Removed)
			})
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID",
		Short: "Recall an entry: print its content and delete it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, sessionOpts{resume: true}, func(ctx context.Context, cl *client.Client) error {
				id, err := resolveID(cl.View(), args[0])
				if err != nil {
					return err
				}
				content, err := cl.Edit(ctx, id)
				if err != nil {
					return err
				}
				return writef(cmd, "%s\n", content)
			})
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var retry time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the session live, reconnecting after network loss",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			cmd.SetContext(ctx)

			p := &printer{w: cmd.OutOrStdout()}
			lost := make(chan struct{}, 1)
			opts := sessionOpts{resume: true, noExpiry: true, client: client.Options{
				OnChange: func(ch client.Change) {
					p.change(ch)
					if ch.Event == nil && ch.State == client.Disconnected {
						select {
						case lost <- struct{}{}:
						default:
						}
					}
				},
			}}
			return a.withClient(cmd, opts, func(ctx context.Context, cl *client.Client) error {
				if err := writeEntries(p, formatTable, cl.View()); err != nil {
					return err
				}
				return follow(ctx, cl, lost, retry)
			})
		},
	}
	cmd.Flags().DurationVar(&retry, "retry", 3*time.Second, "delay between reconnect attempts")
	return cmd
}

// follow keeps cl joined until ctx ends.
func follow(ctx context.Context, cl *client.Client, lost <-chan struct{}, retry time.Duration) error {
	var tick <-chan time.Time
	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-lost:
			if ticker == nil {
				ticker = time.NewTicker(retry)
				tick = ticker.C
			}
		case <-tick:
			if cl.State() != client.Disconnected {
				continue
			}
			if err := cl.SetOnline(ctx, true); err == nil {
				ticker.Stop()
				ticker, tick = nil, nil
			}
		}
	}
}

func newCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy ID",
		Short: "Copy an entry to the OS clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cb, err := a.clipboard()
			if err != nil {
				return err
			}
			return a.withClient(cmd, sessionOpts{resume: true}, func(ctx context.Context, cl *client.Client) error {
				id, err := resolveID(cl.View(), args[0])
				if err != nil {
					return err
				}
				for _, e := range cl.View() {
					if e.ID != id {
						continue
					}
					text := e.Content
					if strings.TrimSpace(text) == "" && e.HasAttachment() {
						text = e.Attachment.URL
					}
					if err := cb.Write(ctx, text); err != nil {
						return err
					}
					return writef(cmd, "copied %s\n", id)
				}
				return fmt.Errorf("entry %s: not in the session", args[0])
			})
		},
	}
}

func newPasteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "paste",
		Short: "Share the OS clipboard text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cb, err := a.clipboard()
			if err != nil {
				return err
			}
			return a.withClient(cmd, sessionOpts{resume: true}, func(ctx context.Context, cl *client.Client) error {
				text, err := cb.Read(ctx)
				if err != nil {
					return err
				}
				e, err := cl.Share(ctx, text, nil)
				if err != nil {
					return err
				}
				return writef(cmd, "shared %s\n", e.ID)
			})
		},
	}
}

func newThemeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the theme preference",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{state.ThemeLight, state.ThemeDark, "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withState(cmd, func(ctx context.Context, _ *state.DB, cl *client.Client) error {
				var (
					theme string
					err   error
				)
				switch {
				case len(args) == 0:
					theme, err = cl.Theme(ctx)
				case args[0] == "toggle":
					theme, err = cl.ToggleTheme(ctx)
				default:
					theme, err = cl.SetTheme(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return writef(cmd, "%s\n", theme)
			})
		},
	}
}

func newVisitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "visit",
		Short: "Count this device's visit and show the totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, sessionOpts{}, func(ctx context.Context, cl *client.Client) error {
				vc, err := cl.RecordVisit(ctx)
				if err != nil {
					return err
				}
				return writef(cmd, "visits: %d total, %d unique\n", vc.Total, vc.Unique)
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writef(cmd, "clipsync %s (%s)\n", version, buildDate)
		},
	}
}

// resolveID expands an unambiguous prefix of an entry id in view.
func resolveID(view []model.Entry, arg string) (string, error) {
	var match string
	for _, e := range view {
		if e.ID == arg {
			return arg, nil
		}
		if strings.HasPrefix(e.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", arg)
			}
			match = e.ID
		}
	}
	if match == "" {
		return arg, nil
	}
	return match, nil
}
