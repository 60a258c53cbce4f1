package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/clipsync/internal/client"
	"github.com/and161185/clipsync/internal/client/clipboard"
	"github.com/and161185/clipsync/internal/client/config"
	"github.com/and161185/clipsync/internal/client/state"
)

var errNoSession = errors.New("not in a session")

const callTimeout = 30 * time.Second

// connection is what a command needs from the transport.
type connection interface {
	grpc.ClientConnInterface
	io.Closer
}

type app struct {
	configPath string
	flags      config.Config
	verbose    bool

	connect   func(cfg config.Config) (connection, error)
	clipboard func() (clipboard.Clipboard, error)
}

func newApp() *app {
	return &app{
		connect: func(cfg config.Config) (connection, error) {
			return dial(cfg.Addr, cfg.CACert, cfg.Insecure, cfg.Plaintext)
		},
		clipboard: func() (clipboard.Clipboard, error) { return clipboard.Detect() },
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clipsync",
		Short:         "Share a clipboard between devices through a short session code",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Version = version

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/clipsync/config.toml)")
	pf.StringVar(&a.flags.Addr, "addr", config.DefaultAddr, "server address")
	pf.StringVar(&a.flags.CACert, "cacert", "", "CA certificate (PEM)")
	pf.BoolVar(&a.flags.Insecure, "insecure", false, "skip certificate verification (dev)")
	pf.BoolVar(&a.flags.Plaintext, "plaintext", false, "connect without TLS")
	pf.StringVar(&a.flags.StateDB, "state", "", "client state database")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log client activity to stderr")

	cmd.AddCommand(
		newCreateCmd(a),
		newJoinCmd(a),
		newLeaveCmd(a),
		newStatusCmd(a),
		newListCmd(a),
		newShareCmd(a),
		newDeleteCmd(a),
		newClearCmd(a),
		newEditCmd(a),
		newWatchCmd(a),
		newCopyCmd(a),
		newPasteCmd(a),
		newThemeCmd(a),
		newVisitCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// settings merges the config file with flags the user set explicitly.
func (a *app) settings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return cfg, err
	}
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = a.flags.Addr
	}
	if f.Changed("cacert") {
		cfg.CACert = a.flags.CACert
	}
	if f.Changed("insecure") {
		cfg.Insecure = a.flags.Insecure
	}
	if f.Changed("plaintext") {
		cfg.Plaintext = a.flags.Plaintext
	}
	if f.Changed("state") {
		cfg.StateDB = a.flags.StateDB
	}
	return cfg, nil
}

func (a *app) logger() *zap.Logger {
	if !a.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// withState runs fn with a client that has no server connection, for
// commands that only touch local state.
func (a *app) withState(cmd *cobra.Command, fn func(ctx context.Context, st *state.DB, cl *client.Client) error) error {
	cfg, err := a.settings(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	st, err := state.Open(ctx, cfg.StateDB)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st, client.New(nil, st, a.logger(), client.Options{}))
}

type sessionOpts struct {
	resume   bool // rejoin the persisted session and require it
	noExpiry bool // no call timeout, for long-running commands
	client   client.Options
}

// withClient connects to the server and runs fn with a client. With resume
// set the persisted session is rejoined first.
func (a *app) withClient(cmd *cobra.Command, o sessionOpts, fn func(ctx context.Context, cl *client.Client) error) error {
	cfg, err := a.settings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if !o.noExpiry {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callTimeout)
		defer cancel()
	}

	st, err := state.Open(ctx, cfg.StateDB)
	if err != nil {
		return err
	}
	defer st.Close()

	conn, err := a.connect(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	log := a.logger()
	defer func() { _ = log.Sync() }()
	cl := client.New(client.NewGRPC(conn), st, log, o.client)
	defer cl.Close()

	if o.resume {
		if err := cl.Resume(ctx); err != nil {
			return err
		}
		if cl.State() != client.Joined {
			return errNoSession
		}
	}
	return fn(ctx, cl)
}
