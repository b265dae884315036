package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/taskdesk"
	"github.com/dmitrymomot/taskdesk/pkg/config"
	"github.com/dmitrymomot/taskdesk/pkg/gateway"
	"github.com/dmitrymomot/taskdesk/pkg/session"
)

// cli carries global flags and the terminal streams.
type cli struct {
	envFiles    []string
	apiURL      string
	storage     string
	storagePath string
	verbose     bool

	prompt *prompter
	out    io.Writer
	errOut io.Writer

	// opts is appended to taskdesk.New options; tests inject storage here.
	opts []taskdesk.Option
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{
		prompt: newPrompter(in, out),
		out:    out,
		errOut: errOut,
	}
	return c.rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskdesk",
		Short: "Sign in to TaskDesk and manage your account",
		Long: `taskdesk talks to the TaskDesk marketplace API.

It keeps the signed-in session in ~/.taskdesk/session.json (or Redis) and
handles CSRF tokens, MFA challenges and email verification for you.

Configuration comes from TASKDESK_* environment variables, optionally read
from .env files:
  TASKDESK_API_BASE_URL=https://taskdesk.example.com/api taskdesk login`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(c.prompt.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringSliceVar(&c.envFiles, "env-file", nil, ".env files to load (default: ./.env if present)")
	flags.StringVar(&c.apiURL, "api", "", "API base URL (overrides TASKDESK_API_BASE_URL)")
	flags.StringVar(&c.storage, "storage", "", "session storage: file, redis or memory")
	flags.StringVar(&c.storagePath, "storage-path", "", "session file for the file storage")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.passwordCmd(),
		c.mfaCmd(),
		c.doctorCmd(),
	)
	return root
}

func (c *cli) loadConfig() (config.App, error) {
	cfg, err := config.LoadApp(c.envFiles...)
	if err != nil && !errors.Is(err, config.ErrInvalidConfig) {
		return cfg, err
	}
	if c.apiURL != "" {
		cfg.APIBaseURL = c.apiURL
	}
	if c.storage != "" {
		cfg.StorageDriver = c.storage
	}
	if c.storagePath != "" {
		cfg.StoragePath = c.storagePath
	}
	if c.verbose {
		cfg.LogLevel = "debug"
	} else if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	return cfg, cfg.Validate()
}

// withApp builds the App for one command, restores the persisted session and
// prints the gateway notices raised while fn ran.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *taskdesk.App) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := append([]taskdesk.Option{taskdesk.WithLogOutput(c.errOut)}, c.opts...)
	app, err := taskdesk.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	warm := app.Warmup(ctx)
	defer func() { _, _ = warm.Await() }()

	if _, err := app.Restore(ctx); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		return err
	}

	sub := app.Subscribe(ctx)
	defer sub.Close()
	defer c.flushNotices(ctx, app, sub.Receive())

	return fn(ctx, app)
}

// flushNotices prints the events already delivered. Broadcast is synchronous,
// so every event of a finished call is buffered by now.
func (c *cli) flushNotices(ctx context.Context, app *taskdesk.App, events <-chan gateway.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			app.Follow(ctx, ev)
			if ev.Kind == gateway.KindLoginRejected {
				// Shown inline by the login command.
				continue
			}
			fmt.Fprintf(c.errOut, "! %s\n", ev.Message)
			if ev.Redirect != "" {
				fmt.Fprintf(c.errOut, "  -> %s\n", ev.Redirect)
			}
		default:
			return
		}
	}
}
