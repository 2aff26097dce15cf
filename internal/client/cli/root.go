package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigFile string
	ServerURL  string
	Storage    string
	NoPersist  bool
	LogLevel   string
}

// NewRootCommand builds the authkeeper command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "authkeeper",
		Short: "authkeeper keeps an authenticated API session on this machine",
		Example: `authkeeper login
  authkeeper whoami
  authkeeper --server https://api.example.com/api status
  authkeeper            # interactive mode`,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: withApp(opts, func(ctx context.Context, a *App) error {
			a.Repl(ctx)
			return nil
		}),
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "Path to JSON config file")
	pf.StringVarP(&opts.ServerURL, "server", "a", "", "API base URL - overrides config file setting")
	pf.StringVarP(&opts.Storage, "storage", "s", "", "Session database path - overrides config file setting")
	pf.BoolVar(&opts.NoPersist, "no-persist", false, "Keep the session in memory only")
	pf.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		command(opts, "register", "Create an account and log in", (*App).Register),
		command(opts, "login", "Log in with username or email", (*App).Login),
		command(opts, "logout", "Log out and clear the stored session", (*App).Logout),
		command(opts, "whoami", "Fetch the current profile from the server", (*App).WhoAmI),
		command(opts, "status", "Show the locally stored session", (*App).Status),
		command(opts, "check", "Validate the stored session against the server", (*App).Check),
	)
	return root
}

func command(opts *rootOptions, use, short string, run func(*App, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, a *App) error {
			return run(a, ctx)
		}),
	}
}

func withApp(opts *rootOptions, fn func(ctx context.Context, a *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd, opts)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		log := logging.NewConsoleLogger(os.Stderr, cfg.LogLevel)

		app, err := NewApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.Close() //nolint:errcheck

		app.out = cmd.OutOrStdout()
		app.reader = bufio.NewReader(cmd.InOrStdin())
		return fn(ctx, app)
	}
}

// loadConfig applies defaults, then the JSON file, then explicitly set flags.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerBaseURL = opts.ServerURL
	}
	if flags.Changed("storage") {
		cfg.StoragePath = opts.Storage
	}
	if opts.NoPersist {
		cfg.StoragePath = ""
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	return cfg, nil
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
