package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iudanet/fieldsync/internal/client/app"
	"github.com/iudanet/fieldsync/internal/client/auth"
	"github.com/iudanet/fieldsync/internal/client/config"
	"github.com/iudanet/fieldsync/internal/client/iocli"
)

// Flags глобальные флаги командной строки
type Flags struct {
	ConfigPath string
	Server     string
	DataDir    string
	Offline    bool
	Verbose    bool
}

// Opener собирает приложение для одной команды; тесты подменяют его
type Opener func(ctx context.Context, flags Flags, requireDurable bool) (*app.App, error)

// NewRootCommand builds the command tree. open may be nil to use the real application.
func NewRootCommand(io iocli.IO, version string, open Opener) *cobra.Command {
	var flags Flags
	if open == nil {
		open = OpenApp
	}

	root := &cobra.Command{
		Use:           "fieldsync",
		Short:         "Offline-first field data client",
		Long:          "fieldsync stores field observations locally and synchronizes them with the server when online.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(io)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "path to config file (default: <data-dir>/config.yaml)")
	pf.StringVar(&flags.Server, "server", "", "server URL (overrides config)")
	pf.StringVar(&flags.DataDir, "data-dir", "", "local data directory (overrides config)")
	pf.BoolVar(&flags.Offline, "offline", false, "start with the network marked unavailable")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")

	// withApp открывает приложение на время выполнения команды
	withApp := func(requireDurable bool, run func(ctx context.Context, c *Cli, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), flags, requireDurable)
			if err != nil {
				if errors.Is(err, auth.ErrNoCredentials) {
					return errors.New("not logged in. Please run 'fieldsync login' first")
				}
				return err
			}
			defer a.Close()
			return run(cmd.Context(), New(io, a), args)
		}
	}

	var passwords Passwords
	register := &cobra.Command{
		Use:   "register [username]",
		Short: "Register a new user",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(false, func(ctx context.Context, c *Cli, args []string) error {
			return c.runRegister(ctx, args, passwords)
		}),
	}
	register.Flags().StringVar(&passwords.FromFile, "password-file", "", "read the password from a file")

	login := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and open the user's local store",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(false, func(ctx context.Context, c *Cli, args []string) error {
			return c.runLogin(ctx, args, passwords)
		}),
	}
	login.Flags().StringVar(&passwords.FromFile, "password-file", "", "read the password from a file")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Delete the local session",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, c *Cli, _ []string) error {
			return c.runLogout(ctx)
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show session and sync status",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, c *Cli, _ []string) error {
			return c.runStatus(ctx)
		}),
	}

	put := &cobra.Command{
		Use:   "put <type> [id] name=value...",
		Short: "Create or update a document",
		Long: "Create or update a document. Values are parsed as JSON when possible, otherwise as strings.\n" +
			"Scalar fields are overwritten, list fields are appended to. Without an id a new one is generated.",
		Example: "  fieldsync put observation obs-1 value=7 'media=[\"photo.jpg\"]'\n" +
			"  fieldsync put trial name=\"North field\"",
		Args: cobra.MinimumNArgs(2),
		RunE: withApp(true, func(ctx context.Context, c *Cli, args []string) error {
			id, assignments := "", args[1:]
			if _, _, ok := cutAssignment(args[1]); !ok {
				id, assignments = args[1], args[2:]
			}
			return c.runPut(ctx, args[0], id, assignments)
		}),
	}

	get := &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(true, func(ctx context.Context, c *Cli, args []string) error {
			return c.runGet(ctx, args[0], args[1])
		}),
	}

	list := &cobra.Command{
		Use:   "list <type>",
		Short: "List documents of one type",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(true, func(ctx context.Context, c *Cli, args []string) error {
			return c.runList(ctx, args[0])
		}),
	}

	del := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(true, func(ctx context.Context, c *Cli, args []string) error {
			return c.runDelete(ctx, args[0], args[1])
		}),
	}

	var pushOnly, pullOnly bool
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Push pending documents and pull server changes",
		Args:  cobra.NoArgs,
		RunE: withApp(true, func(ctx context.Context, c *Cli, _ []string) error {
			mode := SyncBoth
			switch {
			case pushOnly && pullOnly:
				return errors.New("--push and --pull are mutually exclusive")
			case pushOnly:
				mode = SyncPush
			case pullOnly:
				mode = SyncPull
			}
			return c.runSync(ctx, mode)
		}),
	}
	syncCmd.Flags().BoolVar(&pushOnly, "push", false, "only push pending documents")
	syncCmd.Flags().BoolVar(&pullOnly, "pull", false, "only pull server changes")

	conflicts := &cobra.Command{
		Use:   "conflicts",
		Short: "List open conflicts",
		Args:  cobra.NoArgs,
		RunE: withApp(true, func(ctx context.Context, c *Cli, _ []string) error {
			return c.runConflicts(ctx)
		}),
	}

	var resolveOpts ResolveOptions
	resolve := &cobra.Command{
		Use:   "resolve <type> <id>",
		Short: "Resolve a conflict",
		Example: "  fieldsync resolve observation obs-1 --strategy local\n" +
			"  fieldsync resolve observation obs-1 --strategy merge --pick value=remote --set note=checked",
		Args: cobra.ExactArgs(2),
		RunE: withApp(true, func(ctx context.Context, c *Cli, args []string) error {
			return c.runResolve(ctx, args[0], args[1], resolveOpts)
		}),
	}
	resolve.Flags().StringVar(&resolveOpts.Strategy, "strategy", "", "local, remote or merge")
	resolve.Flags().StringArrayVar(&resolveOpts.Pick, "pick", nil, "merge: take a field from one side, name=local|remote")
	resolve.Flags().StringArrayVar(&resolveOpts.Set, "set", nil, "merge: set a field explicitly, name=value")
	_ = resolve.MarkFlagRequired("strategy")

	var listen string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync daemon with the local UI API",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, c *Cli, _ []string) error {
			return c.runServe(ctx, listen)
		}),
	}
	serve.Flags().StringVar(&listen, "listen", DefaultListen, "address of the local API")

	root.AddCommand(register, login, logout, status, put, get, list, del, syncCmd, conflicts, resolve, serve)
	return root
}

// OpenApp loads the configuration and assembles the application.
func OpenApp(ctx context.Context, flags Flags, requireDurable bool) (*app.App, error) {
	cfg, err := LoadConfig(flags)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, NewLogger(flags.Verbose), app.Options{
		Online:         !flags.Offline,
		RequireDurable: requireDurable,
	})
}

// LoadConfig reads the config file and applies flag overrides.
func LoadConfig(flags Flags) (*config.Config, error) {
	path := flags.ConfigPath
	if path == "" {
		dir := flags.DataDir
		if dir == "" {
			dir = config.Default().DataDir
		}
		path = filepath.Join(dir, "config.yaml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flags.Server != "" {
		cfg.Server = flags.Server
	}
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger пишет в stderr, чтобы не смешивать логи с выводом команд
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
