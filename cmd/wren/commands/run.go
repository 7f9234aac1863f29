package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wrenbot/wren/pkg/wren/config"
	"github.com/wrenbot/wren/pkg/wren/dispatch"
	"github.com/wrenbot/wren/pkg/wren/gateway"
	"github.com/wrenbot/wren/pkg/wren/gateway/discord"
	"github.com/wrenbot/wren/pkg/wren/tracker"
)

// newRunCmd creates the `wren run` command that connects the bot.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and dispatch commands",
		Long: `Connect the bot to Discord and dispatch incoming messages and
interactions to the registered commands.

Examples:
  wren run
  wren run --config ./wren.yaml`,
		RunE: runBot,
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logger := newLogger(cfg.Logging, verbose)

	client, err := discord.New(cfg.Token, logger)
	if err != nil {
		return err
	}

	opts := buildOptions(cfg, logger)
	framework := dispatch.New(client, opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting wren", "prefix", cfg.Prefix, "edit_tracking", cfg.EditTracking.Enabled)
	return framework.Run(ctx)
}

func newLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || cfg.Level == "debug" {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// buildOptions assembles the framework options with the built-in demo
// commands.
func buildOptions(cfg *config.Config, logger *slog.Logger) *dispatch.Options {
	opts := dispatch.DefaultOptions()
	opts.Logger = logger
	opts.Prefix = cfg.Prefix
	opts.MentionAsPrefix = cfg.MentionAsPrefix
	opts.CaseInsensitiveCommands = cfg.CaseInsensitiveCommands
	opts.ExecuteSelfMessages = cfg.ExecuteSelfMessages
	opts.Owners = cfg.Owners
	opts.Typing = dispatch.TypingBehavior{
		Broadcast: cfg.Typing.Enabled,
		Delay:     cfg.Typing.Delay(),
	}
	for _, p := range cfg.AdditionalPrefixes {
		opts.AdditionalPrefixes = append(opts.AdditionalPrefixes, dispatch.LiteralPrefix(p))
	}
	if cfg.EditTracking.Enabled {
		opts.EditTracker = tracker.New(cfg.EditTracking.Retention(), logger)
	}

	tracked := true
	ownersOnly := true
	banPerms := gateway.PermissionBanMembers

	opts.Commands = []*dispatch.Command{
		{
			Name:        "ping",
			Aliases:     []string{"pong"},
			Description: "Check that the bot is alive",
			TrackEdits:  &tracked,
			Run: func(ctx context.Context, inv *dispatch.Invocation, _ string) error {
				return inv.Say(ctx, "Pong!")
			},
		},
		{
			Name:        "echo",
			Aliases:     []string{"say"},
			Description: "Repeat the given text",
			TrackEdits:  &tracked,
			Run: func(ctx context.Context, inv *dispatch.Invocation, args string) error {
				if strings.TrimSpace(args) == "" {
					return inv.Say(ctx, "Nothing to echo.")
				}
				return inv.Say(ctx, args)
			},
		},
		{
			Name:        "admin",
			Description: "Moderation commands",
			Subcommands: []*dispatch.Command{
				{
					Name:                "ban",
					Description:         "Pretend to ban a user",
					RequiredPermissions: &banPerms,
					Run: func(ctx context.Context, inv *dispatch.Invocation, args string) error {
						target := strings.TrimSpace(args)
						if target == "" {
							return inv.Say(ctx, "Usage: admin ban <user>")
						}
						return inv.Say(ctx, fmt.Sprintf("Banned %s (not really).", target))
					},
				},
			},
			Run: func(ctx context.Context, inv *dispatch.Invocation, _ string) error {
				return inv.Say(ctx, "Usage: admin <ban> [args...]")
			},
		},
		{
			Name:        "shutdown",
			Description: "Stop the bot",
			OwnersOnly:  &ownersOnly,
			Run: func(ctx context.Context, inv *dispatch.Invocation, _ string) error {
				if err := inv.Say(ctx, "Shutting down."); err != nil {
					return err
				}
				return syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
			},
		},
	}

	opts.Setup = func(_ context.Context, ready *gateway.Ready, _ *dispatch.Framework) (any, error) {
		logger.Info("bot ready", "user_id", ready.User.ID, "username", ready.User.Username)
		return struct{}{}, nil
	}
	return opts
}
