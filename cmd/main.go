package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"calnotify/internal/autostart"
	"calnotify/internal/caldav"
	"calnotify/internal/config"
	"calnotify/internal/display"
	"calnotify/internal/google"
	"calnotify/internal/notify"
	"calnotify/internal/poller"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:   "calnotify",
		Usage:  "Show a desktop notification for each of today's calendar events and tasks.",
		Flags:  runFlags(),
		Action: runAction,
		Commands: []*cli.Command{
			runCommand(),
			authCommand(),
			autostartCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Value: config.DefaultPath, EnvVars: []string{"CALNOTIFY_CONFIG"}, Usage: "Path to the YAML config file."},
		&cli.BoolFlag{Name: "once", Usage: "Run a single poll cycle and exit."},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Poll for today's events and tasks and notify about new ones. This is the default.",
		Flags:  runFlags(),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(cfg.LogLevel)

	if msg := platformWarning(runtime.GOOS); msg != "" {
		fmt.Println(msg)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	dispatcher, err := newDispatcher(logger, cfg)
	if err != nil {
		return err
	}

	fetcher, err := newFetcher(c.Context, logger, cfg, loc)
	if err != nil {
		return fmt.Errorf("failed to set up %s source: %w", cfg.Source, err)
	}

	clock := poller.SystemClock{Location: loc}
	waiter, err := poller.NewScheduleWaiter(cfg.PollSchedule, clock)
	if err != nil {
		return err
	}

	p := poller.NewPoller(logger, fetcher, dispatcher, display.NewFormatter(loc), clock, waiter)

	if c.Bool("once") {
		logger.Info("Running a single poll cycle.")
		p.RunOnce(c.Context)
		return nil
	}

	logger.Info("Starting notifier.", "source", cfg.Source, "schedule", cfg.PollSchedule, "notifier", dispatcher.Path())
	if err := p.Run(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newDispatcher(logger *slog.Logger, cfg *config.Config) (*notify.Dispatcher, error) {
	path := cfg.Notifier.Path
	if path == "" {
		var err error
		path, err = notify.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return notify.NewDispatcher(logger, path, cfg.Notifier.Args...), nil
}

// platformWarning returns the line printed at startup when running outside
// Windows, or "" on Windows.
func platformWarning(goos string) string {
	if goos == "windows" {
		return ""
	}
	return "This program uses Windows toast notifications; run on Windows or set NOTIFIER_PATH."
}

func newFetcher(ctx context.Context, logger *slog.Logger, cfg *config.Config, loc *time.Location) (poller.Fetcher, error) {
	switch cfg.Source {
	case config.SourceCalDAV:
		return caldav.NewClient(ctx, logger, caldav.Options{
			Endpoint:     cfg.CalDAV.Endpoint,
			Username:     cfg.CalDAV.Username,
			Password:     cfg.CalDAV.Password,
			CalendarName: cfg.CalDAV.CalendarName,
			TaskListName: cfg.CalDAV.TaskListName,
			Location:     loc,
		})
	default:
		oauthConfig, err := google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.ClientSecretsFile)
		if err != nil {
			return nil, err
		}
		httpClient, err := google.HTTPClient(ctx, logger, oauthConfig, cfg.Google.TokenFile, printAuthURL)
		if err != nil {
			return nil, err
		}
		return google.NewClient(ctx, logger, httpClient, cfg.Google.CalendarID, cfg.Google.TaskList)
	}
}

func printAuthURL(authURL string) {
	fmt.Printf("Go to the following link in your browser to authorize calnotify: \n%v\n", authURL)
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize read-only access to Google Calendar and Tasks and cache the token.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath, EnvVars: []string{"CALNOTIFY_CONFIG"}, Usage: "Path to the YAML config file."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"), os.Getenv)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := setupLogger(cfg.LogLevel)
			logger.Info("Starting Google authorization flow.")

			oauthConfig, err := google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.ClientSecretsFile)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			token, err := google.Authorize(c.Context, oauthConfig, printAuthURL)
			if err != nil {
				return err
			}
			if err := google.SaveToken(cfg.Google.TokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authorized and saved token.", "file", cfg.Google.TokenFile)
			return nil
		},
	}
}

func autostartCommand() *cli.Command {
	configFlag := &cli.StringFlag{Name: "config", Value: config.DefaultPath, EnvVars: []string{"CALNOTIFY_CONFIG"}, Usage: "Config file the login item will use."}

	toggle := func(enable bool) cli.ActionFunc {
		return func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			configPath, err := filepath.Abs(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
			app, err := autostart.App("run", "--config", configPath)
			if err != nil {
				return err
			}
			return autostart.Set(logger, app, enable)
		}
	}

	return &cli.Command{
		Name:  "autostart",
		Usage: "Manage launching calnotify at login.",
		Subcommands: []*cli.Command{
			{Name: "enable", Usage: "Launch calnotify at login.", Flags: []cli.Flag{configFlag}, Action: toggle(true)},
			{Name: "disable", Usage: "Stop launching calnotify at login.", Action: toggle(false)},
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
