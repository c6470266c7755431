package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/whydoesntmycode/blog/internal/auth"
	"github.com/whydoesntmycode/blog/internal/config"
	"github.com/whydoesntmycode/blog/internal/logger"
	"github.com/whydoesntmycode/blog/internal/render"
	"github.com/whydoesntmycode/blog/internal/repository"
	"github.com/whydoesntmycode/blog/internal/routes"
	"github.com/whydoesntmycode/blog/internal/sse"
	"github.com/whydoesntmycode/blog/internal/watch"
)

var mainLogger zerolog.Logger

func setLoggers(l zerolog.Logger) {
	mainLogger = l
	config.SetLogger(l.With().Str("component", "config").Logger())
	render.SetLogger(l.With().Str("component", "render").Logger())
	repository.SetLogger(l.With().Str("component", "repository").Logger())
	auth.SetLogger(l.With().Str("component", "auth").Logger())
	watch.SetLogger(l.With().Str("component", "watch").Logger())
	routes.SetLogger(l.With().Str("component", "http").Logger())
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("debug") {
		cfg.Content.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("watch") {
		cfg.Content.Watch = cmd.Bool("watch")
	}
	if posts := cmd.String("posts"); posts != "" {
		cfg.Content.PostsDir = posts
	}
	if cmd.IsSet("log-level") {
		cfg.Logging.Level = cmd.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newStore(cfg *config.Config, verifier repository.Verifier) *repository.Store {
	renderer := render.New(render.Options{
		SyntaxTheme: cfg.Theme.Syntax,
		Engine:      cfg.Content.Renderer,
		LineNumbers: cfg.Theme.LineNumbers,
	})

	opts := []repository.LoaderOption{
		repository.WithDebug(cfg.Content.Debug),
		repository.WithExtensions(cfg.Content.Extensions),
	}
	if cfg.Content.Workers > 0 {
		opts = append(opts, repository.WithWorkers(cfg.Content.Workers))
	}

	loader := repository.NewLoader(cfg.Content.PostsDir, renderer, opts...)
	return repository.NewStore(loader, cfg.FeedMeta(), verifier)
}

func listen(cfg *config.Config) (net.Listener, error) {
	if path := cfg.Server.SocketPath; path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale socket %s: %w", path, err)
		}
		return net.Listen("unix", path)
	}
	return net.Listen("tcp", cfg.Server.Address())
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	setLoggers(logger.New(cfg.Logging.Level, cfg.Logging.Format))

	token := cfg.Admin.Token
	if token == "" {
		token = os.Getenv("ADMIN_TOKEN")
	}
	secret, err := auth.ResolveAdminToken(token, cfg.Admin.TokenFile)
	if err != nil {
		return fmt.Errorf("failed to set up admin token: %w", err)
	}

	if cfg.Content.Debug {
		mainLogger.Warn().Msg("Debug mode: unpublished and future posts are served")
	}

	store := newStore(cfg, secret)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to load posts from %s: %w", cfg.Content.PostsDir, err)
	}

	clients := sse.NewSSEClients()
	store.SetReloadNotifier(clients.NotifyReload)

	server, err := routes.New(cfg, store, clients, secret)
	if err != nil {
		return fmt.Errorf("failed to build routes: %w", err)
	}

	httpServer := &http.Server{
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := listen(cfg)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Content.Watch {
		g.Go(func() error {
			mainLogger.Info().Str("dir", cfg.Content.PostsDir).Msg("Watching posts directory")
			return watch.Watch(gCtx, cfg.Content.PostsDir, watch.DefaultDebounce, store.Refresh)
		})
	}

	g.Go(func() error {
		mainLogger.Info().Str("address", ln.Addr().String()).Msg("Starting server")
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		mainLogger.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracePeriod())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			mainLogger.Error().Err(err).Msg("HTTP server shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	mainLogger.Info().Msg("Server stopped")
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "whydoesntmycode",
		Usage:  "Serve a markdown blog with an Atom feed",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "posts",
				Usage:   "Directory to load posts from, overrides content.posts_dir",
				Sources: cli.EnvVars("POSTS_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Serve unpublished and future-dated posts",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload posts when the posts directory changes",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
