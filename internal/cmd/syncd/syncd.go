// Package syncd parses sync daemon flags and starts the synchronization
// runtime: local cache, remote store, unit catalog, push channel, and
// the controller tying them together.
package syncd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"

	"github.com/mekforge/forcesync/internal/catalog"
	catalogsqlite "github.com/mekforge/forcesync/internal/catalog/sqlite"
	"github.com/mekforge/forcesync/internal/nav"
	entrypoint "github.com/mekforge/forcesync/internal/platform/cmd"
	"github.com/mekforge/forcesync/internal/prompt"
	pushws "github.com/mekforge/forcesync/internal/push/ws"
	"github.com/mekforge/forcesync/internal/storage"
	"github.com/mekforge/forcesync/internal/storage/remote"
	storagesqlite "github.com/mekforge/forcesync/internal/storage/sqlite"
	"github.com/mekforge/forcesync/internal/syncctl"
)

// Config holds sync daemon configuration.
type Config struct {
	CachePath   string `env:"FORCESYNC_CACHE_PATH" envDefault:"data/forcesync.db"`
	CatalogPath string `env:"FORCESYNC_CATALOG_PATH" envDefault:"data/catalog.db"`
	RemoteURL   string `env:"FORCESYNC_REMOTE_URL"`
	RemoteToken string `env:"FORCESYNC_REMOTE_TOKEN"`
	PushURL     string `env:"FORCESYNC_PUSH_URL"`
	// InitialQuery seeds hydration, e.g. "instance=abc&units=Locust%20LCT-1V".
	InitialQuery string `env:"FORCESYNC_INITIAL_QUERY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "Path to the local force cache database")
	fs.StringVar(&cfg.CatalogPath, "catalog-path", cfg.CatalogPath, "Path to the unit catalog database")
	fs.StringVar(&cfg.RemoteURL, "remote-url", cfg.RemoteURL, "Base URL of the remote force store")
	fs.StringVar(&cfg.PushURL, "push-url", cfg.PushURL, "WebSocket URL of the push channel")
	fs.StringVar(&cfg.InitialQuery, "query", cfg.InitialQuery, "Initial query string to hydrate from")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the synchronization daemon.
func Run(ctx context.Context, cfg Config) error {
	initial, err := url.ParseQuery(cfg.InitialQuery)
	if err != nil {
		return fmt.Errorf("parse initial query: %w", err)
	}

	local, err := storagesqlite.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer local.Close()

	cat, err := catalogsqlite.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSyncd, func(ctx context.Context) error {
		var remoteStore storage.Remote
		if cfg.RemoteURL != "" {
			remoteStore = remote.NewClient(cfg.RemoteURL, cfg.RemoteToken)
		}

		opts := syncctl.Options{
			Store:     storage.NewComposite(local, remoteStore),
			Navigator: nav.NewMemory(initial),
			Catalog:   cat,
			Notifier:  logNotifier{},
			Prompter:  keepLocalPrompter{},
		}
		if cfg.PushURL != "" {
			channel := pushws.NewClient(cfg.PushURL)
			go channel.Run(ctx)
			opts.Channel = channel
		}

		ctrl, err := syncctl.New(opts)
		if err != nil {
			return err
		}
		return ctrl.Run(ctx)
	})
}

// logNotifier surfaces passive notices on the daemon log. An embedding
// frontend replaces this with its own toast surface.
type logNotifier struct{}

func (logNotifier) Notify(message string) { log.Printf("notice: %s", message) }

// keepLocalPrompter is the headless conflict policy: without a user to
// ask, local edits win and the conflict is logged so it stays auditable.
type keepLocalPrompter struct{}

func (keepLocalPrompter) Choose(_ context.Context, title, message string, _ []string) string {
	log.Printf("conflict: %s: %s (headless policy: keep local)", title, message)
	return prompt.ChoiceKeepLocal
}

var _ catalog.Catalog = (*catalogsqlite.Store)(nil)
