// Package nations parses nations service flags and launches the console.
package nations

import (
	"context"
	"flag"
	"os"

	entrypoint "github.com/TinyAII/dqcq/internal/platform/cmd"
	"github.com/TinyAII/dqcq/internal/services/nations/app"
)

// Config holds nations command configuration.
type Config struct {
	DBPath      string `env:"DQCQ_NATIONS_DB_PATH" envDefault:"data/nations.db"`
	Identity    string `env:"DQCQ_NATIONS_IDENTITY" envDefault:"console"`
	DisplayName string `env:"DQCQ_NATIONS_DISPLAY_NAME"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the nations SQLite database")
	fs.StringVar(&cfg.Identity, "identity", cfg.Identity, "Caller identity for console commands")
	fs.StringVar(&cfg.DisplayName, "name", cfg.DisplayName, "Caller display name for console commands")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = cfg.Identity
	}
	return cfg, nil
}

// Run starts the nations console service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceNations, func(ctx context.Context) error {
		application, err := app.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer application.Close()
		return application.Serve(ctx, os.Stdin, os.Stdout, cfg.Identity, cfg.DisplayName)
	})
}
