// Package app wires the nations runtime: storage, managers, gateway, and
// the interactive console lifecycle.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/TinyAII/dqcq/internal/services/nations/diplomacy"
	"github.com/TinyAII/dqcq/internal/services/nations/economy"
	"github.com/TinyAII/dqcq/internal/services/nations/gateway"
	"github.com/TinyAII/dqcq/internal/services/nations/membership"
	"github.com/TinyAII/dqcq/internal/services/nations/profile"
	"github.com/TinyAII/dqcq/internal/services/nations/storage/sqlite"
	"github.com/TinyAII/dqcq/internal/services/nations/war"
)

// App owns the nations storage handle and command gateway.
type App struct {
	store   *sqlite.Store
	gateway *gateway.Gateway
}

// New opens the store at dbPath and wires the managers and gateway.
func New(dbPath string) (*App, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "nations.db")
	}
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open nations store: %w", err)
	}

	managers := gateway.Managers{
		Membership: membership.NewManager(store),
		Economy:    economy.NewManager(store),
		War:        war.NewManager(store),
		Diplomacy:  diplomacy.NewManager(store),
		Profile:    profile.NewManager(store),
	}
	return &App{
		store:   store,
		gateway: gateway.New(managers),
	}, nil
}

// Gateway returns the command gateway.
func (a *App) Gateway() *gateway.Gateway {
	if a == nil {
		return nil
	}
	return a.gateway
}

// Close releases the storage handle.
func (a *App) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Serve runs a line-oriented console over input, dispatching each line as
// one command for the given caller, until input ends or ctx is canceled.
func (a *App) Serve(ctx context.Context, input io.Reader, output io.Writer, identity, displayName string) error {
	if a == nil || a.gateway == nil {
		return errors.New("app is not configured")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return errors.New("caller identity is required")
	}

	log.Printf("nations console ready for %s", identity)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Printf("nations console shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read console input: %w", err)
					}
				default:
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			reply := a.gateway.Handle(ctx, identity, displayName, line)
			fmt.Fprintln(output, reply)
		}
	}
}
