// ABOUTME: Builds the client facade, session store and router for a command
// ABOUTME: Registers the store and router with the facade before any request

package cmd

import (
	"fmt"

	"github.com/markalston/record-admin/internal/client"
	"github.com/markalston/record-admin/internal/config"
	"github.com/markalston/record-admin/internal/logging"
	"github.com/markalston/record-admin/internal/router"
	"github.com/markalston/record-admin/internal/session"
	"go.uber.org/zap"
)

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	client *client.Client
	store  *session.Store
	router *router.Router
}

// loadConfig reads the configuration and applies the --api-url flag
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		return cfg.WithAPIURL(apiURL)
	}
	return cfg, nil
}

// newApp wires one object graph. The invalidator and navigator are
// registered before the graph is returned, so no request can fail with
// 401/403 before the facade knows where to send the user.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	jar, err := client.NewFileJar(cfg.API.URL, client.DefaultCookiePath(cfg.ConfigDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie jar: %w", err)
	}

	c := client.New(cfg.API.URL,
		client.WithTimeout(cfg.API.Timeout),
		client.WithJar(jar),
		client.WithLogger(logger.Named("client")))
	store := session.New(c, session.NewFileCache(cfg.ConfigDir), logger.Named("session"))
	r := router.New(store, logger.Named("router"))

	c.SetInvalidator(store)
	c.SetNavigator(r)

	return &app{cfg: cfg, logger: logger, client: c, store: store, router: r}, nil
}

// setupCLI wires a graph that logs to stderr
func setupCLI() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewStderr(cfg.Log)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger)
}
