package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	imagesweep "github.com/anatolykoptev/go-imagesweep"
	"github.com/anatolykoptev/go-imagesweep/hashcache"
	"github.com/anatolykoptev/go-imagesweep/internal/logging"
	"github.com/anatolykoptev/go-imagesweep/internal/settings"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	once       sync.Once
	settings   *settings.Settings
	configPath string
	logger     *slog.Logger
	runID      string
	err        error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

// ensure loads settings and builds the run logger once per invocation.
func (c *commandContext) ensure() error {
	c.once.Do(func() {
		s, path, _, err := settings.Load(flagValue(c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		if v := flagValue(c.logLevelFlag); v != "" {
			s.Logging.Level = v
		}
		if v := flagValue(c.logFormatFlag); v != "" {
			s.Logging.Format = v
		}

		outputs := []string{"stderr"}
		if s.Logging.File != "" {
			outputs = append(outputs, s.Logging.File)
		}
		logger, err := logging.New(logging.Options{
			Level:       s.Logging.Level,
			Format:      s.Logging.Format,
			OutputPaths: outputs,
		})
		if err != nil {
			c.err = err
			return
		}

		c.runID = uuid.NewString()
		c.logger = logging.WithRun(logger, c.runID)
		c.settings = s
		c.configPath = path
	})
	return c.err
}

// library builds a library Config from the loaded settings. The returned
// func releases the fingerprint cache.
func (c *commandContext) library() (*imagesweep.Config, func()) {
	cfg := c.settings.Library()
	cfg.Logger = c.logger

	release := func() {}
	if c.settings.Cache.Enabled {
		store, err := hashcache.Open(c.settings.Cache.Path, c.logger)
		if err != nil {
			c.logger.Warn("imagesweep: fingerprint cache unavailable", "path", c.settings.Cache.Path, "error", err)
		} else {
			cfg.Cache = store
			release = func() {
				if err := store.Close(); err != nil {
					c.logger.Warn("imagesweep: close fingerprint cache", "error", err)
				}
			}
		}
	}
	return cfg, release
}

func flagValue(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
