package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/handiism/imagenet-downloader/internal/config"
	"github.com/handiism/imagenet-downloader/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	settingsOnce sync.Once
	settings     *config.Settings
	settingsErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() (string, error) {
	if c.configFlag != nil {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			return path, nil
		}
	}
	return config.DefaultPath()
}

func (c *commandContext) ensureSettings() (*config.Settings, error) {
	c.settingsOnce.Do(func() {
		path, err := c.configPath()
		if err != nil {
			c.settingsErr = fmt.Errorf("determine config path: %w", err)
			return
		}
		settings, err := config.Load(path)
		if err != nil {
			c.settingsErr = fmt.Errorf("load config %s: %w", path, err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			settings.Logging.Level = *c.logLevelFlag
		}
		c.settings = settings
	})
	return c.settings, c.settingsErr
}

func (c *commandContext) logger(w io.Writer) (*slog.Logger, error) {
	settings, err := c.ensureSettings()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Writer: w,
	})
}
