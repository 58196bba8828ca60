package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/bootstrap"
	"github.com/kdimtricp/signlang/internal/config"
	"github.com/kdimtricp/signlang/internal/database"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// log returns the CLI logger. Without --verbose only errors reach stderr.
func (c *commandContext) log() *zap.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = zap.NewNop()
			return
		}
		verbose := c.verbose != nil && *c.verbose
		logger, err := bootstrap.NewLogger(cfg, !verbose)
		if err != nil {
			c.logger = zap.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) withDB(ctx context.Context, fn func(*database.DB) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	db, err := bootstrap.OpenDatabase(ctx, cfg, c.log())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
