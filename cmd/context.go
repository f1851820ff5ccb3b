package cmd

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maastricht-university/bestof/config"
	"github.com/maastricht-university/bestof/logging"
)

type flagBinding struct {
	key  string
	flag string
}

type commandContext struct {
	configFlag string
	v          *viper.Viper
	bindings   map[*cobra.Command][]flagBinding

	configOnce sync.Once
	config     *config.Root
	logger     *logrus.Logger
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{v: viper.New(), bindings: map[*cobra.Command][]flagBinding{}}
}

// bind routes flag of cmd into a config key once cmd is the one executing.
// Unset flags leave the key alone.
func (c *commandContext) bind(cmd *cobra.Command, key, flag string) {
	c.bindings[cmd] = append(c.bindings[cmd], flagBinding{key: key, flag: flag})
}

// applyBindings binds the flags of cmd and its parents.
func (c *commandContext) applyBindings(cmd *cobra.Command) error {
	for cur := cmd; cur != nil; cur = cur.Parent() {
		for _, b := range c.bindings[cur] {
			f := cur.Flags().Lookup(b.flag)
			if f == nil {
				f = cur.PersistentFlags().Lookup(b.flag)
			}
			if f == nil {
				return fmt.Errorf("bind %s: unknown flag --%s", b.key, b.flag)
			}
			if err := c.v.BindPFlag(b.key, f); err != nil {
				return fmt.Errorf("bind %s: %w", b.key, err)
			}
		}
	}
	return nil
}

func (c *commandContext) ensureConfig() (*config.Root, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(c.v, strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logging.New(cfg.Log.Level, cfg.Log.Format)
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *logrus.Logger {
	if c.logger == nil {
		return logging.New("info", "text")
	}
	return c.logger
}
