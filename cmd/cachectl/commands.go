package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phucquyet1202/EtaxiBE/pkg/di"
)

type cli struct {
	configPath string
	timeout    time.Duration
	container  *di.Container
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "cachectl",
		Short:         "Inspect and clear the query cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "Timeout for cache calls")

	rootCmd.AddCommand(
		c.healthCmd(),
		c.infoCmd(),
		c.invalidateCmd(),
		c.invalidateAllCmd(),
	)
	return rootCmd
}

// open builds a cache-only container; the database section is ignored.
func (c *cli) open() error {
	cfg, err := di.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	cfg.DB = di.DBConfig{}

	c.container, err = di.NewContainer(cfg)
	return err
}

func (c *cli) close() error {
	if c.container == nil {
		return nil
	}
	return c.container.Close()
}

func withTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the cache store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, c.timeout)
			defer cancel()

			if !c.container.Facade().HealthCheck(ctx) {
				return fmt.Errorf("cache store is unreachable")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func (c *cli) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print key count and store details as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, c.timeout)
			defer cancel()

			info, ok := c.container.Facade().CacheInfo(ctx)
			if !ok {
				return fmt.Errorf("cache info unavailable")
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func (c *cli) invalidateCmd() *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "invalidate <resource>",
		Short: "Remove the cached reads of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, c.timeout)
			defer cancel()

			removed := c.container.Facade().InvalidateModel(ctx, args[0], pattern)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d keys\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob to remove instead of every key of the resource")
	return cmd
}

func (c *cli) invalidateAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate-all",
		Short: "Remove every key under the configured prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, c.timeout)
			defer cancel()

			removed := c.container.Facade().InvalidateAll(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d keys\n", removed)
			return nil
		},
	}
}
