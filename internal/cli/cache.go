package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/analogplace/pkg/cache"
	"github.com/matzehuels/analogplace/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the placement cache",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "solver config file selecting the cache backend")

	cmd.AddCommand(c.cacheClearCommand(&configPath))
	cmd.AddCommand(c.cachePathCommand(&configPath))

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached placements and renders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cacheConfig(*configPath)
			if err != nil {
				return err
			}
			store, err := cache.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open %s cache: %w", cfg.Backend, err)
			}
			defer store.Close()

			clearer, ok := store.(cache.Clearer)
			if !ok {
				printInfo("The %s cache cannot be cleared", cfg.Backend)
				return nil
			}
			count, err := clearer.Clear(cmd.Context())
			if err != nil {
				return err
			}
			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", count)
			if fc, ok := store.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cacheConfig(*configPath)
			if err != nil {
				return err
			}
			dir := cfg.Dir
			if dir == "" {
				if dir, err = cache.DefaultDir(); err != nil {
					return err
				}
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// cacheConfig returns the cache section of the config file, or the defaults.
func cacheConfig(path string) (config.Cache, error) {
	if path == "" {
		return config.Default().Cache, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Cache{}, err
	}
	return cfg.Cache, nil
}
