package main

import (
	"sync"

	"github.com/VitaminP8/trackid/internal/reputation"
	"github.com/VitaminP8/trackid/internal/storage"

	"github.com/spf13/cobra"
)

type storeOpener func(kind string) (*storage.Stores, error)

type commandContext struct {
	storageFlag *string
	open        storeOpener

	once      sync.Once
	stores    *storage.Stores
	storesErr error
}

func (c *commandContext) ensureStores() (*storage.Stores, error) {
	c.once.Do(func() {
		c.stores, c.storesErr = c.open(*c.storageFlag)
	})
	return c.stores, c.storesErr
}

func (c *commandContext) aggregator() (*reputation.Aggregator, error) {
	stores, err := c.ensureStores()
	if err != nil {
		return nil, err
	}
	return reputation.NewAggregator(stores.Ledger, stores.Users, nil), nil
}

func (c *commandContext) close() error {
	if c.stores == nil {
		return nil
	}
	return c.stores.Close()
}

func newRootCommand(open storeOpener) *cobra.Command {
	var storageFlag string
	ctx := &commandContext{storageFlag: &storageFlag, open: open}

	rootCmd := &cobra.Command{
		Use:           "trackctl",
		Short:         "Track ID administration CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&storageFlag, "storage", storage.KindPostgres, "Storage backend: memory or postgres")

	rootCmd.AddCommand(newKarmaCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newUserCommand(ctx))

	return rootCmd
}
