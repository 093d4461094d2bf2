// Command trackctl выполняет административные операции над хранилищем: карма, очередь модерации, роли.
package main

import (
	"fmt"
	"os"

	"github.com/VitaminP8/trackid/internal/config"
	"github.com/VitaminP8/trackid/internal/storage"
)

func main() {
	cmd := newRootCommand(openStores)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStores(kind string) (*storage.Stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return storage.Open(kind, cfg.DSN())
}
