/*
 MIT License

 (C) Copyright 2026 RedMane Technology LLC

 Permission is hereby granted, free of charge, to any person obtaining a
 copy of this software and associated documentation files (the "Software"),
 to deal in the Software without restriction, including without limitation
 the rights to use, copy, modify, merge, publish, distribute, sublicense,
 and/or sell copies of the Software, and to permit persons to whom the
 Software is furnished to do so, subject to the following conditions:

 The above copyright notice and this permission notice shall be included
 in all copies or substantial portions of the Software.

 THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 OTHER DEALINGS IN THE SOFTWARE.
*/

package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/RedMane/ipam-engine/pkg/api"
	"github.com/RedMane/ipam-engine/pkg/docstore"
	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/space"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the IPAM REST API",
	Long: `Serve the IPAM REST API over the configured document store.

	Example: ipam serve --listen :8080 --store file --data-dir /var/lib/ipam

	Stores: memory (development), file (one JSON document per space under
	--data-dir), etcd (--etcd-endpoints). With --azure-subscription the
	network inventory is read from Azure; with --inventory-file it is a
	fixed snapshot loaded from a YAML or JSON file; otherwise it is
	empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.BindPFlags(cmd.Flags())
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", ":8080", "Address to serve the API on")
	serveCmd.Flags().String("store", "file", "Document store backend: memory, file, or etcd")
	serveCmd.Flags().String("data-dir", "ipam-data", "Data directory for the file store")
	serveCmd.Flags().StringSlice("etcd-endpoints", []string{"127.0.0.1:2379"}, "etcd endpoints for the etcd store")
	serveCmd.Flags().String("azure-subscription", "", "Azure subscription to read the network inventory from")
	serveCmd.Flags().String("inventory-file", "", "YAML or JSON file holding a fixed network inventory snapshot")
	serveCmd.Flags().Duration("shutdown-grace", 0, "How long to drain connections on shutdown")
}

func buildStore(cfg Config, logger *zap.Logger) (docstore.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return docstore.NewMemStore(), func() {}, nil
	case "file":
		store, err := docstore.NewFileStore(cfg.DataDir, logger)
		return store, func() {}, err
	case "etcd":
		store, err := docstore.NewEtcdStore(cfg.EtcdEndpoints)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, errors.New("unknown store backend: " + cfg.Store)
	}
}

func buildInventory(cfg Config) (inventory.Provider, error) {
	if cfg.AzureSubscription != "" {
		return inventory.NewAzure(cfg.AzureSubscription)
	}
	if cfg.InventoryFile != "" {
		return inventory.NewFromFile(cfg.InventoryFile)
	}
	return &inventory.Static{}, nil
}

func serve(cfg Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	inv, err := buildInventory(cfg)
	if err != nil {
		return err
	}

	svc := space.New(store, inv, logger)
	handler := api.NewHandler(svc, nil, logger)

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: handler.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx := context.Background()
		if cfg.ShutdownGrace > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, cfg.ShutdownGrace)
			defer cancel()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Println("shutdown:", err)
		}
	}()

	logger.Info("serving IPAM API",
		zap.String("listen", cfg.Listen),
		zap.String("store", cfg.Store),
	)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
