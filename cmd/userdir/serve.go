package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/mentionserve/pkg/directory"
	"github.com/bastiangx/mentionserve/pkg/lookup"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	listenAddr string
	limitCap   int
	withAdmin  bool
)

// serveCmd serves the search endpoint
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the user search endpoint",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address, overrides [directory] listen")
	serveCmd.Flags().IntVar(&limitCap, "cap", directory.DefaultCap, "Most users returned per search")
	serveCmd.Flags().BoolVar(&withAdmin, "admin", false, "Also serve POST/DELETE "+directory.AdminPath)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir, err := directory.Load(ctx, store)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	addr := listenAddr
	if addr == "" {
		addr = cfg.Directory.Listen
	}
	path := cfg.Lookup.Path
	if path == "" {
		path = lookup.DefaultPath
	}
	mux := directory.Mux(directory.NewHandler(dir, limitCap), path)
	if withAdmin {
		directory.NewAdmin(dir).Register(mux)
		log.Infof("Admin routes enabled at %s", directory.AdminPath)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Serving %d users on %s%s", dir.Len(), addr, path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
