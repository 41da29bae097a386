package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleargate/pamapi/internal/audit"
	"github.com/cleargate/pamapi/internal/db/bunx"
	"github.com/cleargate/pamapi/internal/policy"
	"github.com/cleargate/pamapi/internal/repository"
	"github.com/cleargate/pamapi/internal/server"
	"github.com/cleargate/pamapi/internal/services/iam"
	"github.com/cleargate/pamapi/internal/store"
	"github.com/cleargate/pamapi/internal/token"
	"github.com/cleargate/pamapi/internal/vault"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the access-control API server",
	Long:  `Starts the HTTP server exposing login, authorization and vault endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Connect to the audit database
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to audit database")

		// Audit trail: append-only text sink plus the events table.
		sink, err := audit.OpenSink(cfg.AuditLogPath)
		if err != nil {
			return fmt.Errorf("open audit log %s: %w", cfg.AuditLogPath, err)
		}
		defer sink.Close()

		auditLogger := audit.New(audit.Options{
			Sink:   sink,
			Events: repository.NewBunAuditEventRepository(db),
		})
		defer auditLogger.Close()

		// Bootstrap principals and secrets.
		principals, err := store.SeedPrincipalStore()
		if err != nil {
			return fmt.Errorf("seed principal store: %w", err)
		}

		if cfg.InsecureSigningKey {
			log.Printf("WARNING: SIGNING_KEY not set, using insecure development default")
		}
		tokens, err := token.NewManager(cfg.SigningKey)
		if err != nil {
			return fmt.Errorf("configure token manager: %w", err)
		}

		engine, err := policy.NewEngine(policy.DefaultPolicy())
		if err != nil {
			return fmt.Errorf("configure policy engine: %w", err)
		}

		svc, err := iam.NewService(iam.Dependencies{
			Principals: principals,
			Tokens:     tokens,
			Policy:     engine,
			Vault:      vault.New(store.SeedSecretStore()),
			Audit:      auditLogger,
		})
		if err != nil {
			return fmt.Errorf("create access service: %w", err)
		}

		handler := server.NewH2CHandler(server.RouterOptions{
			Service: svc,
			Audit:   auditLogger,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Wait for interrupt signal
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
