package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clearhealth/claimflow/internal/costing"
	"github.com/clearhealth/claimflow/internal/dispatch"
	"github.com/clearhealth/claimflow/internal/engine"
	"github.com/clearhealth/claimflow/internal/intake"
	"github.com/clearhealth/claimflow/internal/notify"
	"github.com/clearhealth/claimflow/internal/server"
	"github.com/clearhealth/claimflow/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the claim intake API and batching workers",
		RunE:  runServe,
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	calc := costing.NewCalculator(costing.FromConfig())
	notifier := buildNotifier()
	eng := engine.New(store, calc, notifier)

	viper.SetDefault("dispatch.workers", 4)
	viper.SetDefault("dispatch.queue_depth", 256)
	disp := dispatch.New(eng,
		viper.GetInt("dispatch.workers"),
		viper.GetInt("dispatch.queue_depth"))
	disp.Start(ctx)
	defer disp.Stop()

	intakeSvc := intake.NewService(store, calc, disp)
	srv := server.New(viper.GetString("server.addr"), intakeSvc, store)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

// buildNotifier wires the SMTP mailer when one is configured, and falls
// back to logging notifications otherwise.
func buildNotifier() service.Notifier {
	host := viper.GetString("mail.host")
	if host == "" {
		slog.Info("No mail host configured, notifications will be logged")
		return notify.LogNotifier{}
	}

	viper.SetDefault("mail.port", 587)
	notifier, err := notify.NewSMTPNotifier(notify.Config{
		Host:     host,
		Port:     viper.GetInt("mail.port"),
		Username: viper.GetString("mail.username"),
		Password: viper.GetString("mail.password"),
		From:     viper.GetString("mail.from"),
	})
	if err != nil {
		slog.Error("Mail configuration invalid, notifications will be logged", "error", err)
		return notify.LogNotifier{}
	}
	return notifier
}
