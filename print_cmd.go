package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dockens/stagehand/internal/printer"
	"github.com/dockens/stagehand/internal/printserver"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Serve the receipt printer HTTP API",
	Long: paragraph(fmt.Sprintf("\nKeep the Bluetooth %s alive and serve an HTTP API for printing during the talk. The printer is paired, connected, and repaired on demand; slides just POST to %s.",
		keyword("receipt printer"), keyword("/api/print"))),
	Args: cobra.NoArgs,
	RunE: runPrintServer,
}

func init() {
	printCmd.Flags().String("address", "", "Bluetooth MAC address of the printer")
	printCmd.Flags().String("device", "", "RFCOMM device node")
	printCmd.Flags().String("listen", "", "HTTP listen address")
	_ = viper.BindPFlag("printer.address", printCmd.Flags().Lookup("address"))
	_ = viper.BindPFlag("printer.device", printCmd.Flags().Lookup("device"))
	_ = viper.BindPFlag("printer.listen", printCmd.Flags().Lookup("listen"))
}

func runPrintServer(*cobra.Command, []string) error {
	cfg := printerConfig()
	if cfg.DeviceAddress == "" {
		return errors.New("printer.address is not configured")
	}

	logger := log.Default().With("component", "printer")

	// The worker is this same binary; it keeps the serial port open in its
	// own process so a wedged port never takes the server down.
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("unable to locate own executable: %w", err)
	}
	spawner := printer.NewCommandSpawner(exe,
		[]string{"print-worker", "--device", cfg.DevicePath, "--baud", fmt.Sprint(cfg.BaudRate)},
		logger)

	control := printer.NewBluetoothctlControl(cfg, logger)
	probe := printer.NewProbe(cfg, control)
	manager := printer.NewManager(cfg, control, probe, spawner, logger)
	defer manager.Close()

	srv := &http.Server{
		Addr:              viper.GetString("printer.listen"),
		Handler:           printserver.New(manager, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("print server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
