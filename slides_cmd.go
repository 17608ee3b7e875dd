package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dockens/stagehand/internal/relay"
)

var slidesCmd = &cobra.Command{
	Use:   "slides",
	Short: "Serve the slideshow relay",
	Long: paragraph(fmt.Sprintf("\nRun the %s relay: browsers connect over WebSockets and every posted event is mirrored to all of them. With a deck directory configured, file saves broadcast a %s event too.",
		keyword("slideshow"), keyword("reload"))),
	Args: cobra.NoArgs,
	RunE: runSlides,
}

func init() {
	slidesCmd.Flags().String("listen", "", "HTTP listen address")
	slidesCmd.Flags().String("deck-dir", "", "deck directory to serve and watch")
	_ = viper.BindPFlag("slides.listen", slidesCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("slides.deck_dir", slidesCmd.Flags().Lookup("deck-dir"))
}

func runSlides(*cobra.Command, []string) error {
	logger := log.Default().With("component", "slides")
	deckDir := viper.GetString("slides.deck_dir")

	hub := relay.NewHub(logger)
	defer hub.Close()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	hub.Routes(r, deckDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if deckDir != "" {
		watcher, err := relay.NewDeckWatcher(deckDir, hub, logger)
		if err != nil {
			return fmt.Errorf("unable to watch deck dir: %w", err)
		}
		go watcher.Run(ctx)
	}

	srv := &http.Server{
		Addr:              viper.GetString("slides.listen"),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("slideshow relay listening", "addr", srv.Addr, "deck", deckDir)
		errCh <- srv.ListenAndServe()
	}()

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
