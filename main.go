// Package main provides the entry point for the stagehand CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dockens/stagehand/internal/printer"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string

	rootCmd = &cobra.Command{
		Use:   "stagehand",
		Short: "Backstage glue for live conference demos",
		Long: paragraph(
			fmt.Sprintf("\nBackstage glue for live conference demos: a %s relay, canned %s, and a stubbornly self-healing %s.",
				keyword("slideshow"), keyword("narration"), keyword("receipt printer")),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
	}
)

func printerConfig() printer.Config {
	cfg := printer.DefaultConfig()
	cfg.DeviceAddress = viper.GetString("printer.address")
	cfg.DevicePath = viper.GetString("printer.device")
	cfg.PairingPIN = viper.GetString("printer.pin")
	if baud := viper.GetInt("printer.baud"); baud != 0 {
		cfg.BaudRate = baud
	}
	if d := viper.GetDuration("printer.job_timeout"); d != 0 {
		cfg.JobTimeout = d
	}
	if d := viper.GetDuration("printer.startup_timeout"); d != 0 {
		cfg.StartupTimeout = d
	}
	if d := viper.GetDuration("printer.keepalive"); d >= 0 {
		cfg.KeepaliveInterval = d
	}
	return cfg
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))

	viper.SetDefault("printer.address", "")
	viper.SetDefault("printer.device", "/dev/rfcomm0")
	viper.SetDefault("printer.pin", "0000")
	viper.SetDefault("printer.baud", 9600)
	viper.SetDefault("printer.listen", ":8077")
	viper.SetDefault("printer.job_timeout", 10*time.Second)
	viper.SetDefault("printer.startup_timeout", 30*time.Second)
	viper.SetDefault("printer.keepalive", 30*time.Second)

	viper.SetDefault("slides.listen", ":8078")
	viper.SetDefault("slides.deck_dir", "")

	viper.SetDefault("speech.voice", "")

	rootCmd.AddCommand(configCmd, printCmd, workerCmd, slidesCmd, speakCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "stagehand")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "stagehand")}, dirs...)
	}

	if c := os.Getenv("STAGEHAND_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("stagehand")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("stagehand")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "stagehand.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
