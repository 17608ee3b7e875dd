package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dockens/stagehand/internal/audio"
	"github.com/dockens/stagehand/internal/speech"
)

var (
	speakOutput string
	speakVoice  string
	speakPlay   bool

	speakCmd = &cobra.Command{
		Use:   "speak [TEXT]",
		Short: "Synthesize narration audio",
		Long: paragraph(fmt.Sprintf("\nSynthesize a line of %s for the talk, with per-word timings printed for syncing slide transitions. Reads text from the argument, or stdin when piped.",
			keyword("narration"))),
		Args: cobra.MaximumNArgs(1),
		RunE: runSpeak,
	}
)

func init() {
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "narration.pcm", "output audio file")
	speakCmd.Flags().StringVar(&speakVoice, "voice", "", "voice ID")
	speakCmd.Flags().BoolVar(&speakPlay, "play", false, "play the audio after synthesis")
	_ = viper.BindPFlag("speech.voice", speakCmd.Flags().Lookup("voice"))
}

func speakText(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read stdin: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return "", errors.New("missing text: pass it as an argument or pipe it in")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	text, err := speakText(args)
	if err != nil {
		return err
	}

	creds, err := speech.LoadCredentials()
	if err != nil {
		return err
	}

	logger := log.Default().With("component", "speech")
	client := speech.NewClient(creds, logger)

	result, err := client.Synthesize(cmd.Context(), viper.GetString("speech.voice"), text)
	if err != nil {
		return err
	}

	if err := os.WriteFile(speakOutput, result.Audio, 0o644); err != nil {
		return fmt.Errorf("unable to write audio: %w", err)
	}
	fmt.Printf("Wrote %s to %s\n", humanize.Bytes(uint64(len(result.Audio))), speakOutput)

	// The slideshow reads the word timings from a sidecar file.
	wordsPath := strings.TrimSuffix(speakOutput, filepath.Ext(speakOutput)) + ".words.json"
	words, err := json.MarshalIndent(result.Timings, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode timings: %w", err)
	}
	if err := os.WriteFile(wordsPath, words, 0o644); err != nil {
		return fmt.Errorf("unable to write timings: %w", err)
	}
	fmt.Println("Wrote word timings to:", wordsPath)

	for _, timing := range result.Timings {
		fmt.Printf("%8s  %8s  %s\n", timing.Start.Round(0), timing.End.Round(0), timing.Word)
	}

	if speakPlay {
		player, err := audio.NewPlayer(audio.DefaultPlayerConfig())
		if err != nil {
			return fmt.Errorf("unable to open audio device: %w", err)
		}
		logger.Info("playing", "duration", player.Duration(result.Audio))
		if err := player.Play(context.Background(), result.Audio); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
	}
	return nil
}
