// Package speech generates narration audio for the talk's canned lines via a
// hosted text-to-speech API, with per-word timings so slide transitions can
// sync to the audio.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultVoice is used when the caller does not pick one.
const DefaultVoice = "21m00Tcm4TlvDq8ikWAM"

// WordTiming marks when a word is spoken within the synthesized audio.
type WordTiming struct {
	Word  string        `json:"word"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Result is a synthesized utterance.
type Result struct {
	Audio   []byte
	Timings []WordTiming
}

// Client talks to the synthesis API.
type Client struct {
	creds  Credentials
	http   *http.Client
	logger *log.Logger
}

func NewClient(creds Credentials, logger *log.Logger) *Client {
	return &Client{
		creds:  creds,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

type synthesizeResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Alignment   struct {
		Characters []string  `json:"characters"`
		StartTimes []float64 `json:"character_start_times_seconds"`
		EndTimes   []float64 `json:"character_end_times_seconds"`
	} `json:"alignment"`
}

// Synthesize converts text to audio with word-level timings.
func (c *Client) Synthesize(ctx context.Context, voice, text string) (*Result, error) {
	if voice == "" {
		voice = DefaultVoice
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, ModelID: "eleven_multilingual_v2"})
	if err != nil {
		return nil, fmt.Errorf("speech: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps",
		c.creds.URL, url.PathEscape(voice))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("speech: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.creds.Key)

	c.logger.Debug("synthesizing", "voice", voice, "chars", len(text))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("speech: api returned %d: %s", resp.StatusCode, detail)
	}

	var apiResp synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("speech: decode response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(apiResp.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("speech: decode audio: %w", err)
	}

	return &Result{
		Audio: audio,
		Timings: foldTimings(apiResp.Alignment.Characters,
			apiResp.Alignment.StartTimes, apiResp.Alignment.EndTimes),
	}, nil
}

// foldTimings collapses the API's per-character alignment into per-word
// timings. Whitespace characters delimit words and carry no timing of their
// own.
func foldTimings(chars []string, starts, ends []float64) []WordTiming {
	var timings []WordTiming
	var word string
	var start float64
	var end float64

	flush := func() {
		if word == "" {
			return
		}
		timings = append(timings, WordTiming{
			Word:  word,
			Start: seconds(start),
			End:   seconds(end),
		})
		word = ""
	}

	for i, ch := range chars {
		if i >= len(starts) || i >= len(ends) {
			break
		}
		if ch == " " || ch == "\n" || ch == "\t" {
			flush()
			continue
		}
		if word == "" {
			start = starts[i]
		}
		word += ch
		end = ends[i]
	}
	flush()
	return timings
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
