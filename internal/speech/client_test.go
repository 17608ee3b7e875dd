package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func alignmentResponse(audio []byte, chars []string, starts, ends []float64) string {
	resp := map[string]interface{}{
		"audio_base64": base64.StdEncoding.EncodeToString(audio),
		"alignment": map[string]interface{}{
			"characters":                    chars,
			"character_start_times_seconds": starts,
			"character_end_times_seconds":   ends,
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestSynthesize(t *testing.T) {
	audio := []byte{0x01, 0x02, 0x03}
	var gotPath, gotKey string
	var gotBody synthesizeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, alignmentResponse(audio,
			[]string{"h", "i", " ", "g", "o"},
			[]float64{0.0, 0.1, 0.2, 0.3, 0.4},
			[]float64{0.1, 0.2, 0.3, 0.4, 0.5}))
	}))
	defer srv.Close()

	client := NewClient(Credentials{Key: "secret", URL: srv.URL}, log.New(io.Discard))
	result, err := client.Synthesize(context.Background(), "voice-a", "hi go")
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/v1/text-to-speech/voice-a/with-timestamps" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotBody.Text != "hi go" {
		t.Errorf("request text = %q", gotBody.Text)
	}
	if !reflect.DeepEqual(result.Audio, audio) {
		t.Errorf("audio = %v, want %v", result.Audio, audio)
	}

	want := []WordTiming{
		{Word: "hi", Start: 0, End: 200 * time.Millisecond},
		{Word: "go", Start: 300 * time.Millisecond, End: 500 * time.Millisecond},
	}
	if !reflect.DeepEqual(result.Timings, want) {
		t.Errorf("timings = %v, want %v", result.Timings, want)
	}
}

func TestSynthesizeDefaultVoice(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, alignmentResponse(nil, nil, nil, nil))
	}))
	defer srv.Close()

	client := NewClient(Credentials{Key: "k", URL: srv.URL}, log.New(io.Discard))
	if _, err := client.Synthesize(context.Background(), "", "x"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/v1/text-to-speech/"+DefaultVoice+"/with-timestamps" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestSynthesizeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Credentials{Key: "k", URL: srv.URL}, log.New(io.Discard))
	_, err := client.Synthesize(context.Background(), "v", "x")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSynthesizeBadAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"audio_base64":"!!not-base64!!"}`)
	}))
	defer srv.Close()

	client := NewClient(Credentials{Key: "k", URL: srv.URL}, log.New(io.Discard))
	if _, err := client.Synthesize(context.Background(), "v", "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFoldTimings(t *testing.T) {
	tests := []struct {
		name   string
		chars  []string
		starts []float64
		ends   []float64
		want   []WordTiming
	}{
		{
			name:   "empty",
			chars:  nil,
			starts: nil,
			ends:   nil,
			want:   nil,
		},
		{
			name:   "single word",
			chars:  []string{"g", "o"},
			starts: []float64{0.0, 0.1},
			ends:   []float64{0.1, 0.2},
			want:   []WordTiming{{Word: "go", Start: 0, End: 200 * time.Millisecond}},
		},
		{
			name:   "trailing space",
			chars:  []string{"a", " "},
			starts: []float64{0.0, 0.1},
			ends:   []float64{0.1, 0.2},
			want:   []WordTiming{{Word: "a", Start: 0, End: 100 * time.Millisecond}},
		},
		{
			name:   "timing arrays shorter than chars",
			chars:  []string{"a", "b", "c"},
			starts: []float64{0.0},
			ends:   []float64{0.1},
			want:   []WordTiming{{Word: "a", Start: 0, End: 100 * time.Millisecond}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := foldTimings(tt.chars, tt.starts, tt.ends)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("foldTimings = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadCredentialsMissingKey(t *testing.T) {
	t.Setenv("STAGEHAND_SPEECH_KEY", "")
	if _, err := LoadCredentials(); err == nil {
		t.Fatal("expected error when key is unset")
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("STAGEHAND_SPEECH_KEY", "abc")
	t.Setenv("STAGEHAND_SPEECH_URL", "https://example.test")
	creds, err := LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if creds.Key != "abc" || creds.URL != "https://example.test" {
		t.Errorf("creds = %+v", creds)
	}
}
