package speech

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

// ErrMissingKey is returned when no API key is configured.
var ErrMissingKey = errors.New("speech: STAGEHAND_SPEECH_KEY is not set")

// Credentials holds the synthesis API endpoint and key, read from the
// environment.
type Credentials struct {
	Key string `env:"STAGEHAND_SPEECH_KEY"`
	URL string `env:"STAGEHAND_SPEECH_URL" envDefault:"https://api.elevenlabs.io"`
}

// LoadCredentials reads credentials from the environment.
func LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, err
	}
	if creds.Key == "" {
		return Credentials{}, ErrMissingKey
	}
	return creds, nil
}
