package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlaceholderAPIKey is what the sample .env ships with; it never counts as a key.
const PlaceholderAPIKey = "YOUR_API_KEY_HERE"

// CredentialProvider yields the API key from one source. An empty key with a
// nil error means the source has nothing to offer.
type CredentialProvider interface {
	APIKey() (string, error)
	String() string
}

type secretsFile struct {
	YouTubeAPIKey string `yaml:"youtube_api_key"`
}

// SecretsFileProvider reads a mounted YAML secrets file. A missing file is not an error.
type SecretsFileProvider struct {
	Path string
}

func (p *SecretsFileProvider) String() string {
	return "secrets file " + p.Path
}

func (p *SecretsFileProvider) APIKey() (string, error) {
	if p.Path == "" {
		return "", nil
	}

	data, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read secrets file: %w", err)
	}

	var s secretsFile
	if err := yaml.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("parse secrets file %s: %w", p.Path, err)
	}
	return s.YouTubeAPIKey, nil
}

// EnvProvider reads the key from an environment variable (a loaded .env included).
type EnvProvider struct {
	Name string
}

func (p *EnvProvider) String() string {
	return "env " + p.Name
}

func (p *EnvProvider) APIKey() (string, error) {
	return os.Getenv(p.Name), nil
}

// ResolveAPIKey asks each provider in turn and returns the first real key.
// Blank values and the placeholder are skipped.
func ResolveAPIKey(providers ...CredentialProvider) (string, error) {
	for _, p := range providers {
		key, err := p.APIKey()
		if err != nil {
			return "", fmt.Errorf("%s: %w", p, err)
		}
		if usableKey(key) {
			return strings.TrimSpace(key), nil
		}
	}
	return "", ErrMissingAPIKey
}

func usableKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderAPIKey
}
