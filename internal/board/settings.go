package board

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings is the sidecar record next to the document: integration
// credentials, the freeform notes text and the theme selector. The core only
// depends on Notes; everything else belongs to the integrations.
type Settings struct {
	ConfluenceURL   string `yaml:"confluence_url" json:"confluence_url"`
	ConfluenceEmail string `yaml:"confluence_email" json:"confluence_email"`
	ConfluenceToken string `yaml:"confluence_token" json:"confluence_token,omitempty"`
	Notes           string `yaml:"notes" json:"notes"`
	Theme           int    `yaml:"theme" json:"theme"`
}

// Redacted strips the API token for transport, reporting only whether one is
// stored.
func (s Settings) Redacted() (Settings, bool) {
	set := s.ConfluenceToken != ""
	s.ConfluenceToken = ""
	return s, set
}

// SettingsStore persists Settings as YAML in <dir>/settings.yaml.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

func NewSettingsStore(dir string) *SettingsStore {
	return &SettingsStore{path: filepath.Join(expandHome(dir), "settings.yaml")}
}

// Load reads the settings record. A missing file is an empty record.
func (s *SettingsStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out Settings
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return out, fmt.Errorf("load settings: %w", err)
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return out, nil
}

// Save writes the settings record atomically.
func (s *SettingsStore) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := atomicWriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
