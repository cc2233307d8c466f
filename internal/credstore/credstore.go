// Package credstore persists the payment-terminal pairing credentials
// (merchant id, terminal id, integration key) in a small YAML file next to
// the terminal's configuration. The browser build kept these in
// localStorage; a file survives reinstalls and can be backed up.
package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNotPaired is returned when no credentials have been stored yet.
var ErrNotPaired = errors.New("terminal not paired")

// Credentials identify this terminal to the payment provider.
type Credentials struct {
	MerchantID     string `yaml:"merchant_id"`
	TerminalID     string `yaml:"terminal_id"`
	IntegrationKey string `yaml:"integration_key"`
}

// Complete reports whether every field is present.
func (c Credentials) Complete() bool {
	return c.MerchantID != "" && c.TerminalID != "" && c.IntegrationKey != ""
}

// Store reads and writes the credentials file.
type Store struct {
	path string
}

// New creates a Store over the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the stored credentials. A missing or empty file yields
// ErrNotPaired.
func (s *Store) Load() (Credentials, error) {
	var creds Credentials
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return creds, ErrNotPaired
	}
	if err != nil {
		return creds, fmt.Errorf("read credentials: %w", err)
	}
	if err := yaml.Unmarshal(raw, &creds); err != nil {
		return creds, fmt.Errorf("parse credentials: %w", err)
	}
	if !creds.Complete() {
		return creds, ErrNotPaired
	}
	return creds, nil
}

// Save writes the credentials, creating parent directories as needed. The
// file is written 0600: the integration key is a secret.
func (s *Store) Save(creds Credentials) error {
	if !creds.Complete() {
		return errors.New("incomplete credentials")
	}
	raw, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create credentials dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear removes the stored credentials.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
