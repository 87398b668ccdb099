package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "tripkeeper"

// Keys of the backup credentials.
const (
	BackupAccessKey = "backup.access_key"
	BackupSecretKey = "backup.secret_key"
)

// ErrNotFound is returned when no credential is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets in the system keyring.
type Store struct {
	ring keyring.Keyring
}

// New wraps an opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the system keyring. Where no OS keyring is available the
// secrets go to an encrypted file under privateRoot.
func Open(privateRoot string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(privateRoot, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("tripkeeper-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// Get retrieves a credential value by key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key.
func (s *Store) Set(key string, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key. Deleting a missing key is not an
// error.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// BackupCredentials returns the object storage access and secret keys.
func (s *Store) BackupCredentials() (accessKey, secretKey string, err error) {
	if accessKey, err = s.Get(BackupAccessKey); err != nil {
		return "", "", err
	}
	if secretKey, err = s.Get(BackupSecretKey); err != nil {
		return "", "", err
	}
	return accessKey, secretKey, nil
}

// SetBackupCredentials stores both backup keys.
func (s *Store) SetBackupCredentials(accessKey, secretKey string) error {
	if err := s.Set(BackupAccessKey, accessKey); err != nil {
		return err
	}
	return s.Set(BackupSecretKey, secretKey)
}
