package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups HireFlow's entries in the OS keychain.
const KeyringService = "hireflow"

// ErrNotFound is returned when no API key is stored for an account.
var ErrNotFound = errors.New("API key not found (run `hireflow secret set` or set llm.api_key)")

// GetAPIKey returns the key stored for account.
func GetAPIKey(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", ErrNotFound
	}
	key, err := keyring.Get(KeyringService, account)
	if err != nil || strings.TrimSpace(key) == "" {
		return "", ErrNotFound
	}
	return key, nil
}

func SetAPIKey(account, key string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("API key is empty")
	}
	return keyring.Set(KeyringService, account, strings.TrimSpace(key))
}

func DeleteAPIKey(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if err := keyring.Delete(KeyringService, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// LLMAccount names the keyring entry for an LLM endpoint, keyed by host so
// different providers keep separate keys.
func LLMAccount(baseURL string) string {
	return fmt.Sprintf("hireflow:llm:%s", Host(baseURL))
}

// EmbeddingAccount names the keyring entry for an embeddings endpoint.
func EmbeddingAccount(baseURL string) string {
	return fmt.Sprintf("hireflow:embedding:%s", Host(baseURL))
}

// Host returns the host[:port] of baseURL, or baseURL itself if it does not
// parse as an absolute URL.
func Host(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return baseURL
}
