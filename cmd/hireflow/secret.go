package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/hireflow/internal/config"
	"github.com/amishk599/hireflow/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage API keys in the OS keyring",
}

var secretEmbedding bool

var secretSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the API key for llm.base_url, or portfolio.embedding_base_url with --embedding (read from stdin)",
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored API key for llm.base_url, or portfolio.embedding_base_url with --embedding",
	RunE:  runSecretDelete,
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.PersistentFlags().BoolVar(&secretEmbedding, "embedding", false, "target the embeddings endpoint instead of the LLM")
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
}

// secretTarget returns the endpoint and keyring account the secret commands act on.
func secretTarget(cfg *config.Config) (baseURL, account string) {
	if secretEmbedding {
		return cfg.Portfolio.EmbeddingBaseURL, secrets.EmbeddingAccount(cfg.Portfolio.EmbeddingBaseURL)
	}
	return cfg.LLM.BaseURL, secrets.LLMAccount(cfg.LLM.BaseURL)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	baseURL, account := secretTarget(cfg)

	fmt.Fprintf(os.Stderr, "API key for %s: ", baseURL)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading key: %w", err)
	}
	if err := secrets.SetAPIKey(account, strings.TrimSpace(line)); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "stored as %q\n", account)
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	_, account := secretTarget(cfg)
	if err := secrets.DeleteAPIKey(account); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "deleted %q\n", account)
	return nil
}
