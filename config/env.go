package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvNodeEnv         = "NODE_ENV" // development, production
	EnvProviderURL     = "WEB3_PROVIDER_URL"
	EnvNetworkVersion  = "WEB3_NETWORK_VERSION"
	EnvOwnerPublicKey  = "OWNER_PUBLIC_KEY"
	EnvOwnerPrivateKey = "OWNER_PRIVATE_KEY"
	EnvContractAddress = "OURBITRAGE_CONTRACT_ADDRESS"
)

// LoadEnv loads environment variables from .env files. Missing files are
// ignored; variables already set in the environment win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
