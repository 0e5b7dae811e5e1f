package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/RobertPKyle/proofqr/publish"
)

type Config struct {
	Service struct {
		Listen       string   `json:"listen"`
		AllowOrigins []string `json:"allowOrigins"`
		ExplorerURL  string   `json:"explorerURL"`
		// ShutdownTimeout in seconds.
		ShutdownTimeout int `json:"shutdownTimeout"`
	} `json:"service"`
	Ledger struct {
		RPCURL     string `json:"rpcURL"`
		PrivateKey string `json:"privateKey"`
		// PollInterval in milliseconds.
		PollInterval int `json:"pollInterval"`
		// Timeout in seconds, 0 means no timeout.
		Timeout   int `json:"timeout"`
		CacheSize int `json:"cacheSize"`
	} `json:"ledger"`
	QR struct {
		Size int `json:"size"`
	} `json:"qr"`
	Journal struct {
		// Driver is "leveldb", "mysql" or empty to disable.
		Driver string `json:"driver"`
		Target string `json:"target"`
	} `json:"journal"`
	Publish struct {
		// Method is "S3" or empty to disable.
		Method string           `json:"method"`
		S3     publish.S3Config `json:"s3"`
	} `json:"publish"`
}

var GlobalConfig Config

func DefaultConfig() Config {
	var c Config
	c.Service.Listen = ":8080"
	c.Service.ExplorerURL = "https://sepolia.etherscan.io/tx/"
	c.Service.ShutdownTimeout = 10
	c.Ledger.PollInterval = 2000
	c.QR.Size = 256
	return c
}

// LoadConfig reads the JSON config at path on top of the defaults, then lets
// PRIVATE_KEY, RPC_URL and LISTEN override it. Variables are read from the
// process environment and from envFile when it exists. A missing config file
// is not an error when path is empty.
func LoadConfig(path, envFile string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		configFile, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := json.Unmarshal(configFile, &c); err != nil {
			return c, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return c, err
		}
	}
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		c.Ledger.PrivateKey = v
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		c.Ledger.RPCURL = v
	}
	if v := os.Getenv("LISTEN"); v != "" {
		c.Service.Listen = v
	}
	return c, nil
}

func (c *Config) pollInterval() time.Duration {
	return time.Duration(c.Ledger.PollInterval) * time.Millisecond
}

func (c *Config) ledgerTimeout() time.Duration {
	return time.Duration(c.Ledger.Timeout) * time.Second
}

func (c *Config) shutdownTimeout() time.Duration {
	return time.Duration(c.Service.ShutdownTimeout) * time.Second
}
