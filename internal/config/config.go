package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application settings.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Catalog  CatalogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	Driver string // postgres | memory
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

type CatalogConfig struct {
	BaseURL   string
	CacheSize int
}

// Load parses a two-level sectioned config file (section header lines end
// with ":", entries are "key: value").
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer file.Close()

	cfg := &Config{
		Server:  ServerConfig{Port: 3000},
		Storage: StorageConfig{Driver: "postgres"},
		Catalog: CatalogConfig{CacheSize: 256},
	}
	scanner := bufio.NewScanner(file)

	var section string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, ":") {
			section = strings.TrimSuffix(line, ":")
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		switch section {
		case "server":
			if key == "port" {
				cfg.Server.Port, _ = strconv.Atoi(value)
			}
		case "storage":
			if key == "driver" {
				cfg.Storage.Driver = value
			}
		case "database":
			switch key {
			case "host":
				cfg.Database.Host = value
			case "port":
				cfg.Database.Port, _ = strconv.Atoi(value)
			case "user":
				cfg.Database.User = value
			case "password":
				cfg.Database.Password = value
			case "database":
				cfg.Database.Database = value
			}
		case "rabbitmq":
			switch key {
			case "host":
				cfg.RabbitMQ.Host = value
			case "port":
				cfg.RabbitMQ.Port, _ = strconv.Atoi(value)
			case "user":
				cfg.RabbitMQ.User = value
			case "password":
				cfg.RabbitMQ.Password = value
			case "vhost":
				cfg.RabbitMQ.VHost = value
			}
		case "catalog":
			switch key {
			case "base_url":
				cfg.Catalog.BaseURL = value
			case "cache_size":
				cfg.Catalog.CacheSize, _ = strconv.Atoi(value)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if cfg.Storage.Driver == "postgres" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("invalid config: storage driver is postgres but database.host is empty")
	}

	return cfg, nil
}
