package bottest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadConfig.
const (
	EnvToken       = "BOTHARNESS_TOKEN"
	EnvBotID       = "BOTHARNESS_BOT_ID"
	EnvBotUsername = "BOTHARNESS_BOT_USERNAME"
	EnvBotName     = "BOTHARNESS_BOT_NAME"
	EnvLogLevel    = "BOTHARNESS_LOG_LEVEL"
	EnvModules     = "BOTHARNESS_MODULES"
)

// Config is harness configuration read from the environment.
type Config struct {
	Token       string
	BotID       int64
	BotUsername string
	BotName     string
	LogLevel    string
	Modules     []string
}

// LoadConfig reads configuration from the process environment, falling back
// to values from the given .env files. Missing files are skipped; values set
// in the process environment always win.
func LoadConfig(files ...string) (Config, error) {
	values := make(map[string]string)
	for _, file := range files {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("load config %s: %w", file, err)
		}
		read, err := godotenv.Read(file)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", file, err)
		}
		for key, value := range read {
			if _, exists := values[key]; !exists {
				values[key] = value
			}
		}
	}
	lookup := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(values[key])
	}

	cfg := Config{
		Token:       lookup(EnvToken),
		BotUsername: lookup(EnvBotUsername),
		BotName:     lookup(EnvBotName),
		LogLevel:    lookup(EnvLogLevel),
		Modules:     splitList(lookup(EnvModules)),
	}
	if raw := lookup(EnvBotID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Config{}, fmt.Errorf("load config: parse %s %q: %w", EnvBotID, raw, ErrInvalidArgument)
		}
		cfg.BotID = id
	}
	if cfg.Token != "" && !strings.Contains(cfg.Token, ":") {
		return Config{}, fmt.Errorf("load config: %s must look like <id>:<secret>: %w", EnvToken, ErrInvalidArgument)
	}

	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}
