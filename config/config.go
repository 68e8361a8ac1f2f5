package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string

	// Database configuration
	DatabaseURL string

	// Referral configuration
	ReferralBonus int64  // Points paid to a referrer when a referred user joins
	InviteBaseURL string // Base URL used to build per-user referral links

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Referral settings with defaults
		ReferralBonus: 10,
		InviteBaseURL: os.Getenv("INVITE_BASE_URL"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// BOT_TOKEN is accepted as an alias for deployments reusing the old name
	if config.DiscordToken == "" {
		config.DiscordToken = os.Getenv("BOT_TOKEN")
	}

	// Override defaults if environment variables are set
	if bonus := os.Getenv("REFERRAL_BONUS"); bonus != "" {
		parsedBonus, err := strconv.ParseInt(bonus, 10, 64)
		if err != nil || parsedBonus <= 0 {
			return nil, fmt.Errorf("REFERRAL_BONUS must be a positive integer, got %q", bonus)
		}
		config.ReferralBonus = parsedBonus
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DiscordGuildID == "" {
			return nil, fmt.Errorf("DISCORD_GUILD_ID is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
