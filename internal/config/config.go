/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables or an
 * optional local .env file, providing a centralized way to manage settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ai-billing-server.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RazorpayWebhookSecret   string `mapstructure:"RAZORPAY_WEBHOOK_SECRET"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisDedupePrefix       string `mapstructure:"REDIS_DEDUPE_PREFIX"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	QuotaEventExchange      string `mapstructure:"QUOTA_EVENT_EXCHANGE"`
	ClerkJWKSURL            string `mapstructure:"CLERK_JWKS_URL"`
	StoreTimeoutSeconds     int    `mapstructure:"STORE_TIMEOUT_SECONDS"`
	PaymentDedupeTTLMinutes int    `mapstructure:"PAYMENT_DEDUPE_TTL_MINUTES"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_DEDUPE_PREFIX", "billing:payment_seen")
	viper.SetDefault("QUOTA_EVENT_EXCHANGE", "quota_events")
	viper.SetDefault("STORE_TIMEOUT_SECONDS", 5)
	viper.SetDefault("PAYMENT_DEDUPE_TTL_MINUTES", 1440)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RAZORPAY_WEBHOOK_SECRET")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_DEDUPE_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("QUOTA_EVENT_EXCHANGE")
	_ = viper.BindEnv("CLERK_JWKS_URL")
	_ = viper.BindEnv("STORE_TIMEOUT_SECONDS")
	_ = viper.BindEnv("PAYMENT_DEDUPE_TTL_MINUTES")

	// Read the config file if it exists.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %s", err)
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
