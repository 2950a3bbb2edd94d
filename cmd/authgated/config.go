package main

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP     HTTP
		Database Database
		Auth     Auth
		Google   Provider
		Github   Provider
		Facebook Provider
	}

	HTTP struct {
		Host string
		Port int
	}
	Database struct {
		Path string
	}
	Auth struct {
		SigningSecret   string
		SessionLifetime time.Duration
		TokenTTL        time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
	}
	Provider struct {
		ClientID     string
		ClientSecret string
		CallbackURL  string
	}
)

// Configured reports whether the provider has everything it needs to be
// mounted. A partially configured provider is a startup-time problem, not a
// per-request one.
func (p Provider) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != "" && p.CallbackURL != ""
}

func NewConfig() *Config {
	v := viper.New()
	v.SetEnvPrefix("AUTHGATE")
	v.AutomaticEnv()

	v.SetDefault("HTTP_HOST", "127.0.0.1")
	v.SetDefault("HTTP_PORT", 3000)
	v.SetDefault("DATABASE_PATH", "authgate.db")
	v.SetDefault("SESSION_LIFETIME", "30m")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 0) // 0 = bcrypt default
	v.SetDefault("SECURE_COOKIES", true)

	return &Config{
		HTTP: HTTP{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			SigningSecret:   v.GetString("SIGNING_SECRET"),
			SessionLifetime: v.GetDuration("SESSION_LIFETIME"),
			TokenTTL:        v.GetDuration("TOKEN_TTL"),
			BcryptCost:      v.GetInt("BCRYPT_COST"),
			SecureCookies:   v.GetBool("SECURE_COOKIES"),
		},
		Google: Provider{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  v.GetString("GOOGLE_CALLBACK_URL"),
		},
		Github: Provider{
			ClientID:     v.GetString("GITHUB_CLIENT_ID"),
			ClientSecret: v.GetString("GITHUB_CLIENT_SECRET"),
			CallbackURL:  v.GetString("GITHUB_CALLBACK_URL"),
		},
		Facebook: Provider{
			ClientID:     v.GetString("FACEBOOK_CLIENT_ID"),
			ClientSecret: v.GetString("FACEBOOK_CLIENT_SECRET"),
			CallbackURL:  v.GetString("FACEBOOK_CALLBACK_URL"),
		},
	}
}
