package contactsync

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the full application configuration, loaded from the environment
// with an optional .env file layered underneath.
type Config struct {
	// MewBaseURL is the graph API origin, e.g. https://api.mew.example.
	MewBaseURL string `env:"MEW_BASE_URL" validate:"required,url"`
	// MewUserRootURL is the shareable user-root URL, e.g.
	// https://mew.example/g/user-root-auth0%7Cabc123. Both the root node id
	// and the author id are derived from it.
	MewUserRootURL string `env:"MEW_USER_ROOT_URL" validate:"required,url"`

	Auth0Domain       string `env:"AUTH0_DOMAIN" validate:"required"`
	Auth0ClientID     string `env:"AUTH0_CLIENT_ID" validate:"required"`
	Auth0ClientSecret string `env:"AUTH0_CLIENT_SECRET" validate:"required"`
	Auth0Audience     string `env:"AUTH0_AUDIENCE" validate:"required"`

	// ContactsFolder is the name of the folder node under the user root that
	// holds synchronized contacts.
	ContactsFolder string `env:"CONTACTS_FOLDER" envDefault:"Contacts"`

	// SourceCommand is the command line the listen mode spawns to stream
	// contact snapshots, split on whitespace. Empty disables listen mode.
	SourceCommand string `env:"SOURCE_COMMAND"`

	RateLimit      float64       `env:"RATE_LIMIT" envDefault:"50"`
	BatchSize      int           `env:"BATCH_SIZE" envDefault:"10"`
	ChunkSize      int           `env:"CHUNK_SIZE" envDefault:"50"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads configuration from the process environment. A .env file
// in the working directory is loaded first when present; real environment
// variables win over it.
func LoadConfig() (*Config, error) {
	// Ignore a missing .env file; it is a development convenience.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
