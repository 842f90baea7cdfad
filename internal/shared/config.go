package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	API         APIConfig         `toml:"api"`
	Transfer    TransferConfig    `toml:"transfer"`
	Drive       DriveConfig       `toml:"drive"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Google GoogleConfig `toml:"google"`
}

// GoogleConfig contains Google OAuth2 client credentials and the last issued token.
type GoogleConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenType    string    `toml:"token_type"`
	Expiry       time.Time `toml:"expiry"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	AutoRun     bool   `toml:"auto_run"`
	FrontendURL string `toml:"frontend_url"`
}

// APIConfig points the remote client at a running backend.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
}

// TransferConfig tunes the simulated transfer engine.
type TransferConfig struct {
	Step                int `toml:"step"`
	StepIntervalMS      int `toml:"step_interval_ms"`
	PhaseTimeoutSeconds int `toml:"phase_timeout_seconds"`
}

// DriveConfig contains Drive API client settings.
type DriveConfig struct {
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// StepInterval returns the delay between simulated progress reports.
func (t TransferConfig) StepInterval() time.Duration {
	return time.Duration(t.StepIntervalMS) * time.Millisecond
}

// PhaseTimeout returns the per-phase deadline; zero disables it.
func (t TransferConfig) PhaseTimeout() time.Duration {
	return time.Duration(t.PhaseTimeoutSeconds) * time.Second
}

// HasClient reports whether OAuth client credentials are present.
func (g GoogleConfig) HasClient() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Token returns the stored [oauth2.Token], or nil when no access token is saved.
func (g GoogleConfig) Token() *oauth2.Token {
	if g.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		TokenType:    g.TokenType,
		Expiry:       g.Expiry,
	}
}

// Update copies an issued token into the config. A missing refresh token keeps the previous one.
func (g *GoogleConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredentials)
	}

	g.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		g.RefreshToken = token.RefreshToken
	}
	g.TokenType = token.TokenType
	g.Expiry = token.Expiry
	return nil
}

// ClearToken removes any stored token.
func (g *GoogleConfig) ClearToken() {
	g.AccessToken = ""
	g.RefreshToken = ""
	g.TokenType = ""
	g.Expiry = time.Time{}
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Missing keys keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration back to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from the environment, loading envFile first when it exists.
//
// Recognized keys: DRIVECLONE_API_BASE_URL, GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, DRIVECLONE_LOG_LEVEL.
func ApplyEnv(config *Config, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if v := os.Getenv("DRIVECLONE_API_BASE_URL"); v != "" {
		config.API.BaseURL = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		config.Credentials.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		config.Credentials.Google.ClientSecret = v
	}
	if v := os.Getenv("DRIVECLONE_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	return nil
}
