package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./driveclone.db" {
			t.Errorf("expected database path ./driveclone.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 5000 {
			t.Errorf("expected server port 5000, got %d", config.Server.Port)
		}

		if config.API.BaseURL != "http://localhost:5000" {
			t.Errorf("expected api base url http://localhost:5000, got %s", config.API.BaseURL)
		}

		if config.Credentials.Google.ClientID != "your_google_client_id" {
			t.Errorf("expected google client_id your_google_client_id, got %s", config.Credentials.Google.ClientID)
		}

		if got := config.Transfer.StepInterval(); got != 200*time.Millisecond {
			t.Errorf("expected step interval 200ms, got %v", got)
		}

		if got := config.Transfer.PhaseTimeout(); got != 5*time.Minute {
			t.Errorf("expected phase timeout 5m, got %v", got)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080
auto_run = false

[credentials.google]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Server.AutoRun {
			t.Error("expected auto_run to be overridden to false")
		}

		if config.Credentials.Google.ClientID != "test_client_id" {
			t.Errorf("expected google client_id test_client_id, got %s", config.Credentials.Google.ClientID)
		}

		if config.Transfer.Step != 20 {
			t.Errorf("missing keys should keep defaults, got step %d", config.Transfer.Step)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("SaveConfig round trips token", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		expiry := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		if err := config.Credentials.Google.Update(&oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       expiry,
		}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("SaveConfig() error = %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		token := loaded.Credentials.Google.Token()
		if token == nil {
			t.Fatal("expected token after reload")
		}
		if token.AccessToken != "access" || token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", token)
		}
		if !token.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, token.Expiry)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("GOOGLE_CLIENT_ID=from_env_file\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("GOOGLE_CLIENT_ID", "")
		os.Unsetenv("GOOGLE_CLIENT_ID")
		t.Setenv("DRIVECLONE_API_BASE_URL", "http://backend:9000")

		config := DefaultConfig()
		if err := ApplyEnv(config, envPath); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}

		if config.API.BaseURL != "http://backend:9000" {
			t.Errorf("expected base url from env, got %s", config.API.BaseURL)
		}
		if config.Credentials.Google.ClientID != "from_env_file" {
			t.Errorf("expected client id from env file, got %s", config.Credentials.Google.ClientID)
		}
	})

	t.Run("ApplyEnv missing file is ignored", func(t *testing.T) {
		config := DefaultConfig()
		if err := ApplyEnv(config, filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})
}

func TestGoogleConfig(t *testing.T) {
	t.Run("Token is nil without access token", func(t *testing.T) {
		var g GoogleConfig
		if g.Token() != nil {
			t.Error("expected nil token")
		}
	})

	t.Run("Update keeps refresh token", func(t *testing.T) {
		g := GoogleConfig{RefreshToken: "old"}
		if err := g.Update(&oauth2.Token{AccessToken: "new"}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if g.RefreshToken != "old" {
			t.Errorf("expected refresh token to be kept, got %q", g.RefreshToken)
		}
	})

	t.Run("Update rejects empty token", func(t *testing.T) {
		var g GoogleConfig
		if err := g.Update(&oauth2.Token{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("ClearToken", func(t *testing.T) {
		g := GoogleConfig{ClientID: "id", ClientSecret: "secret", AccessToken: "a", RefreshToken: "r"}
		g.ClearToken()
		if g.Token() != nil {
			t.Error("expected token to be cleared")
		}
		if !g.HasClient() {
			t.Error("client credentials should survive ClearToken")
		}
	})
}
