package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/driveclone/internal/links"
	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/repositories"
	"github.com/desertthunder/driveclone/internal/services"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/store"
	tu "github.com/desertthunder/driveclone/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const (
	fileLink   = "https://drive.google.com/file/d/abc123/view"
	folderLink = "https://drive.google.com/drive/folders/xyz789"
)

// stubDrive is an in-memory services.Drive.
type stubDrive struct {
	mu       sync.Mutex
	token    *oauth2.Token
	about    *services.About
	aboutErr error
	revoked  bool
}

func (s *stubDrive) Name() string                { return "stub" }
func (s *stubDrive) AuthURL(state string) string { return "https://accounts.example.com/auth?state=" + state }

func (s *stubDrive) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "token-" + code}, nil
}

func (s *stubDrive) SetToken(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *stubDrive) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil
}

func (s *stubDrive) Token() (*oauth2.Token, error) {
	if !s.Authenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	return s.token, nil
}

func (s *stubDrive) ResolveName(ctx context.Context, link *links.Link) (string, error) {
	return "resolved-" + link.ResourceID, nil
}

func (s *stubDrive) About(ctx context.Context) (*services.About, error) {
	if s.aboutErr != nil {
		return nil, s.aboutErr
	}
	return s.about, nil
}

func (s *stubDrive) GetFile(ctx context.Context, id string) (*services.DriveFile, error) {
	return nil, shared.ErrFileNotFound
}

func (s *stubDrive) Revoke(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = true
	return nil
}

func quietLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

// newTestRunner returns a runner writing to a buffer, backed by an in-memory store and a mock transfer
// unless opts provides them.
func newTestRunner(t *testing.T, opts RunnerOpts) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	if opts.Store == nil {
		opts.Store = store.New(store.Opts{Logger: quietLogger()})
	}
	if opts.Transfer == nil {
		opts.Transfer = &tu.MockTransfer{}
	}
	opts.Output = output
	opts.Logger = quietLogger()
	return NewRunner(opts), output
}

// execute runs args against the runner's command tree.
func execute(r *Runner, args ...string) error {
	app := &cli.Command{
		Name:      "driveclone",
		Commands:  r.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	return app.Run(context.Background(), append([]string{"driveclone"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			drive := &stubDrive{}
			api := services.NewAPIService("http://backend.test", httpClient)
			st := store.New(store.Opts{})

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Drive:      drive,
				API:        api,
				Store:      st,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.drive != drive {
				t.Error("expected drive to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.store != st {
				t.Error("expected store to be set")
			}
		})

		t.Run("with defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config")
			}
			if runner.logger == nil {
				t.Error("expected default logger")
			}
			if runner.output != os.Stdout {
				t.Error("expected stdout output")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected default HTTP client")
			}
			if runner.drive != nil {
				t.Error("expected no drive client")
			}
			if runner.api == nil || runner.api.BaseURL() != "http://localhost:5000" {
				t.Errorf("expected api client for the configured base URL, got %v", runner.api)
			}
		})

		t.Run("api follows config base URL", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.API.BaseURL = "http://backend.test:9000/"

			runner := NewRunner(RunnerOpts{Config: config})

			if got := runner.api.BaseURL(); got != "http://backend.test:9000" {
				t.Errorf("expected trimmed base URL, got %s", got)
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writePlainln wraps in newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "\ndone\n" {
				t.Errorf("expected %q, got %q", "\ndone\n", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "clone", "serve", "remote", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != want[i] {
				t.Errorf("expected command %d to be %s, got %s", i, want[i], cmd.Name)
			}
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		t.Run("saves tokens successfully", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to create test config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})

			token := &oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"}
			if err := runner.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loadedConfig, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loadedConfig.Credentials.Google.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loadedConfig.Credentials.Google.AccessToken)
			}
			if loadedConfig.Credentials.Google.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loadedConfig.Credentials.Google.RefreshToken)
			}
		})

		t.Run("handles nil config error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/tmp/test.toml"})
			runner.config = nil

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil {
				t.Fatal("expected error with nil config")
			}
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected missing config error, got %v", err)
			}
		})

		t.Run("handles empty configPath", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			err := runner.saveTokens(&oauth2.Token{AccessToken: "new_token", RefreshToken: "new_refresh"})
			if err != nil {
				t.Fatalf("expected no error with empty path, got %v", err)
			}
			if config.Credentials.Google.AccessToken != "new_token" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("handles SaveConfig failure", func(t *testing.T) {
			invalidPath := filepath.Join(t.TempDir(), "missing", "dir", "config.toml")
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), ConfigPath: invalidPath})

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil {
				t.Fatal("expected error with invalid path")
			}
			if !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})

		t.Run("handles Update error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			err := runner.saveTokens(nil)
			if err == nil {
				t.Fatal("expected error when Update fails with nil token")
			}
			if !strings.Contains(err.Error(), "failed to update google configuration") {
				t.Errorf("expected update error, got %v", err)
			}
			if !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected invalid credentials in chain, got %v", err)
			}
		})
	})

	t.Run("openStore", func(t *testing.T) {
		t.Run("returns injected store", func(t *testing.T) {
			st := store.New(store.Opts{Logger: quietLogger()})
			runner := NewRunner(RunnerOpts{Store: st, Logger: quietLogger()})

			got, err := runner.openStore()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != st {
				t.Error("expected injected store")
			}
			if runner.db != nil {
				t.Error("expected no database to be opened")
			}
		})

		t.Run("restores persisted jobs and interrupts active ones", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "jobs.db")

			db, err := shared.OpenDatabase(config.Database)
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			repo := repositories.NewJobRepository(db)

			queued := models.NewCloneJob(fileLink, "report.pdf", models.FileTypeFile)
			active := models.NewCloneJob(folderLink, "Photos", models.FileTypeFolder)
			active.Status = models.StatusUploading
			active.Progress = 60
			for _, job := range []models.CloneJob{queued, active} {
				if err := repo.Save(job); err != nil {
					t.Fatalf("failed to save job: %v", err)
				}
			}
			db.Close()

			runner := NewRunner(RunnerOpts{Config: config, Logger: quietLogger()})
			defer runner.Close()

			st, err := runner.openStore()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			jobs := st.List()
			if len(jobs) != 2 {
				t.Fatalf("expected 2 restored jobs, got %d", len(jobs))
			}
			if jobs[0].Status != models.StatusQueued {
				t.Errorf("expected queued job to stay queued, got %s", jobs[0].Status)
			}
			if jobs[1].Status != models.StatusFailed || jobs[1].ErrorCode != models.CodeInterrupted {
				t.Errorf("expected active job to be interrupted, got %s/%s", jobs[1].Status, jobs[1].ErrorCode)
			}

			again, err := runner.openStore()
			if err != nil || again != st {
				t.Error("expected store to be opened once")
			}
		})
	})

	t.Run("useConfig", func(t *testing.T) {
		t.Run("switches to explicit config file", func(t *testing.T) {
			dir := t.TempDir()
			configPath := filepath.Join(dir, "custom.toml")
			config := shared.DefaultConfig()
			config.API.BaseURL = "http://custom.test:7000"
			config.Credentials.Google.AccessToken = "saved"
			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner, _ := newTestRunner(t, RunnerOpts{})
			if err := execute(runner, "clone", "list", "--config", configPath); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.configPath != configPath {
				t.Errorf("expected config path %s, got %s", configPath, runner.configPath)
			}
			if runner.api.BaseURL() != "http://custom.test:7000" {
				t.Errorf("expected api to follow config, got %s", runner.api.BaseURL())
			}
			if runner.drive == nil || !runner.drive.Authenticated() {
				t.Error("expected drive client restored from saved token")
			}
		})

		t.Run("fails for missing explicit config", func(t *testing.T) {
			runner, _ := newTestRunner(t, RunnerOpts{})

			err := execute(runner, "clone", "list", "--config", filepath.Join(t.TempDir(), "nope.toml"))
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected missing config error, got %v", err)
			}
		})
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config writes template", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		runner, output := newTestRunner(t, RunnerOpts{})

		if err := execute(runner, "setup", "config", "--config", configPath); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, configPath)
		if !strings.Contains(output.String(), "Config written to") {
			t.Errorf("expected confirmation, got %q", output.String())
		}
	})

	t.Run("config refuses to overwrite without force", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("# mine\n"), 0644); err != nil {
			t.Fatal(err)
		}
		runner, _ := newTestRunner(t, RunnerOpts{})

		err := execute(runner, "setup", "config", "--config", configPath)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument error, got %v", err)
		}

		if err := execute(runner, "setup", "config", "--force", "--config", configPath); err != nil {
			t.Fatalf("expected force to overwrite, got %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, configPath), "[credentials.google]") {
			t.Error("expected template contents")
		}
	})

	t.Run("database creates config and runs migrations", func(t *testing.T) {
		t.Chdir(t.TempDir())
		runner, output := newTestRunner(t, RunnerOpts{})

		if err := execute(runner, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, "config.toml")
		tu.AssertFileExists(t, "driveclone.db")
		if !strings.Contains(output.String(), "Database ready at ./driveclone.db") {
			t.Errorf("unexpected output %q", output.String())
		}
		if !strings.Contains(output.String(), "Jobs on record: 0") {
			t.Errorf("expected empty job table, got %q", output.String())
		}
	})

	t.Run("rollback undoes migrations", func(t *testing.T) {
		t.Chdir(t.TempDir())
		runner, output := newTestRunner(t, RunnerOpts{})

		if err := execute(runner, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		output.Reset()

		if err := execute(runner, "setup", "rollback", "--steps", "2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Migrations applied: 0") {
			t.Errorf("unexpected output %q", output.String())
		}

		if err := execute(runner, "setup", "rollback"); err == nil {
			t.Error("expected error with nothing left to roll back")
		}
	})
}
