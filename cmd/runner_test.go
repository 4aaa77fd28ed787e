package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/repositories"
	"github.com/desertthunder/songbridge/internal/services"
	"github.com/desertthunder/songbridge/internal/shared"
	tu "github.com/desertthunder/songbridge/internal/testing"
	"github.com/urfave/cli/v3"
)

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "songbridge", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"songbridge"}, args...))
}

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "songbridge.db")
	config.Transfer.WritesPerSecond = 0
	return config
}

// seedUser stores a user with the given linked providers and returns its id.
func seedUser(t *testing.T, config *shared.Config, accounts ...models.ProviderAccount) string {
	t.Helper()
	ctx := context.Background()

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	user := models.NewUser("tester")
	if err := repositories.NewUserRepository(db).Create(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	repo := repositories.NewAccountRepository(db)
	for _, a := range accounts {
		if err := repo.Upsert(ctx, models.NewAccount(user.ID(), a)); err != nil {
			t.Fatalf("failed to store account: %v", err)
		}
	}
	return user.ID()
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
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
		})

		t.Run("with nil config loads per command", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config != nil {
				t.Error("expected config to stay nil")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("upstreamClient", func(t *testing.T) {
		t.Run("built from upstream timeout", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Server.UpstreamTimeout.Duration = 5 * time.Second

			client := NewRunner(RunnerOpts{}).upstreamClient(config)
			if client.Timeout != 5*time.Second {
				t.Errorf("timeout = %v, want 5s", client.Timeout)
			}
		})

		t.Run("injected client wins", func(t *testing.T) {
			injected := &http.Client{}
			runner := NewRunner(RunnerOpts{HTTPClient: injected})

			if runner.upstreamClient(shared.DefaultConfig()) != injected {
				t.Error("expected injected client")
			}
		})

		t.Run("factory keeps base urls", func(t *testing.T) {
			client := &http.Client{}
			runner := NewRunner(RunnerOpts{Factory: services.Factory{SpotifyBaseURL: "http://spotify.test"}})

			f := runner.newFactory(client)
			if f.HTTPClient != client || f.SpotifyBaseURL != "http://spotify.test" {
				t.Errorf("factory = %+v", f)
			}
		})
	})

	t.Run("oauthConfigs", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Google = shared.OAuthClientConfig{}

		configs, err := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{})}).oauthConfigs(config)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := configs[models.Spotify]; !ok {
			t.Error("expected spotify config")
		}
		if _, ok := configs[models.Google]; ok {
			t.Error("expected google to be skipped")
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

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

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

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

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("writePlainln wraps in newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("next"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\nnext\n" {
				t.Errorf("got %q", output.String())
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"serve", "setup", "accounts", "transfer"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})
}

func TestSetup(t *testing.T) {
	logger := shared.NewLogger(&bytes.Buffer{})

	t.Run("config writes example file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: logger, Output: output})

		if err := run(runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected loadable config, got %v", err)
		}
		if !strings.Contains(output.String(), "config written to "+path) {
			t.Errorf("output = %q", output.String())
		}

		if err := run(runner, "setup", "config", "--config", path); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("database runs migrations", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output})

		if err := run(runner, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := os.Stat(config.Database.Path); err != nil {
			t.Errorf("expected database file, got %v", err)
		}
		if !strings.Contains(output.String(), "database ready") {
			t.Errorf("output = %q", output.String())
		}
	})
}

func TestAccountsList(t *testing.T) {
	logger := shared.NewLogger(&bytes.Buffer{})
	config := testConfig(t)

	future := time.Now().Add(time.Hour).UnixMilli()
	past := time.Now().Add(-time.Hour).UnixMilli()
	userID := seedUser(t, config,
		models.ProviderAccount{Provider: models.Spotify, ExternalID: "sp-1", AccessToken: "a", RefreshToken: "r", ExpiresAt: future},
		models.ProviderAccount{Provider: models.Google, ExternalID: "g-1", AccessToken: "b", ExpiresAt: past},
	)

	t.Run("json", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output})

		if err := run(runner, "accounts", "list", "--user", userID, "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var views []accountView
		if err := json.Unmarshal(output.Bytes(), &views); err != nil {
			t.Fatalf("failed to decode %q: %v", output.String(), err)
		}
		if len(views) != 2 {
			t.Fatalf("expected 2 accounts, got %d", len(views))
		}

		byProvider := map[string]accountView{}
		for _, v := range views {
			byProvider[v.Provider] = v
		}
		if sp := byProvider["spotify"]; sp.ExternalID != "sp-1" || sp.Expired || !sp.Refresh {
			t.Errorf("spotify = %+v", sp)
		}
		if g := byProvider["google"]; !g.Expired || g.Refresh {
			t.Errorf("google = %+v", g)
		}
	})

	t.Run("plain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output})

		if err := run(runner, "accounts", "list", "--user", userID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"sp-1", "g-1", "expired"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in output %q", want, output.String())
			}
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output})

		if err := run(runner, "accounts", "list", "--user", "nobody"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "No linked accounts") {
			t.Errorf("output = %q", output.String())
		}
	})
}

func TestTransferRun(t *testing.T) {
	logger := shared.NewLogger(&bytes.Buffer{})
	future := time.Now().Add(time.Hour).UnixMilli()

	reply := func(t *testing.T, w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}

	newUpstream := func(t *testing.T) *httptest.Server {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /spotify/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer spotify-stored" {
				t.Errorf("authorization = %q", got)
			}
			track := func(name, artist string) map[string]any {
				return map[string]any{"track": map[string]any{
					"name":    name,
					"artists": []any{map[string]string{"name": artist}},
				}}
			}
			reply(t, w, map[string]any{
				"items": []any{track("Song A", "Artist X"), track("Song B", "Artist Y")},
				"next":  nil,
			})
		})
		mux.HandleFunc("POST /youtube/playlists", func(w http.ResponseWriter, r *http.Request) {
			reply(t, w, map[string]string{"id": "yt-new"})
		})
		mux.HandleFunc("GET /youtube/search", func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Query().Get("q"), "Song B") {
				reply(t, w, map[string]any{"items": []any{}})
				return
			}
			reply(t, w, map[string]any{"items": []any{
				map[string]any{"id": map[string]string{"kind": "youtube#video", "videoId": "vid-a"}},
			}})
		})
		mux.HandleFunc("POST /youtube/playlistItems", func(w http.ResponseWriter, r *http.Request) {
			reply(t, w, map[string]string{"id": "item"})
		})

		upstream := httptest.NewServer(mux)
		t.Cleanup(upstream.Close)
		return upstream
	}

	newRunner := func(config *shared.Config, upstream *httptest.Server, output *bytes.Buffer) *Runner {
		return NewRunner(RunnerOpts{
			Config:     config,
			HTTPClient: upstream.Client(),
			Factory: services.Factory{
				SpotifyBaseURL: upstream.URL + "/spotify",
				YouTubeBaseURL: upstream.URL + "/youtube",
				UserInfoURL:    upstream.URL + "/userinfo",
			},
			Logger: logger,
			Output: output,
		})
	}

	t.Run("forward with stored credentials", func(t *testing.T) {
		config := testConfig(t)
		userID := seedUser(t, config,
			models.ProviderAccount{Provider: models.Spotify, ExternalID: "sp-1", AccessToken: "spotify-stored", ExpiresAt: future},
			models.ProviderAccount{Provider: models.Google, ExternalID: "g-1", AccessToken: "google-stored", ExpiresAt: future},
		)

		output := &bytes.Buffer{}
		runner := newRunner(config, newUpstream(t), output)

		err := run(runner, "transfer", "run", "--user", userID, "--playlist", "p1", "--name", "Road Trip")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for _, want := range []string{"Transfer Complete!", "Imported — Road Trip (yt-new)", "1/2", "Artist Y - Song B"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in output:\n%s", want, output.String())
			}
		}
	})

	t.Run("writes report", func(t *testing.T) {
		config := testConfig(t)
		userID := seedUser(t, config,
			models.ProviderAccount{Provider: models.Spotify, ExternalID: "sp-1", AccessToken: "spotify-stored", ExpiresAt: future},
			models.ProviderAccount{Provider: models.Google, ExternalID: "g-1", AccessToken: "google-stored", ExpiresAt: future},
		)
		report := filepath.Join(t.TempDir(), "failed.csv")

		runner := newRunner(config, newUpstream(t), &bytes.Buffer{})

		err := run(runner, "transfer", "run", "--user", userID, "--playlist", "p1", "--name", "Road Trip", "--report", report)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data, err := os.ReadFile(report)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(data), "1,Song B,Artist Y") {
			t.Errorf("report = %q", data)
		}
	})

	t.Run("missing destination account", func(t *testing.T) {
		config := testConfig(t)
		userID := seedUser(t, config,
			models.ProviderAccount{Provider: models.Spotify, ExternalID: "sp-1", AccessToken: "spotify-stored", ExpiresAt: future},
		)

		runner := newRunner(config, newUpstream(t), &bytes.Buffer{})

		err := run(runner, "transfer", "run", "--user", userID, "--playlist", "p1", "--name", "Road Trip")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if !strings.Contains(err.Error(), "Google (YouTube)") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("reverse checks google first", func(t *testing.T) {
		config := testConfig(t)
		userID := seedUser(t, config)

		runner := newRunner(config, newUpstream(t), &bytes.Buffer{})

		err := run(runner, "transfer", "run", "--user", userID, "--playlist", "p1", "--name", "Mix", "--reverse")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if !strings.Contains(err.Error(), "Google (YouTube)") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("requires flags", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Logger: logger, Output: &bytes.Buffer{}})

		if err := run(runner, "transfer", "run", "--playlist", "p1"); err == nil {
			t.Error("expected error for missing required flags")
		}
	})
}
