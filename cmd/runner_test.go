package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lyrx/internal/services"
	"github.com/desertthunder/lyrx/internal/shared"
	tu "github.com/desertthunder/lyrx/internal/testing"
	"github.com/desertthunder/lyrx/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("fills defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil || runner.logger == nil {
				t.Fatal("expected default config and logger")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.player != nil || runner.provider != nil || runner.db != nil {
				t.Error("expected services to be built lazily")
			}
		})

		t.Run("keeps injected services", func(t *testing.T) {
			player := tu.NewFakePlayer()
			provider := &tu.FakeProvider{}
			runner := NewRunner(RunnerOpts{Player: player, Provider: provider, ConfigPath: "/etc/lyrx.toml"})

			if runner.player != player || runner.provider != provider {
				t.Error("expected injected player and provider")
			}
			if runner.lyricsProvider() != provider {
				t.Error("expected injected provider to win over the config")
			}
			if runner.configPath != "/etc/lyrx.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("lyricsProvider", func(t *testing.T) {
		t.Run("uses LYRX_LRCLIB_URL", func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.Write([]byte(lrclibRecord))
			}))
			defer srv.Close()

			t.Setenv("LYRX_LRCLIB_URL", srv.URL)
			config := shared.DefaultConfig()
			shared.ApplyEnv(config)
			config.Lyrics.RateLimit = 0

			runner := NewRunner(RunnerOpts{Config: config})
			provider := runner.lyricsProvider()
			if _, ok := provider.(*services.LRCLIBProvider); !ok {
				t.Fatalf("expected LRCLIB provider, got %T", provider)
			}
			if runner.lyricsProvider() != provider {
				t.Error("expected the provider to be built once")
			}

			lyrics, err := provider.Lookup(context.Background(), services.LyricsQuery{Title: "Holocene", Artist: "Bon Iver"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if lyrics.Title != "Holocene" || hits.Load() != 1 {
				t.Errorf("expected one request to the env URL, got %d hits and %+v", hits.Load(), lyrics)
			}
		})

		t.Run("applies the configured rate limit", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(lrclibRecord))
			}))
			defer srv.Close()

			config := shared.DefaultConfig()
			config.Lyrics.BaseURL = srv.URL
			config.Lyrics.RateLimit = 4

			provider := NewRunner(RunnerOpts{Config: config}).lyricsProvider()
			query := services.LyricsQuery{Title: "Holocene"}

			start := time.Now()
			for range 3 {
				if _, err := provider.Lookup(context.Background(), query); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
			}

			// burst of one, then 250ms per request
			if elapsed := time.Since(start); elapsed < 400*time.Millisecond {
				t.Errorf("expected requests to be spaced by the limiter, took %v", elapsed)
			}
		})
	})

	t.Run("lyricsRepository", func(t *testing.T) {
		t.Run("opens the database once", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "cache", "lyrx.db")
			runner := NewRunner(RunnerOpts{Config: config})
			defer runner.Close()

			repo, err := runner.lyricsRepository()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			db := runner.db

			if _, err := runner.lyricsRepository(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.db != db {
				t.Error("expected the open connection to be reused")
			}
			tu.AssertFileExists(t, config.Database.Path)

			if n, err := repo.Count(); err != nil || n != 0 {
				t.Errorf("expected migrated empty cache, got %d (%v)", n, err)
			}
		})

		t.Run("reports open failures", func(t *testing.T) {
			blocker := filepath.Join(t.TempDir(), "blocker")
			if err := os.WriteFile(blocker, nil, 0644); err != nil {
				t.Fatal(err)
			}
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(blocker, "lyrx.db")
			runner := NewRunner(RunnerOpts{Config: config})

			if _, err := runner.lyricsRepository(); err == nil {
				t.Fatal("expected error for an unreachable database path")
			}
			if runner.db != nil {
				t.Error("expected no connection to be kept after a failure")
			}
		})
	})

	t.Run("Close", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{DB: newTestDB(t)})

		if err := runner.Close(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.db != nil {
			t.Error("expected db to be released")
		}
		if err := runner.Close(); err != nil {
			t.Errorf("expected second Close to be a no-op, got %v", err)
		}
	})

	t.Run("SetLogger", func(t *testing.T) {
		var buf bytes.Buffer
		runner := NewRunner(RunnerOpts{})
		runner.SetLogger(shared.NewLogger(&buf))

		runner.logger.Info("switched")
		if !strings.Contains(buf.String(), "switched") {
			t.Errorf("expected output on the new logger, got %q", buf.String())
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}

		t.Run("persists to the config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			runner := NewRunner(RunnerOpts{ConfigPath: path})

			if err := runner.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := shared.LoadConfig(path)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if got := loaded.Credentials.Spotify.Token(); got == nil || got.AccessToken != "access" || got.RefreshToken != "refresh" {
				t.Errorf("expected saved token, got %+v", got)
			}
		})

		t.Run("keeps the refresh token when a refresh omits it", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			runner.saveTokens(token)

			if err := runner.saveTokens(&oauth2.Token{AccessToken: "rotated"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			spotify := runner.config.Credentials.Spotify
			if spotify.AccessToken != "rotated" || spotify.RefreshToken != "refresh" {
				t.Errorf("expected rotated access and kept refresh token, got %q / %q", spotify.AccessToken, spotify.RefreshToken)
			}
		})

		tests := []struct {
			name    string
			runner  func() *Runner
			token   *oauth2.Token
			wantErr string
			is      error
		}{
			{
				name:    "nil config",
				runner:  func() *Runner { r := NewRunner(RunnerOpts{}); r.config = nil; return r },
				token:   token,
				wantErr: "config is nil",
			},
			{
				name:    "empty token",
				runner:  func() *Runner { return NewRunner(RunnerOpts{}) },
				token:   nil,
				wantErr: "failed to update spotify configuration",
				is:      shared.ErrInvalidCredentials,
			},
			{
				name: "unwritable path",
				runner: func() *Runner {
					return NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "missing", "config.toml")})
				},
				token:   token,
				wantErr: "failed to save config",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.runner().saveTokens(tt.token)
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected %q error, got %v", tt.wantErr, err)
				}
				if tt.is != nil && !errors.Is(err, tt.is) {
					t.Errorf("expected %v in chain, got %v", tt.is, err)
				}
			})
		}
	})

	t.Run("overlayReloader", func(t *testing.T) {
		// reloader parses --dock top and returns the watcher callback with the messages it forwards.
		reloader := func(t *testing.T, runner *Runner) (func(*shared.Config), *[]tea.Msg) {
			t.Helper()
			var sent []tea.Msg
			var fn func(*shared.Config)

			cmd := overlayCommand(runner)
			cmd.Action = func(ctx context.Context, c *cli.Command) error {
				cfg, err := runner.overlayConfig(c)
				if err != nil {
					return err
				}
				fn = runner.overlayReloader(c, cfg, func(msg tea.Msg) { sent = append(sent, msg) })
				return nil
			}
			if err := cmd.Run(context.Background(), []string{"overlay", "--dock", "top"}); err != nil {
				t.Fatalf("unexpected run error: %v", err)
			}
			return fn, &sent
		}

		t.Run("token refresh does not reach the overlay", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			runner := NewRunner(RunnerOpts{ConfigPath: path})
			onChange, sent := reloader(t, runner)

			if err := runner.saveTokens(&oauth2.Token{AccessToken: "refreshed"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			loaded, err := shared.LoadConfig(path)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			onChange(loaded)

			if len(*sent) != 0 {
				t.Errorf("expected no reload for a token-only change, got %d messages", len(*sent))
			}
		})

		t.Run("overlay edits keep command line overrides", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			onChange, sent := reloader(t, runner)

			edited := shared.DefaultConfig()
			edited.Overlay.Foreground = "#00FF00"
			edited.Overlay.Dock = "center"
			onChange(edited)
			onChange(edited)

			if len(*sent) != 1 {
				t.Fatalf("expected exactly one reload, got %d", len(*sent))
			}
			want := edited.Overlay
			want.Dock = "top"
			if (*sent)[0] != ui.ConfigReloaded(want) {
				t.Errorf("expected reload with --dock kept, got %+v", (*sent)[0])
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		tests := []struct {
			name    string
			pretty  bool
			out     func() (io.Writer, *bytes.Buffer)
			want    string
			wantErr string
		}{
			{
				name: "compact",
				out:  func() (io.Writer, *bytes.Buffer) { b := &bytes.Buffer{}; return b, b },
				want: `{"id":"sp1"}` + "\n",
			},
			{
				name:   "pretty",
				pretty: true,
				out:    func() (io.Writer, *bytes.Buffer) { b := &bytes.Buffer{}; return b, b },
				want:   "{\n  \"id\": \"sp1\"\n}\n",
			},
			{
				name:    "write failure",
				out:     func() (io.Writer, *bytes.Buffer) { return &tu.FWriter{}, nil },
				wantErr: "failed to write output",
			},
			{
				name: "newline failure",
				out: func() (io.Writer, *bytes.Buffer) {
					w := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
					return &w, nil
				},
				wantErr: "failed to write newline",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w, buf := tt.out()
				runner := NewRunner(RunnerOpts{Output: w})

				err := runner.writeJSON(map[string]string{"id": "sp1"}, tt.pretty)
				if tt.wantErr != "" {
					if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
						t.Errorf("expected %q error, got %v", tt.wantErr, err)
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if buf.String() != tt.want {
					t.Errorf("expected %q, got %q", tt.want, buf.String())
				}
			})
		}
	})

	t.Run("register", func(t *testing.T) {
		names := map[string]bool{}
		for _, cmd := range NewRunner(RunnerOpts{}).register() {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "spotify", "lyrics", "cache", "overlay"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})
}
