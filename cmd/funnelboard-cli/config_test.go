package main

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// resetFlags restores global flag state after each test.
func resetFlags(t *testing.T) {
	t.Helper()
	orig := struct{ url, key, fmt string }{flagURL, flagKey, flagFmt}
	t.Cleanup(func() {
		flagURL = orig.url
		flagKey = orig.key
		flagFmt = orig.fmt
	})
	flagURL = defaultURL
	flagKey = ""
}

// isolate points HOME at a temp dir and clears the FUNNELBOARD_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	resetFlags(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("FUNNELBOARD_URL", "")
	t.Setenv("FUNNELBOARD_API_KEY", "")
	return home
}

func writeConfigFile(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".funnelboard")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestResolveConfigEnv(t *testing.T) {
	isolate(t)
	t.Setenv("FUNNELBOARD_URL", "http://env-server:9090")
	t.Setenv("FUNNELBOARD_API_KEY", "secret-key-from-env")

	resolveConfig()

	if flagURL != "http://env-server:9090" {
		t.Errorf("flagURL: got %q, want %q", flagURL, "http://env-server:9090")
	}
	if flagKey != "secret-key-from-env" {
		t.Errorf("flagKey: got %q, want %q", flagKey, "secret-key-from-env")
	}
}

// An explicit flag value is not overridden by the environment.
func TestResolveConfigFlagTakesPrecedenceOverEnv(t *testing.T) {
	isolate(t)
	t.Setenv("FUNNELBOARD_URL", "http://env-server:9090")

	flagURL = "http://explicit-flag:1234"
	resolveConfig()

	if flagURL != "http://explicit-flag:1234" {
		t.Errorf("explicit flag should win; got %q", flagURL)
	}
}

func TestResolveConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantURL string
		wantKey string
	}{
		{
			name:    "flat",
			content: "url: http://from-file:8080\napi_key: file-key\n",
			wantURL: "http://from-file:8080",
			wantKey: "file-key",
		},
		{
			name: "active profile",
			content: `
active_profile: staging
profiles:
  default:
    url: http://default:3030
    api_key: default-key
  staging:
    url: http://staging:4040
    api_key: staging-key
`,
			wantURL: "http://staging:4040",
			wantKey: "staging-key",
		},
		{
			name: "default profile when none active",
			content: `
profiles:
  default:
    url: http://default-profile:5050
    api_key: default-profile-key
`,
			wantURL: "http://default-profile:5050",
			wantKey: "default-profile-key",
		},
		{
			name:    "invalid yaml ignored",
			content: ":::not-yaml:::",
			wantURL: defaultURL,
			wantKey: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			home := isolate(t)
			writeConfigFile(t, home, tc.content)

			resolveConfig()

			if flagURL != tc.wantURL {
				t.Errorf("flagURL: got %q, want %q", flagURL, tc.wantURL)
			}
			if flagKey != tc.wantKey {
				t.Errorf("flagKey: got %q, want %q", flagKey, tc.wantKey)
			}
		})
	}
}

func TestResolveConfigMissingFile(t *testing.T) {
	isolate(t)

	resolveConfig()

	if flagURL != defaultURL {
		t.Errorf("flagURL should stay default; got %q", flagURL)
	}
	if flagKey != "" {
		t.Errorf("flagKey should stay empty; got %q", flagKey)
	}
}

// Environment values take precedence over the config file.
func TestResolveConfigEnvNotOverriddenByFile(t *testing.T) {
	home := isolate(t)
	t.Setenv("FUNNELBOARD_API_KEY", "env-wins-key")
	writeConfigFile(t, home, "url: http://file:9000\napi_key: file-key\n")

	resolveConfig()

	if flagKey != "env-wins-key" {
		t.Errorf("flagKey should be env value; got %q", flagKey)
	}
	if flagURL != "http://file:9000" {
		t.Errorf("flagURL should come from file; got %q", flagURL)
	}
}

func TestWriteConfigKeepsOtherProfiles(t *testing.T) {
	home := isolate(t)
	writeConfigFile(t, home, "active_profile: prod\nprofiles:\n  prod:\n    url: http://prod\n    api_key: prod-key\n")

	path, err := writeConfig("local", "http://localhost:3030", "local-key")
	if err != nil {
		t.Fatalf("writeConfig: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.ActiveProfile != "local" {
		t.Errorf("active profile = %q, want local", cfg.ActiveProfile)
	}
	if cfg.Profiles["prod"].APIKey != "prod-key" {
		t.Errorf("prod profile lost: %+v", cfg.Profiles)
	}
	if url, key := cfg.resolve(); url != "http://localhost:3030" || key != "local-key" {
		t.Errorf("resolve() = %q, %q", url, key)
	}
}
