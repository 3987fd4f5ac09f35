package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/funnelboard/funnelboard/client"
)

func newInitCmd() *cobra.Command {
	var (
		initURL     string
		initAPIKey  string
		initProfile string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up Funnelboard CLI configuration",
		Long:  "Interactive setup wizard that writes a profile to ~/.funnelboard/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			nonInteractive := initURL != "" || initAPIKey != ""
			return runInit(cmd.Context(), os.Stdin, initProfile, initURL, initAPIKey, nonInteractive)
		},
	}

	cmd.Flags().StringVar(&initURL, "url", "", "Server URL (non-interactive mode)")
	cmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key (non-interactive mode)")
	cmd.Flags().StringVar(&initProfile, "profile", "default", "Profile name to write and activate")
	return cmd
}

func runInit(ctx context.Context, in io.Reader, profile, url, apiKey string, nonInteractive bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !nonInteractive {
		fmt.Println("\n  Funnelboard Setup")
		fmt.Println("  -----------------")
		fmt.Println()

		reader := bufio.NewReader(in)

		fmt.Printf("  Server URL [%s]: ", defaultURL)
		line, _ := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			url = line
		}

		fmt.Print("  API Key: ")
		keyLine, _ := reader.ReadString('\n')
		apiKey = strings.TrimSpace(keyLine)
	}

	if url == "" {
		url = defaultURL
	}

	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}

	ver, err := testConnection(ctx, url, apiKey)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	cfgPath, err := writeConfig(profile, url, apiKey)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if nonInteractive {
		fmt.Printf("Config saved to %s\n", cfgPath)
		return nil
	}

	fmt.Printf("\n  Connected (v%s)\n", ver)
	fmt.Printf("  Config saved to %s\n\n", cfgPath)
	fmt.Println("  Next steps:")
	fmt.Println("    funnelboard doctor          # Full diagnostic check")
	fmt.Println("    funnelboard funnel list     # View your funnels")
	fmt.Println("    funnelboard --help          # See all commands")
	fmt.Println()

	return nil
}

// testConnection checks the server is up and the key is accepted, returning
// the server version.
func testConnection(ctx context.Context, url, apiKey string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c := client.New(url, client.WithAPIKey(apiKey))

	health, err := c.Health(ctx)
	if err != nil {
		return "", err
	}
	if _, err := c.Templates(ctx); err != nil {
		return "", err
	}

	if health.Version == "" {
		return "unknown", nil
	}
	return health.Version, nil
}

// writeConfig stores the profile and makes it active, keeping any other
// profiles already in the file.
func writeConfig(profile, url, apiKey string) (string, error) {
	cfgPath, existing, err := loadConfigFile()
	if cfgPath == "" {
		return "", err
	}

	cfg := configFile{Profiles: map[string]profileConfig{}}
	if existing != nil {
		for name, p := range existing.Profiles {
			cfg.Profiles[name] = p
		}
	}
	if profile == "" {
		profile = "default"
	}
	cfg.Profiles[profile] = profileConfig{URL: url, APIKey: apiKey}
	cfg.ActiveProfile = profile

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}

	return cfgPath, nil
}
