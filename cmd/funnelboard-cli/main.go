package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/funnelboard/funnelboard/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.3.0"
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:3030"

var (
	apiClient *client.Client
	flagURL   string
	flagKey   string
	flagFmt   string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("funnelboard version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("funnelboard version %s-dev", version)
}

type configFile struct {
	// Flat format
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	// Profile format
	Profiles      map[string]profileConfig `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

// profileConfig holds connection settings for a single profile.
type profileConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// resolve returns the url and key of the active profile, falling back to the
// flat fields.
func (f *configFile) resolve() (url, apiKey string) {
	url, apiKey = f.URL, f.APIKey
	if f.Profiles == nil {
		return url, apiKey
	}
	name := f.ActiveProfile
	if name == "" {
		name = "default"
	}
	if p, ok := f.Profiles[name]; ok {
		if p.URL != "" {
			url = p.URL
		}
		if p.APIKey != "" {
			apiKey = p.APIKey
		}
	}
	return url, apiKey
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".funnelboard", "config.yaml"), nil
}

func loadConfigFile() (string, *configFile, error) {
	path, err := configPath()
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return path, nil, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return path, nil, err
	}
	return path, &cfg, nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "funnelboard",
		Short:   "Funnelboard CLI for funnels, share links and metrics",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			var opts []client.Option
			if flagKey != "" {
				opts = append(opts, client.WithAPIKey(flagKey))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "Funnelboard server URL (env: FUNNELBOARD_URL)")
	rootCmd.PersistentFlags().StringVar(&flagKey, "api-key", "", "API key (env: FUNNELBOARD_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	initCmd := newInitCmd()
	initCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // skip client setup
	doctorCmd := newDoctorCmd()
	doctorCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // skip client setup

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newFunnelCmd())
	rootCmd.AddCommand(newShareCmd())
	rootCmd.AddCommand(newMetricCmd())
	rootCmd.AddCommand(newTemplateCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newAuditCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig fills flagURL and flagKey. Flags win, then the environment,
// then the config file.
func resolveConfig() {
	if flagURL == defaultURL {
		if v := os.Getenv("FUNNELBOARD_URL"); v != "" {
			flagURL = v
		}
	}
	if flagKey == "" {
		flagKey = os.Getenv("FUNNELBOARD_API_KEY")
	}

	_, cfg, err := loadConfigFile()
	if err != nil {
		return
	}
	url, key := cfg.resolve()
	if flagURL == defaultURL && url != "" {
		flagURL = url
	}
	if flagKey == "" && key != "" {
		flagKey = key
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
