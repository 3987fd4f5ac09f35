package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/funnelboard/funnelboard/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against config, server, and auth",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runDoctor(cmd.Context())
			if !printResults(results) {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor(ctx context.Context) []checkResult {
	if ctx == nil {
		ctx = context.Background()
	}

	var results []checkResult

	cfgPath, _, cfgErr := loadConfigFile()
	if cfgErr != nil {
		results = append(results, checkResult{
			Name: "Config file", Detail: cfgPath,
			Hint: "Run: funnelboard init",
		})
	} else {
		results = append(results, checkResult{
			Name: "Config file", Passed: true,
			Detail: fmt.Sprintf("found (%s)", cfgPath),
		})
	}

	resolveConfig()
	url, apiKey := flagURL, flagKey

	if apiKey == "" {
		results = append(results, checkResult{
			Name: "API key",
			Hint: "Set --api-key, FUNNELBOARD_API_KEY, or run funnelboard init",
		})
	} else {
		results = append(results, checkResult{Name: "API key", Passed: true, Detail: "configured"})
	}

	c := client.New(url, client.WithAPIKey(apiKey), client.WithTimeout(5*time.Second))

	health, err := c.Health(ctx)
	if err != nil {
		results = append(results, checkResult{
			Name: "Server reachable", Detail: url,
			Hint: fmt.Sprintf("Is the funnelboard server running? Error: %v", err),
		})
		return results
	}

	results = append(results, checkResult{
		Name: "Server reachable", Passed: true,
		Detail: fmt.Sprintf("%s (v%s)", url, health.Version),
	})
	results = append(results, checkResult{
		Name:   "Database",
		Passed: health.Database == "connected",
		Detail: health.Database,
		Hint:   "Check DATABASE_URL on the server",
	})

	if apiKey != "" {
		if _, err := c.Templates(ctx); err != nil {
			results = append(results, checkResult{
				Name: "Authentication",
				Hint: fmt.Sprintf("Check your API key. Error: %v", err),
			})
		} else {
			results = append(results, checkResult{Name: "Authentication", Passed: true, Detail: "valid"})
		}
	}

	return results
}

func printResults(results []checkResult) bool {
	fmt.Println("\nFunnelboard Doctor")
	fmt.Println("==================")
	fmt.Println()

	allPassed := true
	for _, r := range results {
		mark := "ok  "
		if !r.Passed {
			mark = "FAIL"
			allPassed = false
		}
		if r.Detail != "" {
			fmt.Printf("[%s] %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Printf("[%s] %s\n", mark, r.Name)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Printf("       Hint: %s\n", r.Hint)
		}
	}

	fmt.Println()
	if allPassed {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed.")
	}
	return allPassed
}
