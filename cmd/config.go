package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/undertow/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage undertow configuration",
	Long:  `Read and write undertow configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		tmpl := config.Template()
		if err := config.WriteFile(path, tmpl); err != nil {
			return err
		}
		fmt.Printf("Created %s\n", path)
		fmt.Println("  Edit it and set api_key and refresh_token to get started.")
		fmt.Println("  Get a free FRED key at: https://fred.stlouisfed.org/docs/api/api_key.html")
		return nil
	},
}

var configGetShowSecrets bool

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.APIKey, globalFlags.RefreshToken)
		if err != nil {
			return err
		}

		apiKey := cfg.RedactedAPIKey()
		refreshToken := cfg.RedactedRefreshToken()
		if configGetShowSecrets {
			apiKey = cfg.APIKey
			refreshToken = cfg.RefreshToken
		}
		if apiKey == "" {
			apiKey = "(not set)"
		}
		if refreshToken == "" {
			refreshToken = "(not set)"
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		rows := [][]string{
			{"api_key", apiKey},
			{"refresh_token", refreshToken},
			{"timeout", cfg.Timeout.String()},
			{"concurrency", strconv.Itoa(cfg.Concurrency)},
			{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
			{"fred_base_url", cfg.FredBaseURL},
			{"indeed_aggregate_url", cfg.IndeedAggregateURL},
			{"indeed_sectors_url", cfg.IndeedSectorsURL},
			{"db_path", cfg.DBPath},
			{"listen_addr", cfg.ListenAddr},
			{"cron_schedule", cfg.CronSchedule},
			{"config_file", src},
		}
		printKVTable(rows)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		val := args[1]

		f, path, err := loadConfigFile()
		if err != nil {
			path = config.DefaultConfigFile
			tmpl := config.Template()
			f = &tmpl
		}

		switch key {
		case "api_key":
			f.APIKey = val
		case "refresh_token":
			f.RefreshToken = val
		case "timeout":
			f.Timeout = val
		case "concurrency":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("concurrency must be an integer")
			}
			f.Concurrency = n
		case "rate":
			r, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("rate must be a number")
			}
			f.Rate = r
		case "fred_base_url":
			f.FredBaseURL = val
		case "indeed_aggregate_url":
			f.IndeedAggregateURL = val
		case "indeed_sectors_url":
			f.IndeedSectorsURL = val
		case "db_path":
			f.DBPath = val
		case "listen_addr":
			f.ListenAddr = val
		case "cron_schedule":
			f.CronSchedule = val
		default:
			return fmt.Errorf("unknown config key: %q\n\nValid keys: api_key, refresh_token, timeout, concurrency, rate, fred_base_url, indeed_aggregate_url, indeed_sectors_url, db_path, listen_addr, cron_schedule", key)
		}

		if err := config.WriteFile(path, *f); err != nil {
			return err
		}
		fmt.Printf("Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configGetCmd.Flags().BoolVar(&configGetShowSecrets, "show-secrets", false, "show API key and refresh token in plain text")
}

// loadConfigFile reads config.json from cwd; used by configSetCmd.
func loadConfigFile() (*config.File, string, error) {
	path := config.DefaultConfigFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var f config.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", err
	}
	return &f, path, nil
}

// printKVTable renders a two-column key/value table to stdout using aligned columns.
func printKVTable(rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Printf("  %s%s  %s\n", r[0], padding, r[1])
	}
}
