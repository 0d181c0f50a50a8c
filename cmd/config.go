//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudmanic/tvstream/internal/config"
)

// configCmd is the parent command for all configuration-related subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tvstream configuration",
}

// configInitCmd initializes the CLI configuration by prompting for a
// session ID and auth token. It first checks TV_SESSIONID/TV_AUTH_TOKEN
// and offers to use those values. The configuration is saved to
// ~/.config/tvstream/config.json.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration with your TradingView session credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			cfg = config.DefaultConfig()
		}

		reader := bufio.NewReader(os.Stdin)

		if envSid := os.Getenv("TV_SESSIONID"); envSid != "" {
			if promptYesNo(reader, "Found TV_SESSIONID in environment. Use it?", true) {
				cfg.SessionID = envSid
			}
		}
		if cfg.SessionID == "" {
			fmt.Print("Enter your TradingView sessionid cookie (leave blank for unauthenticated): ")
			val, _ := reader.ReadString('\n')
			cfg.SessionID = strings.TrimSpace(val)
		}

		if envTok := os.Getenv("TV_AUTH_TOKEN"); envTok != "" {
			if promptYesNo(reader, "Found TV_AUTH_TOKEN in environment. Use it?", true) {
				cfg.AuthToken = envTok
			}
		}
		if cfg.AuthToken == "" {
			fmt.Print("Enter your TradingView auth_token cookie (leave blank for unauthenticated): ")
			val, _ := reader.ReadString('\n')
			cfg.AuthToken = strings.TrimSpace(val)
		}

		if promptYesNo(reader, "\nConfigure S3 archive export credentials?", false) {
			envAccess := os.Getenv("TV_S3_ACCESS_KEY")
			if envAccess != "" && promptYesNo(reader, "Found TV_S3_ACCESS_KEY in environment. Use it?", true) {
				cfg.S3AccessKey = envAccess
			}
			if cfg.S3AccessKey == "" {
				fmt.Print("Enter your S3 Access Key ID: ")
				val, _ := reader.ReadString('\n')
				cfg.S3AccessKey = strings.TrimSpace(val)
			}

			envSecret := os.Getenv("TV_S3_SECRET_KEY")
			if envSecret != "" && promptYesNo(reader, "Found TV_S3_SECRET_KEY in environment. Use it?", true) {
				cfg.S3SecretKey = envSecret
			}
			if cfg.S3SecretKey == "" {
				fmt.Print("Enter your S3 Secret Access Key: ")
				val, _ := reader.ReadString('\n')
				cfg.S3SecretKey = strings.TrimSpace(val)
			}

			fmt.Print("Enter your S3-compatible endpoint URL: ")
			val, _ := reader.ReadString('\n')
			cfg.S3Endpoint = strings.TrimSpace(val)
		}

		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Println("Configuration saved to ~/.config/tvstream/config.json")
		return nil
	},
}

// configShowCmd displays the current configuration with secrets masked.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Printf("Origin:         %s\n", cfg.Origin)
		fmt.Printf("Session ID:     %s\n", maskString(cfg.SessionID))
		fmt.Printf("Auth Token:     %s\n", maskString(cfg.AuthToken))
		fmt.Printf("S3 Endpoint:    %s\n", cfg.S3Endpoint)
		fmt.Printf("S3 Access Key:  %s\n", maskString(cfg.S3AccessKey))
		fmt.Printf("S3 Secret Key:  %s\n", maskString(cfg.S3SecretKey))

		return nil
	},
}

// promptYesNo prints prompt followed by a [Y/n]/[y/N] hint depending on
// defaultYes, and interprets a blank answer as the default.
func promptYesNo(reader *bufio.Reader, prompt string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	fmt.Printf("%s %s: ", prompt, hint)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer == "" {
		return defaultYes
	}
	return answer == "y" || answer == "yes"
}

// init registers the config subcommands with the root command.
func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
