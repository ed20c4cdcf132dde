package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aungkyaw/grn-automation/internal/config"
	"github.com/aungkyaw/grn-automation/internal/server"
)

var (
	tokenSubject string
	tokenStaff   bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token",
	Long:  `Signs a bearer token for the given subject using the configured JWT secret. Staff tokens see every user's runs.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "", "Subject the token identifies")
	tokenCmd.Flags().BoolVar(&tokenStaff, "staff", false, "Grant staff visibility")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(_ *cobra.Command, _ []string) error {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	service := server.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour)
	token, err := service.GenerateToken(tokenSubject, tokenStaff)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
