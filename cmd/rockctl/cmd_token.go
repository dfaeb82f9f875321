package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/yanqian/rockwatch/internal/domain/auth"
	"github.com/yanqian/rockwatch/internal/infra/config"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage operator tokens",
	}
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE:  runTokenIssue,
	}
	issue.Flags().String("subject", "", "Operator name recorded on acknowledgements (required)")
	issue.Flags().String("role", auth.RoleOperator, "Token role")
	_ = issue.MarkFlagRequired("subject")
	cmd.AddCommand(issue)
	return cmd
}

func runTokenIssue(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return errors.New("auth secret is not configured; set AUTH_SECRET")
	}
	svc := auth.NewService(auth.Config{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	}, commandLogger(cmd))

	subject, _ := cmd.Flags().GetString("subject")
	role, _ := cmd.Flags().GetString("role")
	token, err := svc.Issue(cmd.Context(), subject, role)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(token)
}
