package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/taskgate/cmd/taskgate/cmd/cmdutil"
	"github.com/terraconstructs/taskgate/internal/auth"
)

var (
	mintPrincipalID int64
	mintIdentity    string
	mintRoles       []string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint and inspect bearer tokens with the configured key",
}

var tokenMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a token without touching the credential store",
	Long: `Mints a token for the given principal id, identity and roles. Intended
for operators and smoke tests; it does not check that the principal exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if mintPrincipalID <= 0 {
			return fmt.Errorf("--id must be a positive principal id")
		}
		if mintIdentity == "" {
			return fmt.Errorf("--email is required")
		}
		roles := make([]auth.Role, 0, len(mintRoles))
		for _, r := range mintRoles {
			role, err := auth.ParseRole(r)
			if err != nil {
				return err
			}
			roles = append(roles, role)
		}

		codec, err := cmdutil.NewCodec(cfg)
		if err != nil {
			return err
		}
		token, err := codec.Mint(mintPrincipalID, mintIdentity, auth.NewRoleSet(roles...))
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

type inspectOutput struct {
	Valid       bool     `json:"valid"`
	Reason      string   `json:"reason,omitempty"`
	Identity    string   `json:"identity,omitempty"`
	PrincipalID string   `json:"principalId,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	IssuedAt    string   `json:"issuedAt,omitempty"`
	ExpiresAt   string   `json:"expiresAt,omitempty"`
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect TOKEN",
	Short: "Verify a token and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codec, err := cmdutil.NewCodec(cfg)
		if err != nil {
			return err
		}

		out := inspectOutput{}
		claims, err := codec.Parse(args[0])
		switch {
		case err == nil:
			out.Valid = true
			out.Identity = claims.Identity
			out.PrincipalID = claims.PrincipalID
			out.Roles = claims.Roles.Strings()
			out.IssuedAt = claims.IssuedAt.UTC().Format(time.RFC3339)
			out.ExpiresAt = claims.ExpiresAt.UTC().Format(time.RFC3339)
		case errors.Is(err, auth.ErrExpired):
			out.Reason = "expired"
		case errors.Is(err, auth.ErrSignatureInvalid):
			out.Reason = "signature_invalid"
		default:
			out.Reason = "malformed"
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		if !out.Valid {
			return fmt.Errorf("token rejected: %s", out.Reason)
		}
		return nil
	},
}

func init() {
	tokenMintCmd.Flags().Int64Var(&mintPrincipalID, "id", 0, "Principal id to embed")
	tokenMintCmd.Flags().StringVar(&mintIdentity, "email", "", "Identity (email) to embed")
	tokenMintCmd.Flags().StringSliceVar(&mintRoles, "role", []string{string(auth.RoleUser)}, "Role(s) to embed")

	tokenCmd.AddCommand(tokenMintCmd, tokenInspectCmd)
	rootCmd.AddCommand(tokenCmd)
}
