package users

import (
	"bufio"
	"fmt"
	"net/mail"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/cmd/taskgate/cmd/cmdutil"
	"github.com/terraconstructs/taskgate/internal/services/iam"
)

var (
	emailFlag    string
	fullNameFlag string
	passwordFlag string
	roleFlag     string
	stdinFlag    bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a principal and print its first token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		if env == nil {
			return fmt.Errorf("users commands are not bound to a configuration")
		}
		cfg, logger := env()
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		if logger == nil {
			logger = zap.NewNop()
		}

		ctx := cmd.Context()
		bundle, err := cmdutil.NewIssuerBundle(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer bundle.Close()

		token, err := bundle.Issuer.Signup(ctx, iam.SignupRequest{
			Email:    emailFlag,
			Password: password,
			FullName: fullNameFlag,
			Role:     roleFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		claims, err := bundle.Codec.Parse(token)
		if err != nil {
			return err
		}

		fmt.Println("User created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("User ID: %s\n", claims.PrincipalID)
		fmt.Printf("Email: %s\n", claims.Identity)
		fmt.Printf("Role: %s\n", claims.Roles)
		fmt.Printf("Token: %s\n", token)
		fmt.Println("----------------------------------------")
		return nil
	},
}
