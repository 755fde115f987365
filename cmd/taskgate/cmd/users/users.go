package users

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/config"
)

// Env returns the configuration and logger loaded by the root command.
type Env func() (*config.Config, *zap.Logger)

var env Env

// UsersCmd is the parent command for principal management
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage principals in the credential store",
}

// Bind makes the users commands read configuration through e instead of
// loading it again.
func Bind(e Env) *cobra.Command {
	env = e
	return UsersCmd
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&fullNameFlag, "name", "", "Full name of the user")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().StringVar(&roleFlag, "role", "ROLE_USER", "Role to assign (ROLE_USER or ROLE_ADMIN)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	UsersCmd.AddCommand(createCmd)
}
