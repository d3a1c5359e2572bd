package cli

import (
	"fmt"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/service"

	"github.com/spf13/cobra"
)

// NewCreateAdminCommand bootstraps the first admin of a freshly activated
// tenant that has no users on the remote store yet.
func NewCreateAdminCommand(opts *RootOptions) *cobra.Command {
	var (
		tenantFlag string
		req        service.CreateUserRequest
	)
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN user for the activated tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAgent(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			id, err := resolveTenant(ctx, a, tenantFlag)
			if err != nil {
				return err
			}
			tenant, err := a.store.Tenants.FindByUUID(ctx, id)
			if err != nil {
				return WrapExitError(ExitCommandError, "tenant is not stored locally", err)
			}

			req.Role = model.RoleAdmin
			if req.FullName == "" {
				req.FullName = req.Username
			}
			user, err := service.NewUserService(a.store, nil).CreateUser(ctx, model.NewSession(tenant, nil), &req)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to create admin", err)
			}
			return output(cmd, opts, user.ToResponse(), func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s); it is pushed with the next cycle\n", user.Username, user.UUID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "tenant uuid (default: the activated tenant)")
	cmd.Flags().StringVar(&req.Username, "username", "admin", "login name")
	cmd.Flags().StringVar(&req.Password, "password", "", "password, at least 6 characters (required)")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "display name (default: the username)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
