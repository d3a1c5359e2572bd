package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"
	"go-pos-sync/internal/service"
	"go-pos-sync/internal/syncengine"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// resolveTenant picks the tenant a command works on: the explicit flag, then
// the activated tenant of the store.
func resolveTenant(ctx context.Context, a *agent, flag string) (uuid.UUID, error) {
	if flag != "" {
		id, err := uuid.Parse(flag)
		if err != nil {
			return uuid.Nil, WrapExitError(ExitCommandError, "invalid --tenant", err)
		}
		return id, nil
	}
	current, err := a.store.Tenants.Current(ctx)
	if err == nil {
		return current.UUID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, WrapExitError(ExitCommandError, "failed to read tenant", err)
	}
	if a.cfg.TenantUUID != uuid.Nil {
		return a.cfg.TenantUUID, nil
	}
	return uuid.Nil, NewExitError(ExitCommandError, "installation is not activated; run possync activate <tenant-uuid>")
}

func NewActivateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <tenant-uuid>",
		Short: "Bind this installation to a tenant and pull all of its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid tenant uuid", err)
			}
			a, err := openAgent(opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			activation := service.NewActivationService(a.store, a.client, a.engine, nil)
			res := <-activation.Activate(cmd.Context(), id)
			if res.Err != nil {
				return WrapExitError(ExitFailure, "activation failed", res.Err)
			}
			return output(cmd, opts, res, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Activated %s (%s)\n", res.Tenant.Name, res.Tenant.UUID)
				return printReport(cmd, res.Report)
			})
		},
	}
}

func NewPullCommand(opts *RootOptions) *cobra.Command {
	var tenantFlag string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull every entity of the tenant from the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(cmd, opts, tenantFlag, func(ctx context.Context, e *syncengine.Engine, tenant uuid.UUID) (*syncengine.Report, error) {
				return e.Pull(ctx, tenant)
			})
		},
	}
	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "tenant uuid (default: the activated tenant)")
	return cmd
}

func NewPushCommand(opts *RootOptions) *cobra.Command {
	var tenantFlag string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push every unsynced row of the tenant to the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(cmd, opts, tenantFlag, func(ctx context.Context, e *syncengine.Engine, tenant uuid.UUID) (*syncengine.Report, error) {
				return e.Push(ctx, tenant)
			})
		},
	}
	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "tenant uuid (default: the activated tenant)")
	return cmd
}

func runCycle(cmd *cobra.Command, opts *RootOptions, tenantFlag string, cycle func(context.Context, *syncengine.Engine, uuid.UUID) (*syncengine.Report, error)) error {
	a, err := openAgent(opts, true)
	if err != nil {
		return err
	}
	defer a.Close()

	tenant, err := resolveTenant(cmd.Context(), a, tenantFlag)
	if err != nil {
		return err
	}
	report, cycleErr := cycle(cmd.Context(), a.engine, tenant)
	if report != nil {
		if err := output(cmd, opts, report, func() error { return printReport(cmd, report) }); err != nil {
			return err
		}
	}
	if cycleErr != nil {
		return WrapExitError(ExitFailure, "sync cycle failed", cycleErr)
	}
	return nil
}

type statusOutput struct {
	Tenant   *model.Tenant              `json:"tenant,omitempty"`
	Unsynced map[model.EntityKind]int64 `json:"unsynced"`
}

func NewStatusCommand(opts *RootOptions) *cobra.Command {
	var tenantFlag string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the activated tenant and the rows waiting to be pushed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAgent(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			tenant, err := resolveTenant(ctx, a, tenantFlag)
			if err != nil {
				return err
			}
			out := statusOutput{}
			if t, err := a.store.Tenants.FindByUUID(ctx, tenant); err == nil {
				out.Tenant = t
			}
			out.Unsynced, err = a.store.UnsyncedCounts(ctx, tenant)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to count unsynced rows", err)
			}

			return output(cmd, opts, out, func() error {
				w := cmd.OutOrStdout()
				if out.Tenant != nil {
					fmt.Fprintf(w, "Tenant: %s (%s), status %s\n", out.Tenant.Name, out.Tenant.UUID, out.Tenant.Status)
				} else {
					fmt.Fprintf(w, "Tenant: %s (not stored locally)\n", tenant)
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ENTITY\tUNSYNCED")
				for _, kind := range model.SyncOrder {
					fmt.Fprintf(tw, "%s\t%d\n", kind, out.Unsynced[kind])
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "tenant uuid (default: the activated tenant)")
	return cmd
}

func printReport(cmd *cobra.Command, report *syncengine.Report) error {
	if report == nil {
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s of %s in %s\n", report.Direction, report.Tenant, report.Duration)
	fmt.Fprintln(tw, "ENTITY\tFETCHED\tUPSERTED\tPUSHED\tSKIPPED\tFAILED")
	for _, e := range report.Entities {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", e.Kind, e.Fetched, e.Upserted, e.Pushed, e.Skipped, e.Failed)
	}
	return tw.Flush()
}
