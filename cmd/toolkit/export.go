package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanwallace9/agencytoolkit/application/services"
	"github.com/alanwallace9/agencytoolkit/infrastructure/di"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	export := &cobra.Command{
		Use:   "export",
		Short: "Export tenant data",
	}

	var agencyID, out string
	customers := &cobra.Command{
		Use:   "customers",
		Short: "Write an agency's customers as CSV",
		Long:  "Write an agency's customers as CSV using the service role. Writes to stdout unless --out is set.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			agencyID = strings.TrimSpace(agencyID)
			if agencyID == "" {
				return errors.New("--agency is required")
			}
			cfg, err := opts.loader().Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			container, err := di.InitializeContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = container.Logger.Sync() }()

			agency, err := container.Agencies.Get(ctx, agencyID)
			if err != nil {
				return fmt.Errorf("agency %s: %w", agencyID, err)
			}
			data, err := container.Export.ExportCustomers(ctx, services.TenantOf(agency))
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(data), out)
			return nil
		},
	}
	customers.Flags().StringVar(&agencyID, "agency", "", "Agency ID")
	customers.Flags().StringVar(&out, "out", "", "Output file")

	export.AddCommand(customers)
	return export
}
