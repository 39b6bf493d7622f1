package main

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/postgres"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
	"github.com/DanielPopoola/coinpay-gateway/internal/worker"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func retentionCmd() *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Purge closed payment attempts older than the retention window",
		Long: `Deletes attempts in approved, rejected, cancelled or failed status whose
last update is older than the retention window. Ledger entries are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if maxAge <= 0 {
				maxAge = a.cfg.Retention.MaxAge
			}
			w := worker.NewRetentionWorker(postgres.NewPaymentRepository(a.db), 0, maxAge, a.cfg.Retention.BatchSize, a.logger)
			purged, err := w.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d attempts\n", purged)
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "override the configured retention window")
	return cmd
}

func approveCmd() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "approve [payment-id]",
		Short: "Approve a completed attempt and credit its coins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid payment id: %w", err)
			}

			return withApprovals(cmd.Context(), func(approvals *service.ApprovalService) error {
				result, err := approvals.Approve(cmd.Context(), id, actor)
				if err != nil {
					return err
				}
				if !result.Credited {
					fmt.Fprintf(cmd.OutOrStdout(), "payment %s was already approved\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "payment %s approved, %d coins credited to %s\n",
					id, result.Entry.Delta, result.Payment.UserID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "cli", "name recorded as the approver")
	return cmd
}

func rejectCmd() *cobra.Command {
	var (
		actor  string
		reason string
	)

	cmd := &cobra.Command{
		Use:   "reject [payment-id]",
		Short: "Reject a completed or pending_review attempt without crediting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid payment id: %w", err)
			}

			return withApprovals(cmd.Context(), func(approvals *service.ApprovalService) error {
				payment, changed, err := approvals.Reject(cmd.Context(), id, reason, actor)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintf(cmd.OutOrStdout(), "payment %s was already rejected\n", payment.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "payment %s rejected\n", payment.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "cli", "name recorded as the reviewer")
	cmd.Flags().StringVar(&reason, "reason", "", "why the attempt is rejected")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func withApprovals(ctx context.Context, fn func(*service.ApprovalService) error) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	publisher, closePublisher, err := a.publisher()
	if err != nil {
		return err
	}
	defer closePublisher()

	return fn(service.NewApprovalService(postgres.NewPaymentRepository(a.db), publisher, a.logger))
}
