package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/model"
)

// liveOps is the slice of LiveService the live commands drive.
type liveOps interface {
	GoLive(ctx context.Context, req model.GoLiveRequest, adminID int) (live.Entry, error)
	StopLive(ctx context.Context, examID uuid.UUID) (bool, error)
	List(ctx context.Context) ([]live.Entry, error)
	Clear(ctx context.Context) error
}

func newLiveCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Inspect and control the live exam registry",
	}

	// open returns the live service; go-live also needs the exam bank.
	open := func(cmd *cobra.Command, withExams bool) (liveOps, error) {
		return e.liveService(cmd.Context(), withExams)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List live exams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer e.close()
			svc, err := open(cmd, false)
			if err != nil {
				return err
			}
			return runLiveList(cmd.Context(), svc, cmd.OutOrStdout())
		},
	})

	var exempt []int
	var adminID int
	goLive := &cobra.Command{
		Use:   "go-live <exam-id>",
		Short: "Put a published exam live for its class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			svc, err := open(cmd, true)
			if err != nil {
				return err
			}
			return runGoLive(cmd.Context(), svc, cmd.OutOrStdout(), args[0], exempt, adminID)
		},
	}
	goLive.Flags().IntSliceVar(&exempt, "exempt", nil, "student IDs exempted from the exam")
	goLive.Flags().IntVar(&adminID, "admin-id", 0, "admin recorded as publisher")
	cmd.AddCommand(goLive)

	cmd.AddCommand(&cobra.Command{
		Use:   "stop <exam-id>",
		Short: "Take an exam off the air",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			svc, err := open(cmd, false)
			if err != nil {
				return err
			}
			return runStopLive(cmd.Context(), svc, cmd.OutOrStdout(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every live exam",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer e.close()
			svc, err := open(cmd, false)
			if err != nil {
				return err
			}
			if err := svc.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Live registry cleared")
			return nil
		},
	})

	return cmd
}

func runLiveList(ctx context.Context, svc liveOps, out io.Writer) error {
	entries, err := svc.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No live exams")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXAM ID\tCLASS\tSUBJECT\tEXEMPTED\tPUBLISHER\tSINCE")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			entry.Exam.ID,
			entry.Exam.Class,
			entry.Exam.Subject,
			joinIDs(entry.Exempted),
			entry.PublishedBy,
			entry.WentLiveAt.Format(time.DateTime),
		)
	}
	return tw.Flush()
}

func runGoLive(ctx context.Context, svc liveOps, out io.Writer, rawID string, exempt []int, adminID int) error {
	examID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid exam id %q: %w", rawID, err)
	}
	entry, err := svc.GoLive(ctx, model.GoLiveRequest{ExamID: examID, ExemptedStudentIDs: exempt}, adminID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%s) is live for %s\n", entry.Exam.Subject, entry.Exam.ID, entry.Exam.Class)
	return nil
}

func runStopLive(ctx context.Context, svc liveOps, out io.Writer, rawID string) error {
	examID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid exam id %q: %w", rawID, err)
	}
	stopped, err := svc.StopLive(ctx, examID)
	if err != nil {
		return err
	}
	if !stopped {
		return fmt.Errorf("exam %s: %w", examID, live.ErrNotLive)
	}
	fmt.Fprintf(out, "Stopped %s\n", examID)
	return nil
}

func joinIDs(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
