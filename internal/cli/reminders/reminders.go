package reminders

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/models"
)

type RemindersCmd struct {
	Sync    RemindersSyncCmd    `cmd:"" help:"Reconcile pending reminders with habits and settings."`
	Preview RemindersPreviewCmd `cmd:"" help:"Show the reminders that should be scheduled, without changing anything."`
	Pending RemindersPendingCmd `cmd:"" help:"List reminders currently pending."`
}

type RemindersSyncCmd struct{}

func (c *RemindersSyncCmd) Run(ctx *cli.Context) error {
	result, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Scheduled %d reminder(s) for %s\n", len(result.Scheduled), result.ComputedFor)
	for _, id := range result.Scheduled {
		fmt.Printf("  ✓ %s\n", id)
	}
	for _, id := range result.Kept {
		fmt.Printf("  ↻ %s (snoozed)\n", id)
	}
	for _, id := range result.Failed {
		fmt.Printf("  ✗ %s\n", id)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d reminder(s) could not be scheduled", len(result.Failed))
	}
	return nil
}

type RemindersPreviewCmd struct{}

func (c *RemindersPreviewCmd) Run(ctx *cli.Context) error {
	desired, err := ctx.App.Scheduler.Desired()
	if err != nil {
		return err
	}
	if len(desired) == 0 {
		fmt.Println("No reminders would be scheduled.")
		return nil
	}
	printRequests(desired)
	return nil
}

type RemindersPendingCmd struct{}

func (c *RemindersPendingCmd) Run(ctx *cli.Context) error {
	pending, err := ctx.App.Backend.PendingRequests(context.Background())
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending reminders.")
		return nil
	}
	printRequests(pending)
	return nil
}

func printRequests(reqs []models.NotificationRequest) {
	for _, r := range reqs {
		fmt.Printf("%-40s  %-20s  %s\n", r.ID, r.Trigger.String(), r.Category)
		fmt.Printf("  %s: %s\n", r.Title, strings.ReplaceAll(r.Body, "\n", " "))
	}
}
