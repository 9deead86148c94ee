package system

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/reminders"
)

// NotifyCmd fires reminders that are due now. It is meant to run from cron
// or a launchd timer when 'habitual serve' is not running.
type NotifyCmd struct {
	DryRun bool `help:"Print due notifications instead of sending them."`
}

// now is swapped in tests.
var now = time.Now

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if _, err := ctx.App.Scheduler.RefreshIfStale(bg); err != nil {
		return err
	}

	at := now()
	if c.DryRun {
		due, expired, err := ctx.App.Dispatcher.Due(bg, at)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			fmt.Println("No notifications due.")
		}
		for _, occ := range due {
			fmt.Printf("[DRY RUN] %s at %s: %s\n", occ.Request.ID, occ.At.Format(constants.TimeFormat), occ.Request.Body)
		}
		for _, id := range expired {
			fmt.Printf("[DRY RUN] %s expired\n", id)
		}
		return nil
	}

	report, err := ctx.App.Dispatcher.Run(bg, at)
	if err != nil {
		return err
	}
	for _, id := range report.Delivered {
		fmt.Printf("Delivered %s\n", id)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d notification(s) could not be delivered", len(report.Failed))
	}
	return nil
}

// RespondCmd applies a notification action, as the tray app would.
type RespondCmd struct {
	Identifier string `arg:"" help:"Notification identifier."`
	Action     string `arg:"" help:"Action ID (MARK_DONE, SNOOZE, DISMISS, OPEN_APP)."`
	Habit      string `help:"Habit ID or title the notification refers to."`
}

func (c *RespondCmd) Run(ctx *cli.Context) error {
	resp := models.ActionResponse{
		Identifier: c.Identifier,
		ActionID:   c.Action,
	}
	if c.Habit != "" {
		habit, err := ctx.ResolveHabit(c.Habit, true)
		if err != nil {
			return err
		}
		resp.UserInfo = map[string]string{constants.HabitIDKey: habit.ID}
	}

	state, err := ctx.App.Scheduler.HandleAction(context.Background(), resp)
	if err != nil {
		return err
	}
	// Let the reconciliation queued by the action finish before exiting.
	ctx.App.Scheduler.Wait()

	if state == reminders.ActionPending {
		fmt.Printf("%s: no change\n", c.Identifier)
		return nil
	}
	fmt.Printf("%s: %s\n", c.Identifier, state)
	return nil
}
