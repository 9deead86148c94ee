package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/completion"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/tui"
	"github.com/julianstephens/habitual/internal/utils"
)

type HabitCmd struct {
	Add       HabitAddCmd       `cmd:"" help:"Add a new habit."`
	Edit      HabitEditCmd      `cmd:"" help:"Rename a habit or change its reminder."`
	List      HabitListCmd      `cmd:"" help:"List habits."`
	Show      HabitShowCmd      `cmd:"" help:"Show a habit's streaks and recent history."`
	Done      HabitDoneCmd      `cmd:"" help:"Mark a habit as done for a day."`
	Undo      HabitUndoCmd      `cmd:"" help:"Clear a habit's completion for a day."`
	Toggle    HabitToggleCmd    `cmd:"" help:"Flip a habit's completion for a day."`
	Archive   HabitArchiveCmd   `cmd:"" help:"Archive a habit."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Restore an archived habit."`
}

type HabitAddCmd struct {
	Title       string `arg:"" optional:"" help:"Habit title."`
	Reminder    string `help:"Daily reminder time (HH:MM)."`
	Global      bool   `help:"Use the global reminder instead of an individual one."`
	Interactive bool   `short:"i" help:"Fill in the habit with a form."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	fm := &tui.HabitFormModel{Title: c.Title, Reminder: c.Reminder, Global: c.Global}
	if c.Interactive {
		if err := tui.NewHabitForm(fm).Run(); err != nil {
			return err
		}
	}

	update, err := fm.Update()
	if err != nil {
		return err
	}
	habit, err := ctx.App.Habits.CreateWith(fm.Title, update)
	if err != nil {
		return err
	}
	if _, err := ctx.Sync(context.Background()); err != nil {
		return err
	}

	fmt.Printf("Added habit: %s (%s)\n", habit.Title, cli.ShortID(habit.ID))
	return nil
}

type HabitEditCmd struct {
	Habit         string `arg:"" help:"Habit ID or title."`
	Title         string `help:"New title."`
	Reminder      string `help:"Daily reminder time (HH:MM)."`
	ClearReminder bool   `help:"Remove the individual reminder."`
	Global        *bool  `help:"Opt in to or out of the global reminder."`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit, false)
	if err != nil {
		return err
	}

	var update models.HabitUpdate
	if c.Title != "" {
		update.Title = &c.Title
	}
	if c.Reminder != "" {
		t, err := models.ParseTimeOfDay(c.Reminder)
		if err != nil {
			return err
		}
		update.ReminderTime = &t
	}
	update.ClearReminder = c.ClearReminder
	update.HasGlobalReminder = c.Global

	if update.IsEmpty() {
		fmt.Println("Nothing to change.")
		return nil
	}

	habit, err = ctx.App.Habits.Update(habit.ID, update)
	if err != nil {
		return err
	}
	if _, err := ctx.Sync(context.Background()); err != nil {
		return err
	}

	fmt.Printf("Updated habit: %s\n", habit.Title)
	return nil
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	list := ctx.App.Habits.ListActive
	if c.Archived {
		list = ctx.App.Habits.ListAll
	}
	habits, err := list()
	if err != nil {
		return err
	}

	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	cfg, err := ctx.App.Settings.Snapshot()
	if err != nil {
		return err
	}
	today := ctx.App.Habits.Today()

	fmt.Printf("%-8s  %-24s  %-6s  %-24s\n", "ID", "TITLE", "STREAK", "REMINDER")
	for _, h := range habits {
		title := h.Title
		if h.IsArchived {
			title += " [ARCHIVED]"
		}
		fmt.Printf("%-8s  %-24s  %-6d  %-24s\n",
			cli.ShortID(h.ID), title, completion.Streak(h, today), cli.FormatReminder(h, cfg))
	}
	return nil
}

type HabitShowCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
	Days  int    `help:"Number of days of history to show." default:"14"`
}

func (c *HabitShowCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit, true)
	if err != nil {
		return err
	}
	cfg, err := ctx.App.Settings.Snapshot()
	if err != nil {
		return err
	}
	today := ctx.App.Habits.Today()

	fmt.Printf("%s (%s)\n", habit.Title, habit.ID)
	if habit.IsArchived && habit.ArchivedAt != nil {
		fmt.Printf("  Archived:       %s\n", habit.ArchivedAt.In(ctx.App.Location).Format(constants.DateFormat))
	}
	fmt.Printf("  Created:        %s\n", habit.CreatedAt.In(ctx.App.Location).Format(constants.DateFormat))
	fmt.Printf("  Reminder:       %s\n", cli.FormatReminder(habit, cfg))
	fmt.Printf("  Streak:         %d\n", completion.Streak(habit, today))
	fmt.Printf("  Longest streak: %d\n", completion.LongestStreak(habit, ctx.App.Location))
	fmt.Printf("  %d-day rate:    %s\n", constants.DefaultCompletionWindowDays,
		cli.FormatPercent(completion.CompletionRate(habit, constants.DefaultCompletionWindowDays, today)))
	fmt.Printf("  Completions:    %d\n", len(habit.CompletionDates))

	days := c.Days
	if days < 1 {
		days = 1
	}
	var marks strings.Builder
	for i := days - 1; i >= 0; i-- {
		if completion.IsCompleted(habit, utils.AddDays(today, -i)) {
			marks.WriteString("x")
		} else {
			marks.WriteString(".")
		}
	}
	fmt.Printf("  Last %d days:  %s\n", days, marks.String())
	return nil
}

type HabitDoneCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
	Date  string `help:"Day to mark: today, yesterday or YYYY-MM-DD." default:"today"`
}

func (c *HabitDoneCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit, false)
	if err != nil {
		return err
	}
	day, err := utils.ResolveDay(c.Date, ctx.App.Habits.Now())
	if err != nil {
		return err
	}
	if _, err := ctx.App.Habits.RecordCompletion(habit.ID, day); err != nil {
		return err
	}
	if _, err := ctx.Sync(context.Background()); err != nil {
		return err
	}
	fmt.Printf("Marked %q done for %s\n", habit.Title, utils.FormatDate(day))
	return nil
}

type HabitUndoCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
	Date  string `help:"Day to clear: today, yesterday or YYYY-MM-DD." default:"today"`
}

func (c *HabitUndoCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit, false)
	if err != nil {
		return err
	}
	day, err := utils.ResolveDay(c.Date, ctx.App.Habits.Now())
	if err != nil {
		return err
	}
	if _, err := ctx.App.Habits.RemoveCompletion(habit.ID, day); err != nil {
		return err
	}
	if _, err := ctx.Sync(context.Background()); err != nil {
		return err
	}
	fmt.Printf("Cleared %q for %s\n", habit.Title, utils.FormatDate(day))
	return nil
}

type HabitToggleCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
	Date  string `help:"Day to toggle: today, yesterday or YYYY-MM-DD." default:"today"`
}

func (c *HabitToggleCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit, false)
	if err != nil {
		return err
	}
	day, err := utils.ResolveDay(c.Date, ctx.App.Habits.Now())
	if err != nil {
		return err
	}
	_, completed, err := ctx.App.Habits.ToggleCompletion(habit.ID, day)
	if err != nil {
		return err
	}
	if _, err := ctx.Sync(context.Background()); err != nil {
		return err
	}
	if completed {
		fmt.Printf("Marked %q done for %s\n", habit.Title, utils.FormatDate(day))
	} else {
		fmt.Printf("Cleared %q for %s\n", habit.Title, utils.FormatDate(day))
	}
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit, false)
	if err != nil {
		return err
	}
	if _, err := ctx.App.Habits.Archive(habit.ID); err != nil {
		return err
	}
	if err := ctx.App.Scheduler.CancelHabit(context.Background(), habit.ID); err != nil {
		return err
	}
	if _, err := ctx.Sync(context.Background()); err != nil {
		return err
	}
	fmt.Printf("Archived habit: %s\n", habit.Title)
	fmt.Println("(History is kept. Use 'habitual habit unarchive' to undo)")
	return nil
}

type HabitUnarchiveCmd struct {
	Habit string `arg:"" help:"Habit ID or title."`
}

func (c *HabitUnarchiveCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit, true)
	if err != nil {
		return err
	}
	if _, err := ctx.App.Habits.Unarchive(habit.ID); err != nil {
		return err
	}
	if _, err := ctx.Sync(context.Background()); err != nil {
		return err
	}
	fmt.Printf("Unarchived habit: %s\n", habit.Title)
	return nil
}
