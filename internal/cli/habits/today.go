package habits

import (
	"fmt"
	"strings"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/completion"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/utils"
)

type TodayCmd struct{}

func (c *TodayCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.App.Habits.ListActive()
	if err != nil {
		return err
	}
	today := ctx.App.Habits.Today()

	if len(habits) == 0 {
		fmt.Println("No habits yet. Add one with 'habitual habit add'.")
		return nil
	}

	fmt.Printf("Habits for %s:\n\n", utils.FormatDate(today))
	for _, h := range habits {
		status := "[ ]"
		if completion.IsCompleted(h, today) {
			status = "[x]"
		}
		streak := ""
		if n := completion.Streak(h, today); n > 0 {
			streak = fmt.Sprintf("  (%d day streak)", n)
		}
		fmt.Printf("%s %s%s\n", status, h.Title, streak)
	}

	summary := completion.TodaysSummary(habits, today)
	fmt.Printf("\nCompleted: %d/%d (%s)\n", summary.Completed, summary.Total, cli.FormatPercent(summary.Rate))
	return nil
}

type StatsCmd struct {
	Days int `help:"Number of days of history." default:"7"`
}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.App.Habits.ListActive()
	if err != nil {
		return err
	}
	today := ctx.App.Habits.Today()
	days := c.Days
	if days < 1 {
		days = constants.DefaultHistoryDays
	}

	summary := completion.TodaysSummary(habits, today)
	fmt.Printf("Today: %d/%d completed (%s)\n\n", summary.Completed, summary.Total, cli.FormatPercent(summary.Rate))

	fmt.Printf("Last %d days:\n", days)
	for _, d := range completion.History(habits, today, days) {
		bar := strings.Repeat("#", d.Completed) + strings.Repeat(".", max(summary.Total-d.Completed, 0))
		fmt.Printf("  %s %s  %d\n", d.Day.Format("Mon 01/02"), bar, d.Completed)
	}

	if len(habits) == 0 {
		return nil
	}
	fmt.Printf("\n%-24s  %6s  %7s  %5s\n", "HABIT", "STREAK", "LONGEST", "RATE")
	for _, h := range habits {
		fmt.Printf("%-24s  %6d  %7d  %5s\n", h.Title,
			completion.Streak(h, today),
			completion.LongestStreak(h, ctx.App.Location),
			cli.FormatPercent(completion.CompletionRate(h, constants.DefaultCompletionWindowDays, today)))
	}
	return nil
}
