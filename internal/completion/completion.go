// Package completion derives per-day status, streaks and completion rates
// from a habit's completion history. Every function is pure and never fails:
// malformed input yields the most conservative answer.
package completion

import (
	"time"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/utils"
)

// Summary is the completion state of a set of habits for one day.
type Summary struct {
	Completed int
	Total     int
	Rate      float64
}

// DayCount is the number of habits completed on one calendar day.
type DayCount struct {
	Day       time.Time
	Completed int
}

// IsCompleted reports whether habit has a completion on date's calendar day.
// The calendar is date's location.
func IsCompleted(habit models.Habit, date time.Time) bool {
	day := utils.StartOfDay(date, nil)
	for _, d := range habit.CompletionDates {
		if d.IsZero() {
			continue
		}
		if utils.StartOfDay(d, date.Location()).Equal(day) {
			return true
		}
	}
	return false
}

// Streak counts consecutive completed days walking backward from today.
// It is 0 when today itself is not completed.
func Streak(habit models.Habit, today time.Time) int {
	days := daySet(habit, today.Location())
	streak := 0
	for day := utils.StartOfDay(today, nil); days[day.Unix()]; day = utils.AddDays(day, -1) {
		streak++
	}
	return streak
}

// CompletionRate is the number of completions on or after today-windowDays
// divided by windowDays. A non-positive window divides by 1. The divisor is
// fixed, not days since creation, so a three-day-old habit with three
// completions over a 30-day window rates 0.1.
func CompletionRate(habit models.Habit, windowDays int, today time.Time) float64 {
	start := utils.AddDays(utils.StartOfDay(today, nil), -windowDays)
	count := 0
	for day := range daySet(habit, today.Location()) {
		if day >= start.Unix() {
			count++
		}
	}

	denominator := windowDays
	if denominator < 1 {
		denominator = 1
	}
	rate := float64(count) / float64(denominator)
	if rate > 1 {
		rate = 1
	}
	return rate
}

// TodaysSummary counts how many habits are completed today. An empty list is
// vacuously complete with a rate of 1.
func TodaysSummary(habits []models.Habit, today time.Time) Summary {
	summary := Summary{Total: len(habits)}
	for _, h := range habits {
		if IsCompleted(h, today) {
			summary.Completed++
		}
	}
	if summary.Total == 0 {
		summary.Rate = 1
	} else {
		summary.Rate = float64(summary.Completed) / float64(summary.Total)
	}
	return summary
}

// IncompleteForDay returns the habits without a completion on date, preserving order.
func IncompleteForDay(habits []models.Habit, date time.Time) []models.Habit {
	var incomplete []models.Habit
	for _, h := range habits {
		if !IsCompleted(h, date) {
			incomplete = append(incomplete, h)
		}
	}
	return incomplete
}

// History returns per-day completed counts for the days ending today, oldest first.
func History(habits []models.Habit, today time.Time, days int) []DayCount {
	if days < 1 {
		return nil
	}
	end := utils.StartOfDay(today, nil)
	history := make([]DayCount, days)
	for i := range history {
		day := utils.AddDays(end, i-days+1)
		history[i] = DayCount{Day: day}
		for _, h := range habits {
			if IsCompleted(h, day) {
				history[i].Completed++
			}
		}
	}
	return history
}

// LongestStreak returns the longest run of consecutive completed days in the history.
func LongestStreak(habit models.Habit, loc *time.Location) int {
	days := daySet(habit, loc)
	longest := 0
	for key := range days {
		day := time.Unix(key, 0).In(loc)
		if days[utils.AddDays(day, -1).Unix()] {
			continue
		}
		run := 0
		for d := day; days[d.Unix()]; d = utils.AddDays(d, 1) {
			run++
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// daySet indexes completion days by the Unix time of their midnight in loc.
func daySet(habit models.Habit, loc *time.Location) map[int64]bool {
	set := make(map[int64]bool, len(habit.CompletionDates))
	for _, d := range habit.CompletionDates {
		if d.IsZero() {
			continue
		}
		set[utils.StartOfDay(d, loc).Unix()] = true
	}
	return set
}
