package commands

import (
	"context"
	"fmt"
	"time"

	"homefit/internal/api"
	"homefit/internal/config"
	"homefit/internal/content"
	"homefit/internal/session"
	"homefit/internal/storage"
	"homefit/internal/workday"
)

// AddExercise registers a new exercise for today without entering the
// interactive view.
func AddExercise(ctx context.Context, name string, cfg *config.Config) error {
	store, err := storage.NewStore(cfg.CacheFile, cfg.CacheSecret)
	if err != nil {
		return fmt.Errorf("failed to open local cache: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	client := api.New(cfg.APIBaseURL, store)
	if err := client.AddExercise(ctx, name); err != nil {
		return fmt.Errorf("failed to add exercise: %w", err)
	}

	fmt.Printf("Added %q to today's list.\n", name)
	return nil
}

// Status prints today's workout summary. The day key honors the reset
// hour, so a 2 AM check still reports yesterday's session.
func Status(ctx context.Context, cfg *config.Config) error {
	store, err := storage.NewStore(cfg.CacheFile, cfg.CacheSecret)
	if err != nil {
		return fmt.Errorf("failed to open local cache: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	client := api.New(cfg.APIBaseURL, store)

	now := time.Now()
	dateKey := workday.Key(workday.Adjust(now, cfg.ResetHour))

	agg, err := client.Main(ctx, dateKey, 0)
	if err != nil {
		// Offline fallback: the last snapshot is better than nothing.
		cached, cerr := store.GetDaySnapshot(dateKey)
		if cerr != nil {
			return fmt.Errorf("failed to fetch day %s: %w", dateKey, err)
		}
		fmt.Println("(offline, showing cached snapshot)")
		agg = cached
	} else {
		_ = store.PutDaySnapshot(dateKey, agg)
	}

	fmt.Printf("\nWorkout day %s\n", dateKey)
	fmt.Printf("Total: %s\n\n", session.FormatElapsed(agg.TotalTimeMs))
	if len(agg.Exercises) == 0 {
		fmt.Println("No exercises yet.")
		return nil
	}
	for _, ex := range agg.Exercises {
		marker := " "
		if ex.IsActive {
			marker = "*"
		}
		fmt.Printf("%s %-20s %s\n", marker, ex.Name, session.FormatElapsed(ex.ElapsedMs(now)))
	}

	if len(agg.Diaries.Content) > 0 {
		fmt.Println("\nDiary:")
		for _, d := range agg.Diaries.Content {
			fmt.Printf("  %s\n", content.Sanitize(d.Content))
		}
	}
	return nil
}
