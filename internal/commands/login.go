package commands

import (
	"context"
	"fmt"

	"homefit/internal/api"
	"homefit/internal/config"
	"homefit/internal/storage"
)

// Login exchanges an OAuth authorization code for a bearer token and seals
// it into the local cache. The code comes from the provider's redirect URL.
func Login(ctx context.Context, code string, cfg *config.Config) error {
	store, err := storage.NewStore(cfg.CacheFile, cfg.CacheSecret)
	if err != nil {
		return fmt.Errorf("failed to open local cache: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	client := api.New(cfg.APIBaseURL, store)

	token, err := client.Login(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := store.SaveToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	client = api.New(cfg.APIBaseURL, store)
	profile, err := client.Profile(ctx)
	if err != nil {
		return fmt.Errorf("token saved but profile fetch failed: %w", err)
	}
	if err := store.SaveProfile(profile); err != nil {
		return fmt.Errorf("failed to cache profile: %w", err)
	}

	fmt.Printf("\nLogged in as %s\n", profile.Nickname)
	return nil
}

// Logout drops the sealed token from the local cache.
func Logout(cfg *config.Config) error {
	store, err := storage.NewStore(cfg.CacheFile, cfg.CacheSecret)
	if err != nil {
		return fmt.Errorf("failed to open local cache: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	if err := store.ClearToken(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	fmt.Println("Logged out.")
	return nil
}
