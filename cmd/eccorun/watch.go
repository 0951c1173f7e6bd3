package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchLedger calls render after writes under dir, at most once per debounce
// interval, until ctx is cancelled.
func watchLedger(ctx context.Context, dir string, debounce time.Duration, render func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch ledger: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch ledger %s: %w", dir, err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantLedgerEvent(event) {
				continue
			}
			if pending == nil {
				timer = time.NewTimer(debounce)
				pending = timer.C
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch ledger: %w", err)
		case <-pending:
			pending = nil
			timer = nil
			if err := render(); err != nil {
				return err
			}
		}
	}
}

func relevantLedgerEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name := event.Name
	return strings.HasSuffix(name, ".completed.txt") ||
		strings.HasSuffix(name, ".failed.txt") ||
		strings.HasSuffix(name, ".lock") ||
		strings.HasSuffix(name, ".db-wal") ||
		strings.HasSuffix(name, ".db")
}
