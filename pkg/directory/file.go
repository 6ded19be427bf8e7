package directory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// LoadFile replaces the table with the mappings in a YAML file
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read mappings file: %w", err)
	}

	mappings, err := ParseMappings(data)
	if err != nil {
		return err
	}
	if err := t.ReplaceAll(mappings); err != nil {
		return err
	}

	t.logger.WithFields(map[string]interface{}{
		"path":     path,
		"mappings": len(mappings),
	}).Info("Loaded department mappings")
	return nil
}

// SaveFile writes the table to a YAML file, replacing it atomically
func (t *Table) SaveFile(path string) error {
	data, err := MarshalMappings(t.Mappings())
	if err != nil {
		return fmt.Errorf("failed to encode mappings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write mappings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write mappings: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace mappings file: %w", err)
	}
	return nil
}

// Reload re-reads the file at path and records the outcome. A reload that
// fails keeps the previous table.
func (t *Table) Reload(path string) error {
	err := t.LoadFile(path)
	t.metrics.RecordDirectoryReload(err)
	if err != nil {
		t.logger.WithError(err).Error("Failed to reload department mappings")
	}
	return err
}

// Watch reloads the table whenever the file at path is written or
// replaced. It blocks until ctx is cancelled. A reload that fails keeps the
// previous table.
func (t *Table) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				// Renamed away; wait for the replacement to appear
				continue
			}

			_ = t.Reload(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.WithError(err).Warn("Mappings watcher error")
		}
	}
}
