package watch

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDeliversChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.yaml")
	writeFile(t, path, counterYAML)

	w, err := New(20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Change, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, changes)
	}()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "name: renamed\ninitial: {count: 0}\nsteps: [{set: {count: 1}}]\n")

	select {
	case c := <-changes:
		if c.Err != nil {
			t.Fatalf("change error = %v", c.Err)
		}
		if c.Scenario.Name != "renamed" {
			t.Errorf("Name = %q, want renamed", c.Scenario.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Run() did not return after cancel")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.yaml")
	writeFile(t, path, counterYAML)

	w, err := New(10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Change, 4)
	go w.Run(ctx, changes)

	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.yaml"), counterYAML)

	select {
	case c := <-changes:
		t.Errorf("unexpected change for %s", c.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherRunReturnsOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.yaml")
	writeFile(t, path, counterYAML)

	w, err := New(50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Add(path); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Change)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, changes)
	}()

	time.Sleep(20 * time.Millisecond)
	writeFile(t, path, "name: pending\ninitial: {count: 0}\nsteps: [{set: {count: 1}}]\n")
	time.Sleep(10 * time.Millisecond)
	w.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() after Close error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Close")
	}

	// the debounce timer armed before Close must not deliver anything
	select {
	case c := <-changes:
		t.Errorf("unexpected change after Close: %s", c.Path)
	case <-time.After(100 * time.Millisecond):
	}
}
