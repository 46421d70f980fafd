package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunDispatch(t *testing.T) {
	ctx := context.Background()

	if err := run(ctx, nil); err == nil || !strings.Contains(err.Error(), "missing command") {
		t.Fatalf("expected missing-command error, got %v", err)
	}
	if err := run(ctx, []string{"bogus"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown-command error, got %v", err)
	}
}

func TestRunCommandValidation(t *testing.T) {
	ctx := context.Background()

	if err := run(ctx, []string{"run", "-sim", "sim.sh"}); err == nil || !strings.Contains(err.Error(), "-config") {
		t.Fatalf("expected missing -config error, got %v", err)
	}
	if err := run(ctx, []string{"run", "-config", "run.hcl"}); err == nil || !strings.Contains(err.Error(), "-sim") {
		t.Fatalf("expected missing -sim error, got %v", err)
	}
}

func TestRunsEmptyIndex(t *testing.T) {
	artifacts := filepath.Join(t.TempDir(), "artifacts")
	if err := run(context.Background(), []string{"runs", "-artifacts", artifacts}); err != nil {
		t.Fatalf("runs on empty index: %v", err)
	}
}

func TestExportRequiresSelector(t *testing.T) {
	artifacts := filepath.Join(t.TempDir(), "artifacts")
	err := run(context.Background(), []string{"export", "-artifacts", artifacts})
	if err == nil || !strings.Contains(err.Error(), "run id or latest") {
		t.Fatalf("expected selector error, got %v", err)
	}
}

func TestInitAndReset(t *testing.T) {
	ctx := context.Background()
	if err := run(ctx, []string{"init", "-store", "memory"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := run(ctx, []string{"reset", "-store", "memory"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
}
