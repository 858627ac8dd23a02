// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid http", "http://example.com", []string{"http", "https"}, false},
		{"valid https", "https://www.angrymetalguy.com/", []string{"http", "https"}, false},
		{"empty url", "", []string{"http"}, true},
		{"no host", "http://", []string{"http"}, true},
		{"invalid scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"no scheme", "example.com", []string{"http"}, true},
		{"with port", "http://127.0.0.1:8080", []string{"http"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("testURL", tt.value, tt.allowedSchemes)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_RangeAndDuration(t *testing.T) {
	v := New()
	v.Range("Count", 0, 1, 1000)
	v.Range("Count", 20, 1, 1000)
	v.DurationRange("Delay", 2*time.Second, 0, time.Minute)
	v.DurationRange("Delay", 2*time.Hour, 0, time.Minute)

	if got := len(v.Errors()); got != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", got, v.Err())
	}
	if v.Errors()[0].Field != "Count" || v.Errors()[1].Field != "Delay" {
		t.Errorf("unexpected fields: %+v", v.Errors())
	}
}

func TestValidator_OneOf(t *testing.T) {
	v := New()
	v.OneOf("Mode", "radio", []string{"interactive", "radio", "discover"})
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}
	v.OneOf("Mode", "shuffle", []string{"interactive", "radio", "discover"})
	if v.IsValid() {
		t.Fatal("expected error for unknown mode")
	}
}

func TestValidator_Directory(t *testing.T) {
	root := t.TempDir()

	t.Run("creates missing directory", func(t *testing.T) {
		v := New()
		dir := filepath.Join(root, "data", "nested")
		v.Directory("DataDir", dir, false)
		if !v.IsValid() {
			t.Fatalf("unexpected error: %v", v.Err())
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory to be created: %v", err)
		}
	})

	t.Run("must exist", func(t *testing.T) {
		v := New()
		v.Directory("DataDir", filepath.Join(root, "missing"), true)
		if v.IsValid() {
			t.Fatal("expected error for missing directory")
		}
	})

	t.Run("file is not a directory", func(t *testing.T) {
		file := filepath.Join(root, "file.txt")
		if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		v := New()
		v.Directory("DataDir", file, true)
		if v.IsValid() {
			t.Fatal("expected error for regular file")
		}
	})
}

func TestValidationError_Aggregates(t *testing.T) {
	v := New()
	v.NotEmpty("Player", " ")
	v.NonNegative("Retries", -1)

	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %d", len(verr.Errors()))
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("expected joined message, got %q", err.Error())
	}
}
