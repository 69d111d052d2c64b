package main

import (
	"os"
	"testing"
)

func TestIsStdinPiped(t *testing.T) {
	if isStdinPiped() {
		t.Error("IsStdinPiped() returned true when stdin is not piped")
	}
}

func TestReadStdin(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "empty input",
			input: "",
		},
		{
			name:  "json payload",
			input: `{"headName": "a.go", "hashedPath": "x", "segments": []}`,
		},
		{
			name:  "multiple lines",
			input: "{\n  \"impactedFile\": null\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save original stdin and restore it after the test
			oldStdin := os.Stdin
			defer func() { os.Stdin = oldStdin }()

			r, w, err := os.Pipe()
			if err != nil {
				t.Fatalf("Failed to create pipe: %v", err)
			}
			os.Stdin = r

			go func() {
				defer func() {
					_ = w.Close()
				}()
				if _, err := w.Write([]byte(tt.input)); err != nil {
					t.Errorf("Failed to write to pipe: %v", err)
				}
			}()

			got, err := readStdin()
			if err != nil {
				t.Errorf("readStdin() error = %v", err)
				return
			}
			if string(got) != tt.input {
				t.Errorf("readStdin() = %q, want %q", string(got), tt.input)
			}
		})
	}
}
