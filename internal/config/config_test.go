package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/multimediallc/covdiff/pkg/impacted"
	"github.com/rs/zerolog"
)

func TestReadConfig(t *testing.T) {
	tt := []struct {
		name          string
		configContent string
		path          string
		expected      *Config
		expectedErr   bool
	}{
		{
			name: "default config when no file exists",
			path: "nonexistent/",
			expected: &Config{
				Ignore:         []string{},
				CriticalFiles:  []string{},
				IgnoredUploads: []int{},
				ContextLines:   intPtr(3),
				Capabilities:   &impacted.Capabilities{LineCoverage: true},
				Cache:          &Cache{MaxEntries: impacted.DefaultMaxEntries},
			},
		},
		{
			name: "valid config with all fields",
			configContent: `
ignore = ["vendor/"]
critical_files = ["pkg/**/*.go", "main.go"]
ignored_uploads = [4, 7]
context_lines = 5
[capabilities]
line_coverage = true
bundle_analysis = true
[cache]
max_entries = 8
`,
			path: "testdata/",
			expected: &Config{
				Ignore:         []string{"vendor/"},
				CriticalFiles:  []string{"pkg/**/*.go", "main.go"},
				IgnoredUploads: []int{4, 7},
				ContextLines:   intPtr(5),
				Capabilities:   &impacted.Capabilities{LineCoverage: true, BundleAnalysis: true},
				Cache:          &Cache{MaxEntries: 8},
			},
		},
		{
			name: "partial config with defaults",
			configContent: `
ignored_uploads = [1]
`,
			path: "testdata/",
			expected: &Config{
				Ignore:         []string{},
				CriticalFiles:  []string{},
				IgnoredUploads: []int{1},
				ContextLines:   intPtr(3),
				Capabilities:   &impacted.Capabilities{LineCoverage: true},
				Cache:          &Cache{MaxEntries: impacted.DefaultMaxEntries},
			},
		},
		{
			name: "negative context lines falls back",
			configContent: `
context_lines = -2
`,
			path: "testdata/",
			expected: &Config{
				Ignore:         []string{},
				CriticalFiles:  []string{},
				IgnoredUploads: []int{},
				ContextLines:   intPtr(3),
				Capabilities:   &impacted.Capabilities{LineCoverage: true},
				Cache:          &Cache{MaxEntries: impacted.DefaultMaxEntries},
			},
		},
		{
			name: "invalid toml",
			configContent: `
ignored_uploads = invalid
`,
			path:        "testdata/",
			expectedErr: true,
		},
		{
			name: "invalid critical pattern",
			configContent: `
critical_files = ["src/[a-"]
`,
			path:        "testdata/",
			expectedErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			testDir := t.TempDir()
			configPath := filepath.Join(testDir, tc.path)

			if tc.configContent != "" {
				err := os.MkdirAll(configPath, 0755)
				if err != nil {
					t.Fatalf("failed to create test directory: %v", err)
				}
				err = os.WriteFile(filepath.Join(configPath, FileName), []byte(tc.configContent), 0644)
				if err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}
			}

			got, err := ReadConfig(configPath, nil)
			if tc.expectedErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				if got == nil {
					t.Error("defaults should be returned alongside an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !slices.Equal(got.Ignore, tc.expected.Ignore) {
				t.Errorf("Ignore: expected %v, got %v", tc.expected.Ignore, got.Ignore)
			}
			if !slices.Equal(got.CriticalFiles, tc.expected.CriticalFiles) {
				t.Errorf("CriticalFiles: expected %v, got %v", tc.expected.CriticalFiles, got.CriticalFiles)
			}
			if !slices.Equal(got.IgnoredUploads, tc.expected.IgnoredUploads) {
				t.Errorf("IgnoredUploads: expected %v, got %v", tc.expected.IgnoredUploads, got.IgnoredUploads)
			}
			if *got.ContextLines != *tc.expected.ContextLines {
				t.Errorf("ContextLines: expected %d, got %d", *tc.expected.ContextLines, *got.ContextLines)
			}
			if *got.Capabilities != *tc.expected.Capabilities {
				t.Errorf("Capabilities: expected %+v, got %+v", *tc.expected.Capabilities, *got.Capabilities)
			}
			if got.Cache.MaxEntries != tc.expected.Cache.MaxEntries {
				t.Errorf("Cache.MaxEntries: expected %d, got %d", tc.expected.Cache.MaxEntries, got.Cache.MaxEntries)
			}
		})
	}
}

type mockConfigFileReader struct {
	files map[string]string
}

func (m *mockConfigFileReader) ReadFile(path string) ([]byte, error) {
	return []byte(m.files[path]), nil
}

func (m *mockConfigFileReader) PathExists(path string) bool {
	_, ok := m.files[path]
	return ok
}

func TestReadConfigFromReader(t *testing.T) {
	reader := &mockConfigFileReader{
		files: map[string]string{
			filepath.Join("repo", FileName): `
critical_files = ["api/**"]
`,
		},
	}
	conf, err := ReadConfig("repo", reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(conf.CriticalFiles, []string{"api/**"}) {
		t.Errorf("expected critical files from reader, got %v", conf.CriticalFiles)
	}
}

func TestIsCritical(t *testing.T) {
	conf := &Config{CriticalFiles: []string{"pkg/**/*.go", "main.go"}}
	tt := []struct {
		path     string
		expected bool
	}{
		{"pkg/impacted/memo.go", true},
		{"pkg/a.go", true},
		{"main.go", true},
		{"cmd/main.go", false},
		{"pkg/readme.md", false},
	}

	for _, tc := range tt {
		if got := conf.IsCritical(tc.path, zerolog.Nop()); got != tc.expected {
			t.Errorf("%s: expected %t, got %t", tc.path, tc.expected, got)
		}
	}
}

func TestIsIgnoredPath(t *testing.T) {
	conf := &Config{Ignore: []string{"vendor/", "gen"}}
	if !conf.IsIgnoredPath("vendor/x.go") || !conf.IsIgnoredPath("generated.go") {
		t.Error("expected prefixes to be ignored")
	}
	if conf.IsIgnoredPath("src/vendor/x.go") {
		t.Error("only prefixes should match")
	}
}

func TestIgnoredSet(t *testing.T) {
	conf := &Config{IgnoredUploads: []int{1, 2}}
	s := conf.IgnoredSet(2, 5)
	if s.Len() != 3 || !s.Contains(5) || !s.Contains(1) {
		t.Errorf("unexpected set %v", s.Items())
	}
	if len(conf.IgnoredUploads) != 2 {
		t.Error("IgnoredSet must not modify the config")
	}
}

func intPtr(i int) *int {
	return &i
}
