package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// resetViper clears global viper state and restores the --config binding.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	t.Cleanup(viper.Reset)
}

// setupConfig points homeclock at a temporary config file.
func setupConfig(t *testing.T, content string) string {
	t.Helper()
	resetViper(t)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "homeclock"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "homeclock", "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const testRegistry = `providers:
  - package: com.example.clock.a
    provider_id: clock-a
    content: 24h
  - package: com.example.clock.b
    provider_id: clock-b
`

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "homeclock" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "homeclock")
	}

	expected := []string{"config", "providers", "simulate"}
	cmdMap := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		cmdMap[c.Name()] = true
	}
	for _, name := range expected {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestConfigShow(t *testing.T) {
	path := setupConfig(t, "clock:\n  retry_count: 7\n")

	out, err := executeCommand(rootCmd, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	for _, want := range []string{"Config file: " + path, "retry_count: 7", "refresh_count: 5", `pattern: "*"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid", content: "clock:\n  refresh_count: 3\n"},
		{name: "negative retry", content: "clock:\n  retry_count: -1\n", wantErr: true},
		{name: "unknown family", content: "provider:\n  families:\n    - {pattern: \"*\", family: analog}\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := setupConfig(t, tt.content)
			out, err := executeCommand(rootCmd, "--config", path, "config", "validate")
			if (err != nil) != tt.wantErr {
				t.Fatalf("config validate error = %v, wantErr %v\n%s", err, tt.wantErr, out)
			}
			if !tt.wantErr && !strings.Contains(out, "Configuration is valid") {
				t.Errorf("output = %q", out)
			}
		})
	}
}

func TestConfigInit(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	want := filepath.Join(dir, "homeclock", "config.yaml")

	if _, err := executeCommand(rootCmd, "--config", "", "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "refresh_count: 5") {
		t.Error("default config should list refresh_count")
	}

	if _, err := executeCommand(rootCmd, "--config", "", "config", "init"); err == nil {
		t.Error("config init should refuse to overwrite")
	}
}

func TestProviders(t *testing.T) {
	path := setupConfig(t, "")
	registry := writeFile(t, "providers.yaml", testRegistry)

	out, err := executeCommand(rootCmd, "--config", path, "providers", "--registry", registry)
	if err != nil {
		t.Fatalf("providers error = %v", err)
	}
	if !strings.Contains(out, "com.example.clock.a") || !strings.Contains(out, "clock-b") {
		t.Errorf("providers output:\n%s", out)
	}

	out, err = executeCommand(rootCmd, "--config", path, "providers", "--registry", registry,
		"com.example.clock.a", "com.example.missing")
	if err != nil {
		t.Fatalf("providers resolve error = %v", err)
	}
	if !strings.Contains(out, "com.example.clock.a: provider clock-a, family dbox") {
		t.Errorf("resolve output:\n%s", out)
	}
	if !strings.Contains(out, "com.example.missing: not registered") {
		t.Errorf("missing package output:\n%s", out)
	}
}

func TestSimulate(t *testing.T) {
	registry := writeFile(t, "providers.yaml", testRegistry)
	path := setupConfig(t, "provider:\n  registry_file: "+registry+"\nlogging:\n  level: error\n")
	scenario := writeFile(t, "scenario.yaml", `name: switch
settle_ms: 1000
steps:
  - action: request
    package: com.example.clock.a
  - after_ms: 1000
    action: request
    package: com.example.clock.b
`)

	out, err := executeCommand(rootCmd, "--config", path, "simulate", scenario)
	if err != nil {
		t.Fatalf("simulate error = %v\n%s", err, out)
	}
	for _, want := range []string{"clock.attached", "com.example.clock.b(dbox/embedded)", "replaced"} {
		if !strings.Contains(out, want) {
			t.Errorf("simulate output missing %q:\n%s", want, out)
		}
	}
}

func TestSimulate_BadScenario(t *testing.T) {
	path := setupConfig(t, "")
	scenario := writeFile(t, "scenario.yaml", "steps: []\n")
	if _, err := executeCommand(rootCmd, "--config", path, "simulate", scenario); err == nil {
		t.Error("simulate with an empty scenario should fail")
	}
}

func TestSimulate_WatchNeedsTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		t.Skip("stdout is a terminal")
	}
	path := setupConfig(t, "")
	scenario := writeFile(t, "scenario.yaml", "steps:\n  - action: boot\n")
	t.Cleanup(func() { _ = simulateCmd.Flags().Set("watch", "false") })

	_, err := executeCommand(rootCmd, "--config", path, "simulate", "--watch", scenario)
	if err == nil || !strings.Contains(err.Error(), "interactive terminal") {
		t.Errorf("simulate --watch error = %v, want terminal error", err)
	}
}
