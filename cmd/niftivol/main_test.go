package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// TestGenerateCopyCompare drives the CLI through a generate, copy and compare cycle
func TestGenerateCopyCompare(t *testing.T) {
	dir := t.TempDir()

	if _, err := runCommand(t, "generate", "--output", dir, "--size", "3", "--kind", "int16"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	input := filepath.Join(dir, "int16.nii")
	output := filepath.Join(dir, "copy.nii")

	if _, err := runCommand(t, "copy", input, output); err != nil {
		t.Fatalf("copy failed: %v", err)
	}

	out, err := runCommand(t, "compare", input, output)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if strings.Count(out, "Data type: INT16") != 2 {
		t.Errorf("Expected both datatypes in compare output:\n%s", out)
	}
	if !strings.Contains(out, "The voxel data are identical.") {
		t.Errorf("Expected identical voxel data, got output:\n%s", out)
	}

	out, err = runCommand(t, "info", input)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{"Datatype: 4 (INT16)", "Dimensions: 3 x 3 x 3", "Voxel Count: 27"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in info output:\n%s", want, out)
		}
	}
}

// TestCompareDifferent checks differing volumes give a non-nil error
func TestCompareDifferent(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	if _, err := runCommand(t, "generate", "--output", dirA, "--size", "2", "--kind", "gray8", "--seed", "1"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := runCommand(t, "generate", "--output", dirB, "--size", "2", "--kind", "gray8", "--seed", "2"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	out, err := runCommand(t, "compare", filepath.Join(dirA, "gray8.nii"), filepath.Join(dirB, "gray8.nii"))
	if err == nil {
		t.Error("Expected error for differing volumes")
	}
	if !strings.Contains(out, "The voxel data differ.") {
		t.Errorf("Expected differ message, got:\n%s", out)
	}
}

// TestConfigInit writes a default config that loads back
func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "niftivol.yaml")
	if _, err := runCommand(t, "config", "init", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "extensions:") {
		t.Errorf("Expected batch extensions in written config:\n%s", data)
	}
}

// TestInvalidLogLevel checks the persistent pre-run rejects unknown levels
func TestInvalidLogLevel(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "loud", "info", "x.nii"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for invalid log level")
	}
}
