package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/reclink-cli/internal/linkage"
)

var registerInit sync.Once

// resetFlags restores every flag to its default so values do not leak between runs.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command with args and returns what it wrote to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	registerInit.Do(func() { cobra.OnInitialize(loadConfig) })
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir and returns it.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const peopleCSV = `id,name,zip
1,Martha Smith,02134
2,Martha Smyth,02134
3,John Doe,90210
`

func TestCLI_MatchFlags(t *testing.T) {
	home := isolate(t)
	people := writeFile(t, home, "people.csv", peopleCSV)
	unmatched := filepath.Join(home, "out", "unmatched.csv")
	summary := filepath.Join(home, "out", "summary.md")

	out := mustRun(t, "match", people,
		"--exact", "zip", "--fuzzy", "name", "--thresh", "0.85",
		"--agg", "all=id", "--agg-default", "first",
		"--unmatched-out", unmatched, "--summary", summary)

	want := "id,name,zip\n[1;2],Martha Smith,02134\n"
	if out != want {
		t.Fatalf("matched output = %q, want %q", out, want)
	}
	b, err := os.ReadFile(unmatched)
	if err != nil {
		t.Fatalf("read unmatched: %v", err)
	}
	if string(b) != "id,name,zip\n3,John Doe,90210\n" {
		t.Fatalf("unmatched output = %q", string(b))
	}
	md, err := os.ReadFile(summary)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.Contains(string(md), "[MATCH SUMMARY]") || !strings.Contains(string(md), "Unmatched: 1") {
		t.Fatalf("unexpected summary:\n%s", md)
	}
}

func TestCLI_MatchSpecFile(t *testing.T) {
	home := isolate(t)
	people := writeFile(t, home, "people.csv", peopleCSV)
	spec := writeFile(t, home, "spec.yaml", `exact: [zip]
fuzzy: [name]
str_thresh: 0.85
agg:
  all: [id]
agg_default: first
`)
	out := mustRun(t, "match", people, "--spec", spec)
	if out != "id,name,zip\n[1;2],Martha Smith,02134\n" {
		t.Fatalf("matched output = %q", out)
	}

	// A threshold flag overrides the spec file.
	out = mustRun(t, "match", people, "--spec", spec, "--thresh", "0.99")
	if out != "id,name,zip\n" {
		t.Fatalf("expected no groups with --thresh 0.99, got %q", out)
	}
}

func TestCLI_MatchUnknownColumn(t *testing.T) {
	home := isolate(t)
	people := writeFile(t, home, "people.csv", peopleCSV)
	_, err := runCLI(t, "match", people, "--exact", "postcode")
	if err == nil {
		t.Fatalf("expected error for unknown column")
	}
	if !errors.Is(err, linkage.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCLI_Dedup(t *testing.T) {
	home := isolate(t)
	people := writeFile(t, home, "people.csv", peopleCSV)
	out := mustRun(t, "dedup", people, "--id", "id", "--exact", "zip", "--fuzzy", "name", "--thresh", "0.85")
	want := "id,duplicates\n1,1;2\n2,1;2\n3,3\n"
	if out != want {
		t.Fatalf("dedup output = %q, want %q", out, want)
	}
}

func TestCLI_Link(t *testing.T) {
	home := isolate(t)
	toMatch := writeFile(t, home, "tomatch.csv", "id,name,zip\n1,Martha Smith,02134\n2,John Doe,90210\n3,Nobody,11111\n")
	comparison := writeFile(t, home, "comparison.csv", "ref,full_name,zip\nr1,Martha Smith,02134\nr2,Marta Smith,02134\nr3,John Doe,90210\n")

	out := mustRun(t, "link", toMatch, comparison,
		"--id", "id,ref", "--colmap", "name=full_name",
		"--exact", "zip", "--fuzzy", "full_name", "--thresh", "0.85")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 || lines[0] != "id,matches,scores" {
		t.Fatalf("unexpected link output:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "1,r1;r2,1.0000;") {
		t.Fatalf("row 1 = %q", lines[1])
	}
	if lines[2] != "2,r3,1.0000" || lines[3] != "3,," {
		t.Fatalf("rows 2-3 = %q, %q", lines[2], lines[3])
	}

	out = mustRun(t, "link", toMatch, comparison,
		"--id", "id,ref", "--colmap", "name=full_name",
		"--exact", "zip", "--fuzzy", "full_name", "--thresh", "0.85", "--max-matches", "1")
	if !strings.Contains(out, "\n1,r1,1.0000\n") {
		t.Fatalf("expected a single candidate with --max-matches 1:\n%s", out)
	}
}

func TestCLI_Closest(t *testing.T) {
	home := isolate(t)
	src := writeFile(t, home, "source.csv", "id,lat,lon\ns1,32.84,-117.27\n")
	ref := writeFile(t, home, "ref.csv", "id,lat,lon\nfar,40.0,-100.0\nnear,32.85,-117.27\n")

	out := mustRun(t, "closest", src, ref, "--id", "id", "-n", "1", "--json")
	var got []neighborsJSON
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].ID != "s1" || len(got[0].Matches) != 1 || got[0].Matches[0] != "near" {
		t.Fatalf("unexpected ranking: %+v", got)
	}
	if d := got[0].Distances[0]; d < 1.0 || d > 1.2 {
		t.Fatalf("distance %.4f km out of range", d)
	}

	out = mustRun(t, "closest", src, ref, "--id", "id", "-n", "2")
	if !strings.Contains(out, "s1,near;far,") {
		t.Fatalf("unexpected csv ranking:\n%s", out)
	}
}

func TestCLI_InitAndConfig(t *testing.T) {
	home := isolate(t)
	spec := filepath.Join(home, "reclink.yaml")
	mustRun(t, "init", spec)
	if _, err := os.Stat(spec); err != nil {
		t.Fatalf("spec not written: %v", err)
	}
	if _, err := runCLI(t, "init", spec); err == nil {
		t.Fatalf("expected init to refuse overwriting")
	}
	mustRun(t, "init", spec, "--force")

	mustRun(t, "config", "set", "workers", "4")
	mustRun(t, "config", "set", "distance_metric", "Euclidean")
	if _, err := runCLI(t, "config", "set", "str_thresh", "1.5"); err == nil {
		t.Fatalf("expected error for str_thresh out of range")
	}
	if _, err := runCLI(t, "config", "set", "default_agg", "median"); err == nil {
		t.Fatalf("expected error for unknown aggregation")
	}
	if _, err := os.Stat(filepath.Join(home, ".reclink", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := mustRun(t, "config", "show")
	if !strings.Contains(out, "workers: 4") || !strings.Contains(out, "distance_metric: euclidean") {
		t.Fatalf("unexpected config show:\n%s", out)
	}
}
