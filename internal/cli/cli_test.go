package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/recipegraph/pkg/cache"
	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/recipe"
)

const rawRecipes = `A,"1- B"
B,"1- C"
C,"1- A,1- D"
D,"1- E"
E,"1- F"
F,"1- D"
Motor,"1- Rotor,1- Stator"
Generator,"2- Rotor,2- Stator"
Broken,"two- Things"
`

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

// workspace writes a config that keeps every path and the cache inside a
// temp directory and returns that directory and the config path.
func workspace(t *testing.T, cacheBackend string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`[data]
dir = %[1]q
processed_dir = %[2]q
output_dir = %[3]q

[log]
severities = ["error"]

[cache]
backend = %[4]q
dir = %[5]q
`,
		filepath.ToSlash(dir),
		filepath.ToSlash(filepath.Join(dir, "processed")),
		filepath.ToSlash(filepath.Join(dir, "graphs")),
		cacheBackend,
		filepath.ToSlash(filepath.Join(dir, "cache")))
	path := filepath.Join(dir, "recipegraph.toml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

// runCLI executes one command line the way main does.
func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	out := captureStdout(t)
	quietSpinner(t)

	var logs bytes.Buffer
	c := New(&logs, LogInfo)
	defer c.Close()
	root := c.RootCommand()
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.LoadConfig(false)
	}
	root.SetArgs(append([]string{"--config", configPath}, args...))
	root.SetOut(out)
	root.SetErr(&logs)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "dot", []string{"dot"}},
		{"multiple formats", "svg,dot,json", []string{"svg", "dot", "json"}},
		{"spaces and empties", " dot, ,json ", []string{"dot", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, def, want string
	}{
		{"", "graphs/communities_modularity", "graphs/communities_modularity"},
		{"out.svg", "x", "out"},
		{"out.dot", "x", "out"},
		{"out.png", "x", "out.png"},
		{"out", "x", "out"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.def); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.def, got, tt.want)
		}
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", custom)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(custom, appName); dir != want {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, want)
	}
}

func TestSummarize(t *testing.T) {
	g := graph.New()
	motor, _ := g.Upsert("Motor", graph.RoleProduct)
	rotor, _ := g.Upsert("Rotor", graph.RoleIngredient)
	wire, _ := g.Upsert("Wire", graph.RoleIngredient)
	cable, _ := g.Upsert("Cable", graph.RoleProduct)
	g.Upsert("Lonely", graph.RoleIngredient)
	g.SetCommunity(motor, 1)
	g.SetCommunity(rotor, 1)
	g.SetCommunity(wire, 1)
	g.SetCommunity(cable, 0)

	sums := summarize(g)
	if len(sums) != 2 {
		t.Fatalf("summaries = %d, want 2", len(sums))
	}
	if sums[0].Label != 1 || sums[0].Size() != 3 {
		t.Errorf("largest community first, got %+v", sums[0])
	}
	if got := strings.Join(sums[0].Members(), ","); got != "Motor,Rotor,Wire" {
		t.Errorf("Members() = %s", got)
	}
	if sums[1].Label != 0 || len(sums[1].Products) != 1 {
		t.Errorf("second summary = %+v", sums[1])
	}
}

func TestTruncateList(t *testing.T) {
	if got := truncateList([]string{"a", "b"}, 3); got != "a, b" {
		t.Errorf("got %q", got)
	}
	if got := truncateList([]string{"a", "b", "c", "d"}, 2); got != "a, b, … (+2)" {
		t.Errorf("got %q", got)
	}
}

func TestWorkflow(t *testing.T) {
	dir, cfg := workspace(t, "none")
	raw := filepath.Join(dir, "recipes.txt")
	if err := os.WriteFile(raw, []byte(rawRecipes), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, cfg, "transform", raw)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	processed := filepath.Join(dir, "processed", "recipes.json")
	records, _, err := recipe.ReadFile(processed)
	if err != nil {
		t.Fatalf("read transformed records: %v", err)
	}
	if len(records) != 8 {
		t.Errorf("transformed %d records, want 8", len(records))
	}
	if !strings.Contains(out, "Skipped 1 malformed line") {
		t.Errorf("transform output = %q", out)
	}

	// No arguments: every record file in the processed directory.
	if _, err := runCLI(t, cfg, "build"); err != nil {
		t.Fatalf("build: %v", err)
	}
	g, err := graph.ReadFile(filepath.Join(dir, "graphs", "graph.json"))
	if err != nil {
		t.Fatalf("read graph: %v", err)
	}
	if g.NodeCount() != 10 || g.EdgeCount() != 11 {
		t.Errorf("graph = %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}

	out, err = runCLI(t, cfg, "communities", "--merges")
	if err != nil {
		t.Fatalf("communities: %v", err)
	}
	labeled, err := graph.ReadFile(filepath.Join(dir, "graphs", "communities_modularity.json"))
	if err != nil {
		t.Fatalf("read labeled graph: %v", err)
	}
	labels := labeled.Labels()
	if labels["A"] != labels["C"] || labels["A"] == labels["E"] || labels["Motor"] != labels["Rotor"] {
		t.Errorf("labels = %v", labels)
	}
	if !strings.Contains(out, "Merges") || !strings.Contains(out, "modularity") {
		t.Errorf("communities output = %q", out)
	}

	if _, err := runCLI(t, cfg, "common", processed); err != nil {
		t.Fatalf("common: %v", err)
	}
	for _, name := range []string{"common_ingredients.json", "common_2.json"} {
		if _, err := os.Stat(filepath.Join(dir, "graphs", name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	base := filepath.Join(dir, "out", "graph")
	if _, err := runCLI(t, cfg, "render", "-f", "dot,json", "-o", base+".dot", "--detailed"); err != nil {
		t.Fatalf("render: %v", err)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dot), "digraph") {
		t.Errorf("dot output = %q", dot)
	}
	if _, err := graph.ReadFile(base + ".json"); err != nil {
		t.Errorf("json artifact: %v", err)
	}
}

func TestCommandErrors(t *testing.T) {
	dir, cfg := workspace(t, "none")
	in := filepath.Join(dir, "recipes.json")
	if err := recipe.WriteFile(in, []recipe.Record{{Product: "Iron Ore"}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		code rgerrors.Code
	}{
		{"bad method", []string{"communities", "-m", "louvain", in}, rgerrors.ErrCodeInvalidMethod},
		{"bad format", []string{"render", "-f", "pdf", in}, rgerrors.ErrCodeInvalidFormat},
		{"mongo with files", []string{"build", "--mongo", in}, rgerrors.ErrCodeInvalidInput},
		{"no inputs found", []string{"build"}, rgerrors.ErrCodeInvalidInput},
		{"edgeless graph", []string{"communities", in}, rgerrors.ErrCodeEmptyGraph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, cfg, tt.args...)
			if !rgerrors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestCacheCommands(t *testing.T) {
	dir, cfg := workspace(t, "file")
	cacheRoot := filepath.Join(dir, "cache")

	out, err := runCLI(t, cfg, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(out) != cacheRoot {
		t.Errorf("cache path = %q, want %q", out, cacheRoot)
	}

	fc, err := cache.NewFileCache(cacheRoot)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"a", "b"} {
		if err := fc.Set(context.Background(), key, []byte("x"), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	out, err = runCLI(t, cfg, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 2 cached entries") {
		t.Errorf("cache clear output = %q", out)
	}
}

func TestCompletion(t *testing.T) {
	_, cfg := workspace(t, "none")
	out, err := runCLI(t, cfg, "completion", "bash")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if !strings.Contains(out, "recipegraph") {
		t.Error("bash script does not mention the binary")
	}

	if _, err := runCLI(t, cfg, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestFixedCompletions(t *testing.T) {
	values, directive := fixedCompletions("LR", "TB")(nil, nil, "")
	if strings.Join(values, ",") != "LR,TB" {
		t.Errorf("values = %v", values)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v", directive)
	}
}
