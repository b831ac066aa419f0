package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"csvtojson/internal/storage"
)

// runCLI invokes run with the given stdin and returns exit code and outputs.
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestRun_StdinToStdout(t *testing.T) {
	cases := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{
			name:  "sorted keys by default",
			stdin: "Name,Age\nAlice,30\n",
			want:  `[{"Age":"30","Name":"Alice"}]` + "\n",
		},
		{
			name:  "header order",
			args:  []string{"-key-order", "header"},
			stdin: "b,a\n1,2\n",
			want:  `[{"b":"1","a":"2"}]` + "\n",
		},
		{
			name:  "semicolon delimiter",
			args:  []string{"-comma", ";"},
			stdin: "a;b\n1;2\n",
			want:  `[{"a":"1","b":"2"}]` + "\n",
		},
		{
			name:  "explicit dash",
			args:  []string{"-"},
			stdin: "x\n<&>\n",
			want:  `[{"x":"<&>"}]` + "\n",
		},
		{
			name:  "header only",
			stdin: "a,b\n",
			want:  "[]\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, tc.stdin, tc.args...)
			if code != exitOK {
				t.Fatalf("exit=%d; want %d (stderr: %s)", code, exitOK, errOut)
			}
			if out != tc.want {
				t.Fatalf("stdout=%q; want %q", out, tc.want)
			}
		})
	}
}

func TestRun_OutDir(t *testing.T) {
	dir := t.TempDir()
	a := writeCSV(t, dir, "a.csv", "id,name\n1,x\n")
	b := writeCSV(t, dir, "b.csv", "id\n2\n3\n")
	outDir := filepath.Join(dir, "out")

	code, out, errOut := runCLI(t, "", "-out-dir", outDir, "-workers", "2", a, b)
	if code != exitOK {
		t.Fatalf("exit=%d; want 0 (stderr: %s)", code, errOut)
	}
	if out != "" {
		t.Fatalf("stdout=%q; want empty with -out-dir", out)
	}

	got := map[string]string{}
	for _, name := range []string{"a.json", "b.json"} {
		body, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		got[name] = string(body)
	}
	want := map[string]string{
		"a.json": `[{"id":"1","name":"x"}]`,
		"b.json": `[{"id":"2"},{"id":"3"}]`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outputs (-want +got):\n%s", diff)
	}
}

func TestRun_OutDirSameBaseName(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	first := writeCSV(t, dir, filepath.Join("a", "x.csv"), "v\nfirst\n")
	second := writeCSV(t, dir, filepath.Join("b", "x.csv"), "v\nsecond\n")
	outDir := filepath.Join(dir, "out")

	code, _, errOut := runCLI(t, "", "-out-dir", outDir, first, second)
	if code != exitOK {
		t.Fatalf("exit=%d; want 0 (stderr: %s)", code, errOut)
	}

	want := map[string]string{
		"x.json":   `[{"v":"first"}]`,
		"x-2.json": `[{"v":"second"}]`,
	}
	got := map[string]string{}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		body, err := os.ReadFile(filepath.Join(outDir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		got[e.Name()] = string(body)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outputs (-want +got):\n%s", diff)
	}
	if !strings.Contains(errOut, "duplicate document name") {
		t.Fatalf("stderr=%q; want a rename warning", errOut)
	}
}

func TestUniqueNames(t *testing.T) {
	docs := []storage.Document{
		{Name: "x", Source: "a/x.csv"},
		{Name: "x", Source: "b/x.csv"},
		{Name: "x-2", Source: "x-2.csv"},
		{Name: "y", Source: "y.csv"},
		{Name: "x", Source: "c/x.csv"},
	}
	renames := uniqueNames(docs)

	var names []string
	for _, d := range docs {
		names = append(names, d.Name)
	}
	if diff := cmp.Diff([]string{"x", "x-3", "x-2", "y", "x-4"}, names); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	want := []rename{
		{source: "b/x.csv", from: "x", to: "x-3"},
		{source: "c/x.csv", from: "x", to: "x-4"},
	}
	if diff := cmp.Diff(want, renames, cmp.AllowUnexported(rename{})); diff != "" {
		t.Fatalf("renames (-want +got):\n%s", diff)
	}
}

func TestRun_ListAndURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("path\n" + r.URL.Path + "\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	local := writeCSV(t, dir, "local.csv", "k\nv\n")
	list := writeCSV(t, dir, "inputs.txt", "# inputs\n"+local+"\n\n"+srv.URL+"/from-list.csv\n")

	code, out, errOut := runCLI(t, "", "-url", srv.URL+"/from-flag.csv", "-list", list)
	if code != exitOK {
		t.Fatalf("exit=%d; want 0 (stderr: %s)", code, errOut)
	}
	want := `[{"path":"/from-flag.csv"}]` + "\n" +
		`[{"k":"v"}]` + "\n" +
		`[{"path":"/from-list.csv"}]` + "\n"
	if out != want {
		t.Fatalf("stdout=%q; want %q", out, want)
	}
}

func TestRun_Failures(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "good.csv", "a\n1\n")
	badUTF8 := writeCSV(t, dir, "bad.csv", "a\n\xff\n")
	badQuote := writeCSV(t, dir, "quote.csv", "a,b\n\"x,2\n")

	cases := []struct {
		name      string
		args      []string
		wantCode  int
		wantInErr string
	}{
		{"invalid utf-8", []string{good, badUTF8}, exitFailure, "UTF-8 encoding error"},
		{"unterminated quote", []string{badQuote}, exitFailure, "CSV processing error"},
		{"missing file", []string{filepath.Join(dir, "nope.csv")}, exitFailure, "nope.csv"},
		{"too large", []string{"-max-bytes", "2", good}, exitFailure, "exceeds size limit"},
		{"unknown flag", []string{"-bogus"}, exitUsage, "bogus"},
		{"stdin twice", []string{"-", "-"}, exitUsage, "only be read once"},
		{"bad key order", []string{"-key-order", "random", good}, exitFailure, "converter.key_order"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, "", tc.args...)
			if code != tc.wantCode {
				t.Fatalf("exit=%d; want %d (stderr: %s)", code, tc.wantCode, errOut)
			}
			if out != "" {
				t.Fatalf("stdout=%q; want nothing on failure", out)
			}
			if !strings.Contains(errOut, tc.wantInErr) {
				t.Fatalf("stderr %q does not contain %q", errOut, tc.wantInErr)
			}
		})
	}
}

func TestRun_Validate(t *testing.T) {
	code, out, errOut := runCLI(t, "", "-validate")
	if code != exitOK || out != "" {
		t.Fatalf("exit=%d stdout=%q; want 0 and no output", code, out)
	}
	if !strings.Contains(errOut, "configuration is valid") {
		t.Fatalf("stderr=%q; want validity message", errOut)
	}

	code, _, errOut = runCLI(t, "", "-validate", "-workers", "0")
	if code != exitFailure {
		t.Fatalf("exit=%d; want %d", code, exitFailure)
	}
	if !strings.Contains(errOut, "error: workers: workers must be >= 1") {
		t.Fatalf("stderr=%q; want workers issue", errOut)
	}
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeCSV(t, dir, "cfg.yaml", "converter:\n  key_order: header\n  comma: \"|\"\n")

	code, out, errOut := runCLI(t, "z|y\n1|2\n", "-config", cfg)
	if code != exitOK {
		t.Fatalf("exit=%d; want 0 (stderr: %s)", code, errOut)
	}
	if want := `[{"z":"1","y":"2"}]` + "\n"; out != want {
		t.Fatalf("stdout=%q; want %q", out, want)
	}

	// Flags override the file.
	code, out, _ = runCLI(t, "z|y\n1|2\n", "-config", cfg, "-key-order", "sorted")
	if code != exitOK {
		t.Fatalf("exit=%d; want 0", code)
	}
	if want := `[{"y":"2","z":"1"}]` + "\n"; out != want {
		t.Fatalf("stdout=%q; want %q", out, want)
	}
}
