package httpds

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
)

func TestSourceOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "a,b\n1,2\n")
	}))
	defer srv.Close()

	src := NewSource(NewClient(Config{}), srv.URL+"/exports/sales.csv")
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "a,b\n1,2\n" {
		t.Fatalf("body=%q", b)
	}
	if src.Name() != "sales" {
		t.Fatalf("Name()=%q; want sales", src.Name())
	}
}

func TestNameFromURL(t *testing.T) {
	t.Parallel()

	hex16 := regexp.MustCompile(`^[0-9a-f]{16}$`)

	cases := []struct {
		in   string
		want string
	}{
		{"https://example.com/data/sales.csv", "sales"},
		{"https://example.com/export?year=2024&fmt=csv", "export_year_2024_fmt_csv"},
		{"https://example.com/?id=7", "id_7"},
		{"https://example.com/my%20file.csv", "my_file"},
	}
	for _, tc := range cases {
		if got := NameFromURL(tc.in); got != tc.want {
			t.Fatalf("NameFromURL(%q)=%q; want %q", tc.in, got, tc.want)
		}
	}

	for _, in := range []string{"https://example.com/", "https://example.com", "::not a url"} {
		if got := NameFromURL(in); !hex16.MatchString(got) {
			t.Fatalf("NameFromURL(%q)=%q; want 16 hex digits", in, got)
		}
	}
	if NameFromURL("https://example.com/") == NameFromURL("https://example.org/") {
		t.Fatalf("hash fallback should differ between URLs")
	}
}
