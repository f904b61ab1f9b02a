package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Path", KeyPath, "posts/a.md", Path("posts/a.md")},
		{"Route", KeyRoute, "/posts/a/", Route("/posts/a/")},
		{"Template", KeyTemplate, "default", Template("default")},
		{"Stage", KeyStage, "render", Stage("render")},
		{"Addr", KeyAddr, "localhost:8080", Addr("localhost:8080")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"URL", KeyURL, "https://example.com/site", URL("https://example.com/site")},
		{"Name", KeyName, "blog", Name("blog")},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, tc.attr.Value.String())
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Pages(3); a.Key != KeyPages || a.Value.Int64() != 3 {
		t.Fatalf("Pages: got %v", a)
	}
	if a := Seq(9); a.Key != KeySeq || a.Value.Uint64() != 9 {
		t.Fatalf("Seq: got %v", a)
	}
	if a := Clients(2); a.Key != KeyClients || a.Value.Int64() != 2 {
		t.Fatalf("Clients: got %v", a)
	}
}
