package buildinfo

import "testing"

func TestInfoString(t *testing.T) {
	cases := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "v0.3.0", Commit: "abcdef"}, "v0.3.0 (abcdef)"},
		{Info{Version: "v0.3.0", Commit: "abcdef", Date: "2026-10-01"}, "v0.3.0 (abcdef) 2026-10-01"},
	}
	for _, c := range cases {
		if got := c.info.String(); got != c.want {
			t.Fatalf("String(): want %q, got %q", c.want, got)
		}
	}
}
