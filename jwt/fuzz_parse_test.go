package jwt

import (
	"testing"
	"time"
)

func fuzzManager(f *testing.F) *Manager {
	f.Helper()
	m, err := NewManager(Config{
		AccessSecret:  []byte("carnet-fuzz-a"),
		RefreshSecret: []byte("carnet-fuzz-r"),
		AccessTTL:     time.Minute,
		RefreshTTL:    10 * time.Minute,
		Issuer:        "carnet",
	})
	if err != nil {
		f.Fatal(err)
	}
	return m
}

// FuzzParseKinds feeds arbitrary strings to both parsers. A refresh token must
// never pass as an access token and the reverse.
func FuzzParseKinds(f *testing.F) {
	m := fuzzManager(f)

	access, _, err := m.IssueAccess("7", "ana@cuc.cr", "estudiante")
	if err != nil {
		f.Fatal(err)
	}
	refresh, _, err := m.IssueRefresh("7", "ana@cuc.cr", "estudiante")
	if err != nil {
		f.Fatal(err)
	}
	for _, seed := range []string{access, refresh, "", "a.b.c", "..", access + "x", "Bearer " + access} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		if c, err := m.ParseAccess(raw); err == nil {
			if c == nil || c.Kind != KindAccess {
				t.Fatalf("access parser returned %+v", c)
			}
		}
		if c, err := m.ParseRefresh(raw); err == nil {
			if c == nil || c.Kind != KindRefresh {
				t.Fatalf("refresh parser returned %+v", c)
			}
		}
		// must not panic
		_, _ = m.DecodeUnverified(raw)
	})
}
