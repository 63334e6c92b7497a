package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@host:5432/billing?sslmode=disable", "postgres://u:p@host:5432/billing?sslmode=disable"},
		{"  \"postgres://u:p@host/billing\"  ", "postgres://u:p@host/billing"},
		{"host=localhost user=u dbname=billing", "host=localhost user=u dbname=billing sslmode=disable"},
		{"host=localhost   user=u  sslmode=require", "host=localhost user=u sslmode=require"},
		{"file:billing.db", "file:billing.db"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeDSN(tc.in); got != tc.want {
			t.Fatalf("NormalizeDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsSQLiteDSN(t *testing.T) {
	for _, dsn := range []string{"sqlite://billing.db", "file:test?mode=memory", "local.db", ":memory:"} {
		if !IsSQLiteDSN(dsn) {
			t.Fatalf("expected sqlite DSN: %q", dsn)
		}
	}
	for _, dsn := range []string{"postgres://host/db", "host=localhost dbname=billing"} {
		if IsSQLiteDSN(dsn) {
			t.Fatalf("unexpected sqlite DSN: %q", dsn)
		}
	}
}
