package auth

import (
	"testing"
	"time"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	pair, err := Issue(42, RoleTeacher, "smart-attendance", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := Parse(pair.AccessToken, "test-key", "smart-attendance")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID() != 42 {
		t.Fatalf("user id = %d, expected 42", claims.UserID())
	}
	if claims.Role != RoleTeacher {
		t.Fatalf("role = %s, expected teacher", claims.Role)
	}
	ident := claims.Identity()
	if ident.UserID != 42 || ident.Role != RoleTeacher {
		t.Fatalf("identity = %+v", ident)
	}
}

func TestParse_RejectsWrongKeyAndIssuer(t *testing.T) {
	pair, err := Issue(1, RoleAdmin, "issuer-a", "key-a", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "key-b", "issuer-a"); err == nil {
		t.Fatalf("expected error for wrong key")
	}
	if _, err := Parse(pair.AccessToken, "key-a", "issuer-b"); err == nil {
		t.Fatalf("expected error for wrong issuer")
	}
}

func TestParse_RejectsExpired(t *testing.T) {
	pair, err := Issue(1, RoleStudent, "iss", "key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "key", "iss"); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestIdentityAllowed(t *testing.T) {
	cases := []struct {
		role    Role
		allowed []Role
		want    bool
	}{
		{RoleAdmin, []Role{RoleTeacher, RoleAdmin}, true},
		{RoleTeacher, []Role{RoleTeacher, RoleAdmin}, true},
		{RoleStudent, []Role{RoleTeacher, RoleAdmin}, false},
		{RoleStudent, []Role{RoleStudent}, true},
		{RoleStudent, nil, false},
	}
	for _, tc := range cases {
		id := Identity{UserID: 1, Role: tc.role}
		if got := id.Allowed(tc.allowed...); got != tc.want {
			t.Fatalf("Allowed(%s in %v) = %v, expected %v", tc.role, tc.allowed, got, tc.want)
		}
	}
}
