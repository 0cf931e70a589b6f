package auth

import "testing"

func TestRequireAuthenticated(t *testing.T) {
	cases := []struct {
		name string
		id   Identity
		want Decision
	}{
		{"anonymous", Anonymous, Decision{Reason: ReasonAnonymous}},
		{"user without session", Identity{UserID: 1}, Decision{Reason: ReasonAnonymous}},
		{"authenticated", Identity{UserID: 1, SessionID: "s"}, Decision{Allowed: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RequireAuthenticated(tc.id); got != tc.want {
				t.Errorf("RequireAuthenticated(%+v) = %+v, want %+v", tc.id, got, tc.want)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	alice := Identity{UserID: 1, SessionID: "s1"}

	cases := []struct {
		name    string
		id      Identity
		ownerID int64
		want    Decision
	}{
		{"owner", alice, 1, Decision{Allowed: true}},
		{"someone else", alice, 2, Decision{Reason: ReasonNotOwner}},
		{"unknown owner", alice, 0, Decision{Reason: ReasonNotOwner}},
		{"anonymous is asked to log in first", Anonymous, 1, Decision{Reason: ReasonAnonymous}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RequireOwner(tc.id, tc.ownerID); got != tc.want {
				t.Errorf("RequireOwner(%+v, %d) = %+v, want %+v", tc.id, tc.ownerID, got, tc.want)
			}
		})
	}
}

func TestDenyReasonString(t *testing.T) {
	if ReasonAnonymous.String() != "anonymous" || ReasonNotOwner.String() != "not_owner" {
		t.Errorf("unexpected reason strings: %s, %s", ReasonAnonymous, ReasonNotOwner)
	}
}
