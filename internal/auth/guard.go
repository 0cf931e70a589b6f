package auth

// DenyReason says why a guard refused a request.
type DenyReason int

const (
	// ReasonAnonymous: no valid session. Handled by sending the user to log in.
	ReasonAnonymous DenyReason = iota + 1
	// ReasonNotOwner: authenticated, but the URL names someone else.
	// Handled by sending the user home.
	ReasonNotOwner
)

func (r DenyReason) String() string {
	switch r {
	case ReasonAnonymous:
		return "anonymous"
	case ReasonNotOwner:
		return "not_owner"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a guard: allowed, or denied with a reason.
// Guards are pure functions of the identity so they can be tested without
// HTTP; the middleware turns a denial into a redirect.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var allow = Decision{Allowed: true}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// RequireAuthenticated allows any authenticated identity.
func RequireAuthenticated(id Identity) Decision {
	if !id.Authenticated() {
		return deny(ReasonAnonymous)
	}
	return allow
}

// RequireOwner allows only the identity whose user id equals ownerID.
// Anonymous requests are denied as anonymous first, so the caller is asked
// to log in before being told the page is not theirs.
func RequireOwner(id Identity, ownerID int64) Decision {
	if d := RequireAuthenticated(id); !d.Allowed {
		return d
	}
	if ownerID == 0 || id.UserID != ownerID {
		return deny(ReasonNotOwner)
	}
	return allow
}
