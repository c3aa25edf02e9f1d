package domain

// Principal is the request-scoped authenticated identity. It is built fresh
// from the credential store on every authenticated request and never
// persisted or serialized.
type Principal struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	Authorities  []string
}

// HasAuthority reports whether the principal holds the given role label.
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// HasAnyAuthority reports whether the principal holds at least one of the
// given role labels.
func (p *Principal) HasAnyAuthority(authorities ...string) bool {
	for _, a := range authorities {
		if p.HasAuthority(a) {
			return true
		}
	}
	return false
}

// PrincipalFromUser builds a principal view of a user record.
func PrincipalFromUser(u *User) *Principal {
	authorities := make([]string, len(u.Roles))
	copy(authorities, u.Roles)
	return &Principal{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Active:       u.IsActive,
		Authorities:  authorities,
	}
}
