package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Role Tests
// ============================================================================

func TestValidRoles_ContainsAll(t *testing.T) {
	expected := []string{RoleSuperAdmin, RoleGerente, RoleAgente, RoleCliente}
	assert.ElementsMatch(t, expected, ValidRoles())
}

func TestIsValidRole_ValidRoles(t *testing.T) {
	for _, r := range ValidRoles() {
		assert.True(t, IsValidRole(r), "expected %q to be valid", r)
	}
}

func TestIsValidRole_Invalid(t *testing.T) {
	assert.False(t, IsValidRole("superadmin"))
	assert.False(t, IsValidRole(""))
	assert.False(t, IsValidRole("ADMIN"))
}

// ============================================================================
// Principal Tests
// ============================================================================

func TestPrincipal_HasAuthority(t *testing.T) {
	p := Principal{Authorities: []string{RoleCliente, RoleAgente}}
	assert.True(t, p.HasAuthority(RoleCliente))
	assert.True(t, p.HasAuthority(RoleAgente))
	assert.False(t, p.HasAuthority(RoleSuperAdmin))
}

func TestPrincipal_HasAnyAuthority(t *testing.T) {
	p := Principal{Authorities: []string{RoleGerente}}
	assert.True(t, p.HasAnyAuthority(RoleSuperAdmin, RoleGerente))
	assert.False(t, p.HasAnyAuthority(RoleAgente, RoleCliente))
	assert.False(t, p.HasAnyAuthority())
}

func TestPrincipalFromUser(t *testing.T) {
	u := &User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		IsActive:     true,
		Roles:        []string{RoleCliente},
	}

	p := PrincipalFromUser(u)
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, u.Username, p.Username)
	assert.Equal(t, u.Email, p.Email)
	assert.Equal(t, u.PasswordHash, p.PasswordHash)
	assert.True(t, p.Active)
	assert.Equal(t, []string{RoleCliente}, p.Authorities)

	// Authorities are a copy, not an alias of the user's role slice.
	p.Authorities[0] = RoleSuperAdmin
	assert.Equal(t, RoleCliente, u.Roles[0])
}

// ============================================================================
// Token Tests
// ============================================================================

func TestRefreshToken_Expired(t *testing.T) {
	now := time.Now()
	rt := RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, rt.Expired(now))
	assert.True(t, rt.Expired(now.Add(2*time.Hour)))
	// Expiry instant itself counts as expired: valid iff now < expiry.
	assert.True(t, rt.Expired(rt.ExpiresAt))
}

func TestPasswordResetToken_Consumable(t *testing.T) {
	now := time.Now()

	fresh := PasswordResetToken{ExpiresAt: now.Add(24 * time.Hour)}
	assert.True(t, fresh.Consumable(now))

	used := PasswordResetToken{ExpiresAt: now.Add(24 * time.Hour), Used: true}
	assert.False(t, used.Consumable(now))

	expired := PasswordResetToken{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.Consumable(now))
}

// ============================================================================
// User Tests
// ============================================================================

func TestUser_HasRole(t *testing.T) {
	u := User{Roles: []string{RoleCliente}}
	assert.True(t, u.HasRole(RoleCliente))
	assert.False(t, u.HasRole(RoleSuperAdmin))
}

func TestUser_DefaultFields(t *testing.T) {
	u := User{}
	assert.False(t, u.IsActive)
	assert.False(t, u.IsTemporaryPassword)
	assert.Empty(t, u.Roles)
}

// ============================================================================
// Review Tests
// ============================================================================

func TestValidCategories_ContainsAll(t *testing.T) {
	expected := []string{
		CategoryUsability, CategorySearches, CategoryBookingProcess,
		CategoryPerformance, CategoryGeneral,
	}
	assert.ElementsMatch(t, expected, ValidCategories())
}

func TestIsValidCategory(t *testing.T) {
	for _, c := range ValidCategories() {
		assert.True(t, IsValidCategory(c))
	}
	assert.False(t, IsValidCategory("usability"))
	assert.False(t, IsValidCategory(""))
}
