package auth

// Package auth contains domain-level types for RepairLink sessions.
// It is pure and free of framework/adapter concerns.

import "encoding/json"

// Role names used across the platform. The backend owns the full set; the
// gateway only needs the ones that drive routing decisions.
const (
	RoleCustomer = "ROLE_CUSTOMER"
	RoleVendor   = "ROLE_VENDOR"
	RoleAdmin    = "ROLE_ADMIN"
)

// RoleRef is the canonical tagged representation of a role. The backend
// emits roles either as bare name strings or as {"authority": name} records;
// both decode into RoleRef so nothing deeper in the call stack branches on
// shape.
type RoleRef struct {
	Authority string `json:"authority"`
}

// UnmarshalJSON accepts both role wire shapes.
func (r *RoleRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		r.Authority = name
		return nil
	}

	type plain RoleRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = RoleRef(p)
	return nil
}

// SessionUser is the denormalized identity snapshot for an authenticated
// user. It lives in memory for the duration of a session and is mirrored
// to durable storage after every mutation.
type SessionUser struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	PhoneNumber string    `json:"phoneNumber"`
	Roles       []RoleRef `json:"roles"`
}

// HasRole reports whether the user carries the named role.
func (u *SessionUser) HasRole(name string) bool {
	if u == nil || name == "" {
		return false
	}
	for _, role := range u.Roles {
		if role.Authority == name {
			return true
		}
	}
	return false
}

// IsCustomer reports whether the user has the customer role.
func (u *SessionUser) IsCustomer() bool { return u.HasRole(RoleCustomer) }

// IsVendor reports whether the user has the vendor role.
func (u *SessionUser) IsVendor() bool { return u.HasRole(RoleVendor) }

// IsAdmin reports whether the user has the admin role.
func (u *SessionUser) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// NormalizeRoles maps raw role values into canonical RoleRefs. Bare strings
// and {"authority": name} records (or anything that already is a RoleRef)
// are accepted; empty names are dropped.
func NormalizeRoles(raw []any) []RoleRef {
	if len(raw) == 0 {
		return nil
	}

	refs := make([]RoleRef, 0, len(raw))
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			if v != "" {
				refs = append(refs, RoleRef{Authority: v})
			}
		case RoleRef:
			if v.Authority != "" {
				refs = append(refs, v)
			}
		case map[string]any:
			if name, ok := v["authority"].(string); ok && name != "" {
				refs = append(refs, RoleRef{Authority: name})
			}
		}
	}
	return refs
}
