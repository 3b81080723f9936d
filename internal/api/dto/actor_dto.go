package dto

import "time"

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the issued token and the authenticated actor.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Actor     ActorResponse `json:"actor"`
}

// ActorResponse is the public actor view.
type ActorResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	RoleID    string   `json:"role_id"`
	Overrides []string `json:"overrides"`
	Active    bool     `json:"active"`
}

// CreateActorRequest payload for actor provisioning.
type CreateActorRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"role_id"`
}

// RoleRequest payload for role creation and updates.
type RoleRequest struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Capabilities []string `json:"capabilities"`
}

// RoleResponse is the public role view.
type RoleResponse struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Capabilities []string `json:"capabilities"`
	System       bool     `json:"system"`
}

// GrantOverrideRequest payload.
type GrantOverrideRequest struct {
	Capability string `json:"capability"`
}
