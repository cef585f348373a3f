package models

import "time"

// User is an account allowed to sign in through the blogging API.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	Nickname      string    `json:"nickname,omitempty"`
	Email         string    `json:"email,omitempty"`
	URL           string    `json:"url,omitempty"`
	IsGlobalAdmin bool      `json:"is_global_admin"`
	Disabled      bool      `json:"disabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BanRule closes one ban category to an address or network.
type BanRule struct {
	ID        int64       `json:"id"`
	CIDR      string      `json:"cidr"`
	Category  BanCategory `json:"category"`
	Reason    string      `json:"reason,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Event is one audit log entry.
type Event struct {
	ID          int64     `json:"id"`
	Type        EventType `json:"type"`
	Source      string    `json:"source"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	UserID      int64     `json:"user_id,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
