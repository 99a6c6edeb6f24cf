package domain

import (
	"strings"
	"time"
)

// Client is a hiring account.
type Client struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	UniqueID  string    `json:"unique_id"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Freelancer is a working account.
type Freelancer struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name,omitempty"`
	Tagline   string    `json:"tagline,omitempty"`
	Location  string    `json:"location,omitempty"`
	Roles     string    `json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the display part of an account used by the conversation list.
type Identity struct {
	FirstName string
	LastName  string
}

// DisplayName joins first and last name.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// FreelancerCard is the public listing shape of a freelancer.
type FreelancerCard struct {
	UniqueID    int64   `json:"unique_id"`
	Name        string  `json:"name"`
	Username    string  `json:"username"`
	Role        string  `json:"role"`
	Tagline     string  `json:"tagline"`
	Location    string  `json:"location"`
	Image       string  `json:"image"`
	Rate        string  `json:"rate"`
	Rating      float64 `json:"rating"`
	RatingCount int64   `json:"ratingCount"`
	RatingIcon  string  `json:"ratingIcon"`
}

// ClientRegistration is the input for creating a client.
type ClientRegistration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FreelancerRegistration is the input for creating a freelancer.
type FreelancerRegistration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Tagline   string `json:"tagline"`
	Location  string `json:"location"`
	Roles     string `json:"roles"`
}
