package domain

import "time"

// User is the stored identity record. Email is the unique key of the users table.
type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	Username     string    `json:"username" dynamodbav:"username"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Role         Role      `json:"role" dynamodbav:"role"`
	Verified     bool      `json:"verified" dynamodbav:"verified"`
	Hospital     string    `json:"hospital" dynamodbav:"hospital"`
	Designation  string    `json:"designation" dynamodbav:"designation"`
	DisplayID    string    `json:"display_id" dynamodbav:"display_id"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

// PublicProfile is the subset of a User that may leave the service.
type PublicProfile struct {
	UserID      string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Role        Role   `json:"role"`
	Verified    bool   `json:"verified"`
	Hospital    string `json:"hospital,omitempty"`
	Designation string `json:"designation,omitempty"`
	DisplayID   string `json:"display_id"`
}

// Profile strips the credential fields off u.
func (u *User) Profile() *PublicProfile {
	if u == nil {
		return nil
	}
	return &PublicProfile{
		UserID:      u.UserID,
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		Verified:    u.Verified,
		Hospital:    u.Hospital,
		Designation: u.Designation,
		DisplayID:   u.DisplayID,
	}
}
