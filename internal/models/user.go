package models

import "time"

// User is a SkillSync account with its onboarding profile.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	Branch       string   `json:"branch"`
	PassingYear  *int     `json:"passing_year"`
	KnownSkills  []string `json:"known_skills"`
	CareerPath   []string `json:"career_path"`
	Experience   bool     `json:"experience"`
	LearningGoal string   `json:"learning_goal"`
	Availability string   `json:"availability"`
	Avatar       string   `json:"avatar,omitempty"`

	IsOnboarded bool `json:"isOnboarded"`
	IsVerified  bool `json:"isVerified"`

	VerifyToken       string    `json:"-"`
	VerifyTokenExpiry time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserSummary is the compact identity attached to messages and conversations.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary returns the public compact view of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Identity is the caller established from a session token.
type Identity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	IsOnboarded bool   `json:"isOnboarded"`
}

// UserSearchFilter narrows a directory search. Nil fields do not filter.
// Name, Email and LearningGoal match case-insensitive substrings; KnownSkills
// and CareerPath match users holding any of the given values.
type UserSearchFilter struct {
	Name         *string
	Email        *string
	Branch       *string
	PassingYear  *int
	KnownSkills  []string
	CareerPath   []string
	Experience   *bool
	LearningGoal *string
	Availability *string
	IsOnboarded  *bool
	IsVerified   *bool
}

// OnboardingAnswer is one entry of the onboarding questionnaire, in question order.
type OnboardingAnswer struct {
	SelectedOption  string   `json:"selectedOption"`
	SelectedOptions []string `json:"selectedOptions"`
	OtherText       string   `json:"otherText"`
	Text            string   `json:"text"`
}
