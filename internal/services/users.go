package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"skillsync/internal/apperr"
	"skillsync/internal/auth"
	"skillsync/internal/models"
	"skillsync/internal/observability"
	"skillsync/internal/repositories"
)

const verifyTokenTTL = 24 * time.Hour

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")

// Mailer delivers account emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
}

// AvatarStore hands out direct upload URLs for profile images.
type AvatarStore interface {
	PresignAvatarUpload(ctx context.Context, userID, contentType string) (url, key string, expiresAt time.Time, err error)
}

// AvatarUpload tells the client where to PUT the image.
type AvatarUpload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignupInput is the signup request.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// ProfileUpdate is a partial profile edit. Nil fields stay unchanged.
// Credentials and verification state are not editable here.
type ProfileUpdate struct {
	Name         *string   `json:"name"`
	Email        *string   `json:"email"`
	Branch       *string   `json:"branch"`
	PassingYear  *int      `json:"passing_year"`
	KnownSkills  *[]string `json:"known_skills"`
	CareerPath   *[]string `json:"career_path"`
	Experience   *bool     `json:"experience"`
	LearningGoal *string   `json:"learning_goal"`
	Availability *string   `json:"availability"`
}

// UserService is the user directory plus account flows.
type UserService struct {
	users     repositories.UserRepository
	tokens    *auth.TokenManager
	mailer    Mailer
	avatars   AvatarStore
	events    EventPublisher
	logger    *zerolog.Logger
	publicURL string
	now       func() time.Time
}

type UserServiceOption func(*UserService)

// WithMailer enables verification emails.
func WithMailer(m Mailer) UserServiceOption {
	return func(s *UserService) { s.mailer = m }
}

// WithAvatarStore enables avatar uploads.
func WithAvatarStore(a AvatarStore) UserServiceOption {
	return func(s *UserService) { s.avatars = a }
}

func WithPublicURL(url string) UserServiceOption {
	return func(s *UserService) { s.publicURL = strings.TrimRight(url, "/") }
}

func NewUserService(
	users repositories.UserRepository,
	tokens *auth.TokenManager,
	events EventPublisher,
	logger *zerolog.Logger,
	opts ...UserServiceOption,
) *UserService {
	s := &UserService{
		users:  users,
		tokens: tokens,
		events: eventsOrNoop(events),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates a not-yet-onboarded account and mails a verification link.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (user models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Signup")
	defer func() { endSpan(span, err) }()
	defer func() { observability.IncAuthAttempt("signup", outcome(err)) }()

	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return models.User{}, apperr.Validation("Name, email and password are required")
	}

	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return models.User{}, apperr.Validation("Password must be at most 72 bytes")
	}
	if err != nil {
		return models.User{}, internal("Failed to create user", err)
	}

	user, err = s.users.CreateUser(ctx, models.User{
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		KnownSkills:       []string{},
		CareerPath:        []string{},
		VerifyToken:       uuid.NewString(),
		VerifyTokenExpiry: s.now().Add(verifyTokenTTL).UTC(),
	})
	if errors.Is(err, repositories.ErrEmailTaken) {
		return models.User{}, apperr.Conflict("User already exists")
	}
	if err != nil {
		return models.User{}, internal("Failed to create user", err)
	}

	s.sendVerification(ctx, user)
	s.events.Emit(ctx, observability.EventUserSignedUp, user.Summary())
	return user, nil
}

func (s *UserService) sendVerification(ctx context.Context, user models.User) {
	if s.mailer == nil {
		return
	}
	link := s.publicURL + "/verifyemail?token=" + user.VerifyToken
	if err := s.mailer.SendVerification(ctx, user.Email, user.Name, link); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("verification email not sent")
	}
}

// Login checks credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (user models.User, token string, expires time.Time, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Login")
	defer func() { endSpan(span, err) }()
	defer func() { observability.IncAuthAttempt("login", outcome(err)) }()

	user, err = s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, "", time.Time{}, internal("Failed to log in", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return models.User{}, "", time.Time{}, ErrInvalidCredentials
	}

	token, expires, err = s.tokens.Issue(user)
	if err != nil {
		return models.User{}, "", time.Time{}, internal("Failed to log in", err)
	}
	return user, token, expires, nil
}

// Get returns a profile by id.
func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return models.User{}, internal("Failed to fetch user", err)
	}
	return user, nil
}

// Update edits actorID's own profile.
func (s *UserService) Update(ctx context.Context, actorID, id string, in ProfileUpdate) (user models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Update", attribute.String("user_id", id))
	defer func() { endSpan(span, err) }()

	if actorID != id {
		return models.User{}, apperr.Forbidden("Unauthorized to update this profile")
	}

	params := repositories.UpdateUserParams{
		Branch:       in.Branch,
		PassingYear:  in.PassingYear,
		Experience:   in.Experience,
		LearningGoal: in.LearningGoal,
		Availability: in.Availability,
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.User{}, apperr.Validation("Name cannot be empty")
		}
		params.Name = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return models.User{}, apperr.Validation("Email cannot be empty")
		}
		params.Email = &email
	}
	if in.KnownSkills != nil {
		params.KnownSkills = nonNilStrings(*in.KnownSkills)
	}
	if in.CareerPath != nil {
		params.CareerPath = nonNilStrings(*in.CareerPath)
	}

	user, err = s.users.UpdateUser(ctx, id, params)
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		return models.User{}, apperr.NotFound("User not found")
	case errors.Is(err, repositories.ErrEmailTaken):
		return models.User{}, apperr.Conflict("Email already in use")
	case err != nil:
		return models.User{}, internal("Failed to update profile", err)
	}
	return user, nil
}

// CompleteOnboarding maps the questionnaire answers, in question order, onto
// the profile and marks the user onboarded.
func (s *UserService) CompleteOnboarding(ctx context.Context, userID string, answers []models.OnboardingAnswer) (err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.CompleteOnboarding")
	defer func() { endSpan(span, err) }()

	if answers == nil {
		return apperr.Validation("Invalid onboarding details")
	}

	_, err = s.users.UpdateUser(ctx, userID, onboardingParams(answers))
	if errors.Is(err, repositories.ErrUserNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return internal("Failed to update profile", err)
	}

	s.events.Emit(ctx, observability.EventUserOnboarded, map[string]string{"id": userID})
	return nil
}

// onboardingParams reads answers positionally: department, graduation year,
// skills, career path, project experience, goal, weekly availability.
func onboardingParams(answers []models.OnboardingAnswer) repositories.UpdateUserParams {
	at := func(i int) models.OnboardingAnswer {
		if i < len(answers) {
			return answers[i]
		}
		return models.OnboardingAnswer{}
	}
	withOther := func(a models.OnboardingAnswer) []string {
		values := append([]string{}, a.SelectedOptions...)
		if a.OtherText != "" {
			values = append(values, a.OtherText)
		}
		return values
	}

	branch := at(0).SelectedOption
	experience := at(4).SelectedOption == "Yes"
	goal := at(5).Text
	availability := at(6).SelectedOption
	onboarded := true

	params := repositories.UpdateUserParams{
		Branch:       &branch,
		KnownSkills:  withOther(at(2)),
		CareerPath:   withOther(at(3)),
		Experience:   &experience,
		LearningGoal: &goal,
		Availability: &availability,
		IsOnboarded:  &onboarded,
	}
	if year, err := strconv.Atoi(strings.TrimSpace(at(1).SelectedOption)); err == nil && year != 0 {
		params.PassingYear = &year
	} else {
		params.ClearPassingYear = true
	}
	return params
}

// Search lists users matching filter.
func (s *UserService) Search(ctx context.Context, filter models.UserSearchFilter) (users []models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Search")
	defer func() { endSpan(span, err) }()

	users, err = s.users.SearchUsers(ctx, filter)
	if err != nil {
		return nil, internal("Failed to search users", err)
	}
	return users, nil
}

// VerifyEmail consumes a verification token.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.VerifyEmail")
	defer func() { endSpan(span, err) }()

	invalid := apperr.Validation("Invalid or expired verification token")
	if token == "" {
		return invalid
	}

	user, err := s.users.GetUserByVerifyToken(ctx, token)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return invalid
	}
	if err != nil {
		return internal("Failed to verify email", err)
	}
	if s.now().After(user.VerifyTokenExpiry) {
		return invalid
	}

	verified, cleared := true, ""
	_, err = s.users.UpdateUser(ctx, user.ID, repositories.UpdateUserParams{
		IsVerified:  &verified,
		VerifyToken: &cleared,
	})
	if err != nil {
		return internal("Failed to verify email", err)
	}

	s.events.Emit(ctx, observability.EventUserVerified, user.Summary())
	return nil
}

// RequestAvatarUpload returns a presigned upload URL for actorID's own avatar
// and records the object key on the profile.
func (s *UserService) RequestAvatarUpload(ctx context.Context, actorID, id, contentType string) (upload AvatarUpload, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.RequestAvatarUpload")
	defer func() { endSpan(span, err) }()

	if actorID != id {
		return AvatarUpload{}, apperr.Forbidden("Unauthorized to update this profile")
	}
	if s.avatars == nil {
		return AvatarUpload{}, apperr.Unavailable("Avatar uploads are not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return AvatarUpload{}, apperr.Validation("Avatar must be an image")
	}

	url, key, expiresAt, err := s.avatars.PresignAvatarUpload(ctx, id, contentType)
	if err != nil {
		return AvatarUpload{}, internal("Failed to prepare avatar upload", err)
	}

	_, err = s.users.UpdateUser(ctx, id, repositories.UpdateUserParams{Avatar: &key})
	if errors.Is(err, repositories.ErrUserNotFound) {
		return AvatarUpload{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return AvatarUpload{}, internal("Failed to prepare avatar upload", err)
	}
	return AvatarUpload{URL: url, Key: key, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
