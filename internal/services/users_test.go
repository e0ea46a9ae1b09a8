package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skillsync/internal/apperr"
	"skillsync/internal/auth"
	"skillsync/internal/mocks"
	"skillsync/internal/models"
	"skillsync/internal/repositories"
)

func newUserService(t *testing.T, opts ...UserServiceOption) (*UserService, *repositories.Memory) {
	t.Helper()
	logger := zerolog.Nop()
	store := repositories.NewMemory()
	return NewUserService(store, auth.NewTokenManager("test-secret", time.Hour), nil, &logger, opts...), store
}

func TestSignupAndLogin(t *testing.T) {
	mailer := new(mocks.MailerMock)
	svc, store := newUserService(t, WithMailer(mailer), WithPublicURL("https://skillsync.test/"))
	ctx := context.Background()

	mailer.On("SendVerification", mock.Anything, "ann@example.com", "Ann",
		mock.MatchedBy(func(link string) bool {
			return strings.HasPrefix(link, "https://skillsync.test/verifyemail?token=")
		})).Return(nil).Once()

	user, err := svc.Signup(ctx, SignupInput{Name: " Ann ", Email: " Ann@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.False(t, user.IsOnboarded)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	mailer.AssertExpectations(t)

	stored, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.VerifyToken)

	_, err = svc.Signup(ctx, SignupInput{Name: "Other", Email: "ann@example.com", Password: "x"})
	requireKind(t, apperr.KindConflict, err)

	got, token, expires, err := svc.Login(ctx, "ANN@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, expires.After(time.Now()))

	identity, err := svc.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{ID: user.ID, Name: "Ann", Email: "ann@example.com"}, identity)
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newUserService(t)

	for _, in := range []SignupInput{
		{Email: "a@x.io", Password: "p"},
		{Name: "A", Password: "p"},
		{Name: "A", Email: "a@x.io"},
		{Name: "  ", Email: "a@x.io", Password: "p"},
	} {
		_, err := svc.Signup(context.Background(), in)
		requireKind(t, apperr.KindValidation, err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "ann@example.com", Password: "right"})
	require.NoError(t, err)

	_, _, _, wrongPassword := svc.Login(ctx, "ann@example.com", "wrong")
	_, _, _, unknownEmail := svc.Login(ctx, "nobody@example.com", "right")

	requireKind(t, apperr.KindUnauthorized, wrongPassword)
	assert.Equal(t, wrongPassword, unknownEmail)
	assert.Equal(t, "Invalid credentials", apperr.MessageOf(unknownEmail, ""))
}

func TestUpdateProfile(t *testing.T) {
	svc, store := newUserService(t)
	ctx := context.Background()
	ann, err := store.CreateUser(ctx, models.User{Name: "Ann", Email: "ann@x.io"})
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, models.User{Name: "Bob", Email: "bob@x.io"})
	require.NoError(t, err)

	branch := "CSE"
	_, err = svc.Update(ctx, bob.ID, ann.ID, ProfileUpdate{Branch: &branch})
	requireKind(t, apperr.KindForbidden, err)

	skills := []string{"Go", "SQL"}
	updated, err := svc.Update(ctx, ann.ID, ann.ID, ProfileUpdate{Branch: &branch, KnownSkills: &skills})
	require.NoError(t, err)
	assert.Equal(t, "CSE", updated.Branch)
	assert.Equal(t, skills, updated.KnownSkills)
	assert.Equal(t, "Ann", updated.Name)

	taken := "BOB@x.io"
	_, err = svc.Update(ctx, ann.ID, ann.ID, ProfileUpdate{Email: &taken})
	requireKind(t, apperr.KindConflict, err)

	blank := " "
	_, err = svc.Update(ctx, ann.ID, ann.ID, ProfileUpdate{Name: &blank})
	requireKind(t, apperr.KindValidation, err)

	_, err = svc.Get(ctx, "missing")
	requireKind(t, apperr.KindNotFound, err)
}

func TestCompleteOnboarding(t *testing.T) {
	svc, store := newUserService(t)
	ctx := context.Background()
	ann, err := store.CreateUser(ctx, models.User{Name: "Ann", Email: "ann@x.io"})
	require.NoError(t, err)

	requireKind(t, apperr.KindValidation, svc.CompleteOnboarding(ctx, ann.ID, nil))

	answers := []models.OnboardingAnswer{
		{SelectedOption: "CSE"},
		{SelectedOption: "2026"},
		{SelectedOptions: []string{"Go", "React"}, OtherText: "Rust"},
		{SelectedOptions: []string{"Backend"}},
		{SelectedOption: "Yes"},
		{Text: "Ship a distributed system"},
		{SelectedOption: "5-10 hours"},
	}
	require.NoError(t, svc.CompleteOnboarding(ctx, ann.ID, answers))

	got, err := store.GetUser(ctx, ann.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnboarded)
	assert.Equal(t, "CSE", got.Branch)
	require.NotNil(t, got.PassingYear)
	assert.Equal(t, 2026, *got.PassingYear)
	assert.Equal(t, []string{"Go", "React", "Rust"}, got.KnownSkills)
	assert.Equal(t, []string{"Backend"}, got.CareerPath)
	assert.True(t, got.Experience)
	assert.Equal(t, "Ship a distributed system", got.LearningGoal)
	assert.Equal(t, "5-10 hours", got.Availability)

	requireKind(t, apperr.KindNotFound, svc.CompleteOnboarding(ctx, "missing", answers))
}

func TestOnboardingParamsShortAnswers(t *testing.T) {
	params := onboardingParams([]models.OnboardingAnswer{{SelectedOption: "ECE"}, {SelectedOption: "soon"}})

	require.NotNil(t, params.Branch)
	assert.Equal(t, "ECE", *params.Branch)
	assert.Nil(t, params.PassingYear)
	assert.True(t, params.ClearPassingYear)
	assert.Equal(t, []string{}, params.KnownSkills)
	require.NotNil(t, params.Experience)
	assert.False(t, *params.Experience)
	require.NotNil(t, params.IsOnboarded)
	assert.True(t, *params.IsOnboarded)
}

func TestSearchUsers(t *testing.T) {
	svc, store := newUserService(t)
	ctx := context.Background()
	for _, u := range []models.User{
		{Name: "Ann Lee", Email: "ann@x.io", Branch: "CSE", KnownSkills: []string{"Go"}},
		{Name: "Bob Stone", Email: "bob@x.io", Branch: "ECE", KnownSkills: []string{"Python"}},
		{Name: "Annika", Email: "annika@x.io", Branch: "CSE", KnownSkills: []string{"Rust", "Go"}},
	} {
		_, err := store.CreateUser(ctx, u)
		require.NoError(t, err)
	}

	name := "ann"
	got, err := svc.Search(ctx, models.UserSearchFilter{Name: &name})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	branch := "CSE"
	got, err = svc.Search(ctx, models.UserSearchFilter{Branch: &branch, KnownSkills: []string{"Rust"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Annika", got[0].Name)

	got, err = svc.Search(ctx, models.UserSearchFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestVerifyEmail(t *testing.T) {
	svc, store := newUserService(t)
	ctx := context.Background()
	user, err := svc.Signup(ctx, SignupInput{Name: "Ann", Email: "ann@x.io", Password: "pw"})
	require.NoError(t, err)
	stored, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)

	requireKind(t, apperr.KindValidation, svc.VerifyEmail(ctx, ""))
	requireKind(t, apperr.KindValidation, svc.VerifyEmail(ctx, "unknown"))

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	requireKind(t, apperr.KindValidation, svc.VerifyEmail(ctx, stored.VerifyToken))

	svc.now = time.Now
	require.NoError(t, svc.VerifyEmail(ctx, stored.VerifyToken))

	verified, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Empty(t, verified.VerifyToken)

	requireKind(t, apperr.KindValidation, svc.VerifyEmail(ctx, stored.VerifyToken))
}

func TestSignupSurvivesMailerFailure(t *testing.T) {
	mailer := new(mocks.MailerMock)
	svc, _ := newUserService(t, WithMailer(mailer))
	mailer.On("SendVerification", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError).Once()

	_, err := svc.Signup(context.Background(), SignupInput{Name: "Ann", Email: "ann@x.io", Password: "pw"})

	require.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestRequestAvatarUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		svc, store := newUserService(t)
		ann, err := store.CreateUser(ctx, models.User{Name: "Ann", Email: "ann@x.io"})
		require.NoError(t, err)

		_, err = svc.RequestAvatarUpload(ctx, ann.ID, ann.ID, "image/png")
		requireKind(t, apperr.KindUnavailable, err)
	})

	t.Run("presigned", func(t *testing.T) {
		avatars := new(mocks.AvatarStoreMock)
		svc, store := newUserService(t, WithAvatarStore(avatars))
		ann, err := store.CreateUser(ctx, models.User{Name: "Ann", Email: "ann@x.io"})
		require.NoError(t, err)
		expires := time.Now().Add(15 * time.Minute)
		key := "avatars/" + ann.ID + "/abc"
		avatars.On("PresignAvatarUpload", mock.Anything, ann.ID, "image/png").
			Return("https://bucket.test/put", key, expires, nil).Once()

		_, err = svc.RequestAvatarUpload(ctx, "someone-else", ann.ID, "image/png")
		requireKind(t, apperr.KindForbidden, err)
		_, err = svc.RequestAvatarUpload(ctx, ann.ID, ann.ID, "text/plain")
		requireKind(t, apperr.KindValidation, err)

		upload, err := svc.RequestAvatarUpload(ctx, ann.ID, ann.ID, "image/png")
		require.NoError(t, err)
		assert.Equal(t, AvatarUpload{URL: "https://bucket.test/put", Key: key, ExpiresAt: expires}, upload)

		got, err := store.GetUser(ctx, ann.ID)
		require.NoError(t, err)
		assert.Equal(t, key, got.Avatar)
		avatars.AssertExpectations(t)
	})
}
