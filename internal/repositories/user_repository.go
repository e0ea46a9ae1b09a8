package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"skillsync/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserRepository abstracts the user directory.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByVerifyToken(ctx context.Context, token string) (models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	UpdateUser(ctx context.Context, id string, params UpdateUserParams) (models.User, error)
	SearchUsers(ctx context.Context, filter models.UserSearchFilter) ([]models.User, error)
}

// UpdateUserParams lists the fields to change. Nil pointers and nil slices are
// left untouched; pass an empty slice to clear a list.
type UpdateUserParams struct {
	Name              *string
	Email             *string
	Branch            *string
	PassingYear       *int
	ClearPassingYear  bool
	KnownSkills       []string
	CareerPath        []string
	Experience        *bool
	LearningGoal      *string
	Availability      *string
	Avatar            *string
	IsOnboarded       *bool
	IsVerified        *bool
	VerifyToken       *string
	VerifyTokenExpiry *time.Time
}

// apply copies the requested changes onto u.
func (p UpdateUserParams) apply(u *models.User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Branch != nil {
		u.Branch = *p.Branch
	}
	if p.ClearPassingYear {
		u.PassingYear = nil
	} else if p.PassingYear != nil {
		year := *p.PassingYear
		u.PassingYear = &year
	}
	if p.KnownSkills != nil {
		u.KnownSkills = append([]string{}, p.KnownSkills...)
	}
	if p.CareerPath != nil {
		u.CareerPath = append([]string{}, p.CareerPath...)
	}
	if p.Experience != nil {
		u.Experience = *p.Experience
	}
	if p.LearningGoal != nil {
		u.LearningGoal = *p.LearningGoal
	}
	if p.Availability != nil {
		u.Availability = *p.Availability
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.IsOnboarded != nil {
		u.IsOnboarded = *p.IsOnboarded
	}
	if p.IsVerified != nil {
		u.IsVerified = *p.IsVerified
	}
	if p.VerifyToken != nil {
		u.VerifyToken = *p.VerifyToken
	}
	if p.VerifyTokenExpiry != nil {
		u.VerifyTokenExpiry = *p.VerifyTokenExpiry
	}
}

// userRow mirrors the users table.
type userRow struct {
	ID                string         `db:"id"`
	Name              string         `db:"name"`
	Email             string         `db:"email"`
	PasswordHash      string         `db:"password_hash"`
	Branch            string         `db:"branch"`
	PassingYear       sql.NullInt64  `db:"passing_year"`
	KnownSkills       pq.StringArray `db:"known_skills"`
	CareerPath        pq.StringArray `db:"career_path"`
	Experience        bool           `db:"experience"`
	LearningGoal      string         `db:"learning_goal"`
	Availability      string         `db:"availability"`
	Avatar            string         `db:"avatar"`
	IsOnboarded       bool           `db:"is_onboarded"`
	IsVerified        bool           `db:"is_verified"`
	VerifyToken       sql.NullString `db:"verify_token"`
	VerifyTokenExpiry sql.NullTime   `db:"verify_token_expiry"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r userRow) model() models.User {
	u := models.User{
		ID:                r.ID,
		Name:              r.Name,
		Email:             r.Email,
		PasswordHash:      r.PasswordHash,
		Branch:            r.Branch,
		KnownSkills:       []string(r.KnownSkills),
		CareerPath:        []string(r.CareerPath),
		Experience:        r.Experience,
		LearningGoal:      r.LearningGoal,
		Availability:      r.Availability,
		Avatar:            r.Avatar,
		IsOnboarded:       r.IsOnboarded,
		IsVerified:        r.IsVerified,
		VerifyToken:       r.VerifyToken.String,
		VerifyTokenExpiry: r.VerifyTokenExpiry.Time,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.PassingYear.Valid {
		year := int(r.PassingYear.Int64)
		u.PassingYear = &year
	}
	if u.KnownSkills == nil {
		u.KnownSkills = []string{}
	}
	if u.CareerPath == nil {
		u.CareerPath = []string{}
	}
	return u
}

func rowFromUser(u models.User) userRow {
	r := userRow{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Branch:       u.Branch,
		KnownSkills:  pq.StringArray(nonNil(u.KnownSkills)),
		CareerPath:   pq.StringArray(nonNil(u.CareerPath)),
		Experience:   u.Experience,
		LearningGoal: u.LearningGoal,
		Availability: u.Availability,
		Avatar:       u.Avatar,
		IsOnboarded:  u.IsOnboarded,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.PassingYear != nil {
		r.PassingYear = sql.NullInt64{Int64: int64(*u.PassingYear), Valid: true}
	}
	if u.VerifyToken != "" {
		r.VerifyToken = sql.NullString{String: u.VerifyToken, Valid: true}
		r.VerifyTokenExpiry = sql.NullTime{Time: u.VerifyTokenExpiry, Valid: true}
	}
	return r
}

const userColumns = `id, name, email, password_hash, branch, passing_year, known_skills, career_path,
	experience, learning_goal, availability, avatar, is_onboarded, is_verified,
	verify_token, verify_token_expiry, created_at, updated_at`

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a new account; a taken email yields ErrEmailTaken.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `INSERT INTO users (` + userColumns + `) VALUES (
		:id, :name, :email, :password_hash, :branch, :passing_year, :known_skills, :career_path,
		:experience, :learning_goal, :availability, :avatar, :is_onboarded, :is_verified,
		:verify_token, :verify_token_expiry, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rowFromUser(user)); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return rowFromUser(user).model(), nil
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, id string) (models.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetUserByEmail fetches a user by exact email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetUserByVerifyToken fetches the user holding an email verification token.
func (r *UserRepo) GetUserByVerifyToken(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUserNotFound
	}
	return r.getBy(ctx, "verify_token", token)
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE `+column+`=$1`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return row.model(), nil
}

// GetUsersByIDs resolves a batch of ids. Missing ids are absent from the map.
func (r *UserRepo) GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	result := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row.model()
	}
	return result, nil
}

// UpdateUser applies params and returns the stored result.
func (r *UserRepo) UpdateUser(ctx context.Context, id string, params UpdateUserParams) (models.User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var row userRow
	err = tx.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id=$1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	user := row.model()
	params.apply(&user)
	user.UpdatedAt = time.Now().UTC()

	query := `UPDATE users SET name=:name, email=:email, branch=:branch, passing_year=:passing_year,
		known_skills=:known_skills, career_path=:career_path, experience=:experience,
		learning_goal=:learning_goal, availability=:availability, avatar=:avatar,
		is_onboarded=:is_onboarded, is_verified=:is_verified, verify_token=:verify_token,
		verify_token_expiry=:verify_token_expiry, updated_at=:updated_at
		WHERE id=:id`
	if _, err := tx.NamedExecContext(ctx, query, rowFromUser(user)); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// SearchUsers lists users matching every set field of filter.
func (r *UserRepo) SearchUsers(ctx context.Context, filter models.UserSearchFilter) ([]models.User, error) {
	where, args := userSearchClause(filter)
	query := `SELECT ` + userColumns + ` FROM users`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY created_at DESC`

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.model())
	}
	return users, nil
}

// userSearchClause translates a search filter into a SQL predicate.
func userSearchClause(f models.UserSearchFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Name != nil {
		add(`name ILIKE $%d`, likePattern(*f.Name))
	}
	if f.Email != nil {
		add(`email ILIKE $%d`, likePattern(*f.Email))
	}
	if f.Branch != nil {
		add(`branch = $%d`, *f.Branch)
	}
	if f.PassingYear != nil {
		add(`passing_year = $%d`, *f.PassingYear)
	}
	if len(f.KnownSkills) > 0 {
		add(`known_skills && $%d`, pq.Array(f.KnownSkills))
	}
	if len(f.CareerPath) > 0 {
		add(`career_path && $%d`, pq.Array(f.CareerPath))
	}
	if f.Experience != nil {
		add(`experience = $%d`, *f.Experience)
	}
	if f.LearningGoal != nil {
		add(`learning_goal ILIKE $%d`, likePattern(*f.LearningGoal))
	}
	if f.Availability != nil {
		add(`availability = $%d`, *f.Availability)
	}
	if f.IsOnboarded != nil {
		add(`is_onboarded = $%d`, *f.IsOnboarded)
	}
	if f.IsVerified != nil {
		add(`is_verified = $%d`, *f.IsVerified)
	}
	return strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
