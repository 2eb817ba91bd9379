package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/discordin/internal/database"
	"github.com/isdelr/discordin/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, input RegisterInput) (models.User, error)
	Authenticate(ctx context.Context, identifier, password string) (models.User, error)
	GetUserByPseudo(ctx context.Context, pseudo string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUser(ctx context.Context, pseudo string, update models.UserUpdate) (models.User, error)
	AddFriend(ctx context.Context, pseudo, friend string) error
	RemoveFriend(ctx context.Context, pseudo, friend string) error
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Pseudo    string
	Email     string
	Password  string
	BirthDate string // YYYY-MM-DD
}

// UserService provides business logic for member accounts.
type UserService struct {
	db         *sql.DB
	users      *database.Table
	profiles   ProfileServiceProvider
	events     EventServiceProvider
	minimumAge int
	now        func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, profiles ProfileServiceProvider, events EventServiceProvider, minimumAge int) *UserService {
	return &UserService{
		db:         db,
		users:      database.NewTable(db, "users", "pseudo", "email", "password_hash", "birth_date", "registered_at", "last_login_at", "friends"),
		profiles:   profiles,
		events:     events,
		minimumAge: minimumAge,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register validates the form, hashes the password and creates the account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	if err := validatePseudo(input.Pseudo); err != nil {
		return models.User{}, err
	}
	if err := validateEmail("email", input.Email); err != nil {
		return models.User{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return models.User{}, err
	}
	birthDate, err := ParseBirthDate(input.BirthDate)
	if err != nil {
		return models.User{}, err
	}

	now := s.now()
	if !OldEnough(birthDate, now, s.minimumAge) {
		return models.User{}, ErrTooYoung
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Pseudo:       input.Pseudo,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		BirthDate:    birthDate,
		RegisteredAt: now,
		LastLoginAt:  now,
		Friends:      []string{},
	}

	err = s.users.Create(ctx, map[string]any{
		"pseudo":        user.Pseudo,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"birth_date":    user.BirthDate,
		"registered_at": user.RegisteredAt,
		"last_login_at": user.LastLoginAt,
		"friends":       joinFriends(user.Friends),
	})
	if err != nil {
		return models.User{}, duplicateError(err)
	}

	s.recordEvent(ctx, EventUserRegister, fmt.Sprintf("%s joined DiscordIn.", user.Pseudo), user.Pseudo)

	user.PasswordHash = ""
	return user, nil
}

// Authenticate checks the credentials of the user identified by a pseudo or,
// when the identifier contains "@", an email, and records the login time.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (models.User, error) {
	var user models.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = s.GetUserByEmail(ctx, identifier)
	} else {
		user, err = s.GetUserByPseudo(ctx, identifier)
	}
	if err != nil {
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidPassword
	}

	now := s.now()
	if err := s.users.Update(ctx, user.Pseudo, map[string]any{"last_login_at": now}); err != nil {
		return models.User{}, fmt.Errorf("touch last login: %w", err)
	}
	user.LastLoginAt = now

	s.recordEvent(ctx, EventUserLogin, fmt.Sprintf("%s logged in.", user.Pseudo), user.Pseudo)

	user.PasswordHash = ""
	return user, nil
}

// GetUserByPseudo retrieves a user and their optional profile.
// The password hash is kept so that callers can verify credentials.
func (s *UserService) GetUserByPseudo(ctx context.Context, pseudo string) (models.User, error) {
	return s.fetch(ctx, "pseudo", pseudo)
}

// GetUserByEmail retrieves a user by their email address.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.fetch(ctx, "email", email)
}

func (s *UserService) fetch(ctx context.Context, column, value string) (models.User, error) {
	var user models.User
	var friends string
	row := s.db.QueryRowContext(ctx,
		"SELECT pseudo, email, password_hash, birth_date, registered_at, last_login_at, friends FROM users WHERE "+column+" = ?", value)
	err := row.Scan(&user.Pseudo, &user.Email, &user.PasswordHash, &user.BirthDate, &user.RegisteredAt, &user.LastLoginAt, &friends)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	user.Friends = splitFriends(friends)

	profile, err := s.profiles.GetProfile(ctx, user.Pseudo)
	if err != nil {
		return models.User{}, err
	}
	user.Profile = profile
	return user, nil
}

// UpdateUser changes the account fields set in update.
func (s *UserService) UpdateUser(ctx context.Context, pseudo string, update models.UserUpdate) (models.User, error) {
	changes := map[string]any{}
	if update.Email != nil {
		if err := validateEmail("email", *update.Email); err != nil {
			return models.User{}, err
		}
		changes["email"] = *update.Email
	}
	if update.Password != nil {
		if err := validatePassword(*update.Password); err != nil {
			return models.User{}, err
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("failed to hash new password: %w", err)
		}
		changes["password_hash"] = string(hashedPassword)
	}
	if update.BirthDate != nil {
		if !OldEnough(*update.BirthDate, s.now(), s.minimumAge) {
			return models.User{}, ErrTooYoung
		}
		changes["birth_date"] = *update.BirthDate
	}

	if err := s.users.Update(ctx, pseudo, changes); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, duplicateError(err)
	}

	user, err := s.GetUserByPseudo(ctx, pseudo)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// AddFriend adds friend to the friend list of pseudo.
func (s *UserService) AddFriend(ctx context.Context, pseudo, friend string) error {
	if pseudo == friend {
		return invalid("friend", "you cannot add yourself as a friend")
	}
	if _, err := s.GetUserByPseudo(ctx, friend); err != nil {
		return err
	}
	user, err := s.GetUserByPseudo(ctx, pseudo)
	if err != nil {
		return err
	}
	if user.HasFriend(friend) {
		return nil
	}

	friends := append(user.Friends, friend)
	if err := s.users.Update(ctx, pseudo, map[string]any{"friends": joinFriends(friends)}); err != nil {
		return fmt.Errorf("add friend: %w", err)
	}

	s.recordEvent(ctx, EventFriendAdd, fmt.Sprintf("%s is now friends with %s.", pseudo, friend), pseudo)
	return nil
}

// RemoveFriend removes friend from the friend list of pseudo.
func (s *UserService) RemoveFriend(ctx context.Context, pseudo, friend string) error {
	user, err := s.GetUserByPseudo(ctx, pseudo)
	if err != nil {
		return err
	}
	if !user.HasFriend(friend) {
		return nil
	}

	friends := make([]string, 0, len(user.Friends))
	for _, f := range user.Friends {
		if f != friend {
			friends = append(friends, f)
		}
	}
	if err := s.users.Update(ctx, pseudo, map[string]any{"friends": joinFriends(friends)}); err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}

	s.recordEvent(ctx, EventFriendRemove, fmt.Sprintf("%s is no longer friends with %s.", pseudo, friend), pseudo)
	return nil
}

// recordEvent logs failures instead of returning them.
func (s *UserService) recordEvent(ctx context.Context, eventType, message, pseudo string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, eventType, "info", message, &pseudo); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Str("pseudo", pseudo).Msg("Failed to record event")
	}
}

func duplicateError(err error) error {
	var dup *database.DuplicateKeyError
	if errors.As(err, &dup) {
		switch dup.Column {
		case "pseudo":
			return ErrPseudoTaken
		case "email":
			return ErrEmailTaken
		}
	}
	return err
}

func splitFriends(s string) []string {
	friends := []string{}
	for _, f := range strings.Split(s, ",") {
		if f != "" {
			friends = append(friends, f)
		}
	}
	return friends
}

func joinFriends(friends []string) string {
	return strings.Join(friends, ",")
}
