package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/discordin/internal/database"
	"github.com/isdelr/discordin/internal/models"
	"github.com/rs/zerolog/log"
)

// ProfileServiceProvider defines the interface for profile services.
type ProfileServiceProvider interface {
	GetProfile(ctx context.Context, pseudo string) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile models.Profile) (*models.Profile, error)
}

// ProfileService provides business logic for member profiles.
type ProfileService struct {
	db       *sql.DB
	profiles *database.Table
	events   EventServiceProvider
}

// NewProfileService creates a new ProfileService.
func NewProfileService(db *sql.DB, events EventServiceProvider) *ProfileService {
	return &ProfileService{
		db: db,
		profiles: database.NewTable(db, "profiles", "pseudo",
			"name", "surname", "description", "qualities", "defects", "professional_email", "phone", "availability"),
		events: events,
	}
}

// GetProfile retrieves the profile of a member. It returns nil without an
// error when the member never filled one in.
func (s *ProfileService) GetProfile(ctx context.Context, pseudo string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT pseudo, name, surname, description, qualities, defects, professional_email, phone, availability
		FROM profiles WHERE pseudo = ?`, pseudo).
		Scan(&p.Pseudo, &p.Name, &p.Surname, &p.Description, &p.Qualities, &p.Defects, &p.ProfessionalEmail, &p.Phone, &p.Availability)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// SaveProfile validates the profile and creates it, or writes the columns
// that differ from the stored one.
func (s *ProfileService) SaveProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	current, err := s.GetProfile(ctx, profile.Pseudo)
	if err != nil {
		return nil, err
	}

	if current == nil {
		var members int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE pseudo = ?", profile.Pseudo).Scan(&members); err != nil {
			return nil, err
		}
		if members == 0 {
			return nil, ErrUserNotFound
		}

		values := profileColumns(profile)
		values["pseudo"] = profile.Pseudo
		if err := s.profiles.Create(ctx, values); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
	} else {
		changes := map[string]any{}
		before := profileColumns(*current)
		for column, value := range profileColumns(profile) {
			if before[column] != value {
				changes[column] = value
			}
		}
		if err := s.profiles.Update(ctx, profile.Pseudo, changes); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	if s.events != nil {
		pseudo := profile.Pseudo
		if err := s.events.CreateEvent(ctx, EventProfileUpdate, "info", fmt.Sprintf("%s updated their profile.", pseudo), &pseudo); err != nil {
			log.Error().Err(err).Str("pseudo", pseudo).Msg("Failed to record profile event")
		}
	}

	saved := profile
	return &saved, nil
}

func validateProfile(p models.Profile) error {
	if p.ProfessionalEmail != "" {
		if err := validateEmail("professional email", p.ProfessionalEmail); err != nil {
			return err
		}
	}
	if err := validateLength("description", p.Description, maxDescription); err != nil {
		return err
	}
	fields := []struct{ name, value string }{
		{"name", p.Name},
		{"surname", p.Surname},
		{"qualities", p.Qualities},
		{"defects", p.Defects},
		{"phone", p.Phone},
		{"availability", p.Availability},
	}
	for _, f := range fields {
		if err := validateLength(f.name, f.value, maxProfileField); err != nil {
			return err
		}
	}
	return nil
}

// profileColumns maps a profile onto its table columns, pseudo excluded.
func profileColumns(p models.Profile) map[string]any {
	return map[string]any{
		"name":               p.Name,
		"surname":            p.Surname,
		"description":        p.Description,
		"qualities":          p.Qualities,
		"defects":            p.Defects,
		"professional_email": p.ProfessionalEmail,
		"phone":              p.Phone,
		"availability":       p.Availability,
	}
}
