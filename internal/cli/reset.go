package cli

import (
	"context"
	"fmt"

	"github.com/isdelr/discordin/internal/database"
	"github.com/isdelr/discordin/internal/models"
	"github.com/isdelr/discordin/internal/services"
	"github.com/spf13/cobra"
)

func newResetDBCmd(opts *options) *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Drop every table and recreate the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := resetDB(ctx, opts.cfg.DBConfig.Path, opts.cfg.AppConfig.MinimumAge, dev); err != nil {
				return err
			}
			if dev {
				fmt.Fprintln(cmd.OutOrStdout(), "Database reset with default values.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Database reset without default values.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dev, "dev", "d", false, "insert demo members after the reset")
	return cmd
}

func resetDB(ctx context.Context, path string, minimumAge int, dev bool) error {
	db, err := database.New(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Reset(ctx, db); err != nil {
		return err
	}
	if !dev {
		return nil
	}

	events := services.NewEventService(db, nil)
	profiles := services.NewProfileService(db, events)
	users := services.NewUserService(db, profiles, events, minimumAge)
	if err := seedDemoData(ctx, users, profiles); err != nil {
		return err
	}
	bamboos := services.NewBambooService(db, events)
	return seedDemoBamboo(ctx, bamboos, services.NewMessageService(db, bamboos, nil))
}

var demoMembers = []struct {
	input   services.RegisterInput
	profile models.Profile
	friends []string
}{
	{
		input: services.RegisterInput{Pseudo: "admin", Email: "admin@discordin.dev", Password: "admin123", BirthDate: "1990-01-01"},
		profile: models.Profile{
			Name:        "Ada",
			Surname:     "Min",
			Description: "Keeps the lights on.",
		},
	},
	{
		input: services.RegisterInput{Pseudo: "alice", Email: "alice@discordin.dev", Password: "alice123", BirthDate: "2005-04-12"},
		profile: models.Profile{
			Name:              "Alice",
			Surname:           "Martin",
			Description:       "High school student who loves chemistry.",
			Qualities:         "Curious, patient",
			Defects:           "Talks too much",
			ProfessionalEmail: "alice.martin@school.example.com",
			Availability:      "Weekends",
		},
		friends: []string{"bob"},
	},
	{
		input:   services.RegisterInput{Pseudo: "bob", Email: "bob@discordin.dev", Password: "bob12345", BirthDate: "2006-09-30"},
		friends: []string{"alice"},
	},
}

func seedDemoData(ctx context.Context, users services.UserServiceProvider, profiles services.ProfileServiceProvider) error {
	for _, m := range demoMembers {
		if _, err := users.Register(ctx, m.input); err != nil {
			return fmt.Errorf("seed %s: %w", m.input.Pseudo, err)
		}
		if m.profile != (models.Profile{}) {
			p := m.profile
			p.Pseudo = m.input.Pseudo
			if _, err := profiles.SaveProfile(ctx, p); err != nil {
				return fmt.Errorf("seed profile of %s: %w", m.input.Pseudo, err)
			}
		}
	}
	for _, m := range demoMembers {
		for _, friend := range m.friends {
			if err := users.AddFriend(ctx, m.input.Pseudo, friend); err != nil {
				return fmt.Errorf("seed friends of %s: %w", m.input.Pseudo, err)
			}
		}
	}
	return nil
}

// seedDemoBamboo plants a bamboo owned by alice where bob already said hello.
func seedDemoBamboo(ctx context.Context, bamboos services.BambooServiceProvider, messages services.MessageServiceProvider) error {
	bamboo, err := bamboos.CreateBamboo(ctx, "alice", "Chemistry club")
	if err != nil {
		return fmt.Errorf("seed bamboo: %w", err)
	}
	if err := bamboos.JoinBamboo(ctx, bamboo.ID, "bob"); err != nil {
		return fmt.Errorf("seed bamboo members: %w", err)
	}
	branches, err := bamboos.ListBranches(ctx, bamboo.ID)
	if err != nil {
		return fmt.Errorf("seed bamboo branches: %w", err)
	}
	if _, err := messages.PostMessage(ctx, "bob", branches[0].ID, "Hi everyone, who is up for the lab on Saturday?", nil); err != nil {
		return fmt.Errorf("seed message: %w", err)
	}
	return nil
}
