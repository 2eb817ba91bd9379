package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/discordin/internal/database"
	"github.com/isdelr/discordin/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultBranchName is the branch every new bamboo starts with.
const DefaultBranchName = "general"

// BambooServiceProvider defines the interface for bamboo services.
type BambooServiceProvider interface {
	CreateBamboo(ctx context.Context, owner, name string) (models.Bamboo, error)
	GetBamboo(ctx context.Context, id string) (models.Bamboo, error)
	ListBamboos(ctx context.Context) ([]models.Bamboo, error)
	JoinBamboo(ctx context.Context, id, pseudo string) error
	LeaveBamboo(ctx context.Context, id, pseudo string) error
	RenameBamboo(ctx context.Context, id, pseudo, name string) (models.Bamboo, error)
	CreateBranch(ctx context.Context, bambooID, pseudo, name string) (models.Branch, error)
	GetBranch(ctx context.Context, id string) (models.Branch, error)
	ListBranches(ctx context.Context, bambooID string) ([]models.Branch, error)
	MemberBranch(ctx context.Context, branchID, pseudo string) (models.Branch, error)
}

// BambooService provides business logic for bamboos and their branches.
type BambooService struct {
	db       *sql.DB
	bamboos  *database.Table
	branches *database.Table
	events   EventServiceProvider
	now      func() time.Time
}

// NewBambooService creates a new BambooService.
func NewBambooService(db *sql.DB, events EventServiceProvider) *BambooService {
	return &BambooService{
		db:       db,
		bamboos:  database.NewTable(db, "bamboos", "id", "name", "owner", "created_at"),
		branches: database.NewTable(db, "branches", "id", "bamboo_id", "name", "created_at"),
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateBamboo creates a bamboo owned by owner, with owner as its first
// member and a default branch.
func (s *BambooService) CreateBamboo(ctx context.Context, owner, name string) (models.Bamboo, error) {
	name, err := validateName("name", name)
	if err != nil {
		return models.Bamboo{}, err
	}
	if err := s.userExists(ctx, owner); err != nil {
		return models.Bamboo{}, err
	}

	now := s.now()
	bamboo := models.Bamboo{
		ID:        uuid.New().String(),
		Name:      name,
		Owner:     owner,
		Members:   []string{owner},
		CreatedAt: now,
	}

	err = s.bamboos.Transact(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO bamboos (id, name, owner, created_at) VALUES (?, ?, ?, ?)",
			bamboo.ID, bamboo.Name, bamboo.Owner, bamboo.CreatedAt); err != nil {
			return fmt.Errorf("insert bamboo: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO bamboo_members (bamboo_id, pseudo, joined_at) VALUES (?, ?, ?)",
			bamboo.ID, owner, now); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO branches (id, bamboo_id, name, created_at) VALUES (?, ?, ?, ?)",
			uuid.New().String(), bamboo.ID, DefaultBranchName, now); err != nil {
			return fmt.Errorf("insert default branch: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Bamboo{}, err
	}

	s.recordEvent(ctx, EventBambooCreate, fmt.Sprintf("%s created the bamboo %s.", owner, bamboo.Name), owner)
	return bamboo, nil
}

// GetBamboo retrieves a bamboo and its members, ordered by join date.
func (s *BambooService) GetBamboo(ctx context.Context, id string) (models.Bamboo, error) {
	var b models.Bamboo
	err := s.db.QueryRowContext(ctx, "SELECT id, name, owner, created_at FROM bamboos WHERE id = ?", id).
		Scan(&b.ID, &b.Name, &b.Owner, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Bamboo{}, ErrBambooNotFound
		}
		return models.Bamboo{}, err
	}

	members, err := s.members(ctx, "WHERE bamboo_id = ?", id)
	if err != nil {
		return models.Bamboo{}, err
	}
	b.Members = members[b.ID]
	if b.Members == nil {
		b.Members = []string{}
	}
	return b, nil
}

// ListBamboos returns every bamboo ordered by name.
func (s *BambooService) ListBamboos(ctx context.Context) ([]models.Bamboo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, owner, created_at FROM bamboos ORDER BY name COLLATE NOCASE, created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bamboos := []models.Bamboo{}
	for rows.Next() {
		var b models.Bamboo
		if err := rows.Scan(&b.ID, &b.Name, &b.Owner, &b.CreatedAt); err != nil {
			return nil, err
		}
		bamboos = append(bamboos, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	members, err := s.members(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range bamboos {
		bamboos[i].Members = members[bamboos[i].ID]
		if bamboos[i].Members == nil {
			bamboos[i].Members = []string{}
		}
	}
	return bamboos, nil
}

// members maps bamboo ids to their member pseudos.
func (s *BambooService) members(ctx context.Context, where string, args ...any) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT bamboo_id, pseudo FROM bamboo_members "+where+" ORDER BY joined_at, pseudo", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := map[string][]string{}
	for rows.Next() {
		var bambooID, pseudo string
		if err := rows.Scan(&bambooID, &pseudo); err != nil {
			return nil, err
		}
		members[bambooID] = append(members[bambooID], pseudo)
	}
	return members, rows.Err()
}

// JoinBamboo adds pseudo to the members of the bamboo. Joining twice is a no-op.
func (s *BambooService) JoinBamboo(ctx context.Context, id, pseudo string) error {
	bamboo, err := s.GetBamboo(ctx, id)
	if err != nil {
		return err
	}
	if bamboo.IsMember(pseudo) {
		return nil
	}
	if err := s.userExists(ctx, pseudo); err != nil {
		return err
	}

	err = s.bamboos.Transact(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO bamboo_members (bamboo_id, pseudo, joined_at) VALUES (?, ?, ?)", id, pseudo, s.now())
		return err
	})
	if err != nil {
		return fmt.Errorf("join bamboo: %w", err)
	}

	s.recordEvent(ctx, EventBambooJoin, fmt.Sprintf("%s joined the bamboo %s.", pseudo, bamboo.Name), pseudo)
	return nil
}

// LeaveBamboo removes pseudo from the members of the bamboo. The owner cannot leave.
func (s *BambooService) LeaveBamboo(ctx context.Context, id, pseudo string) error {
	bamboo, err := s.GetBamboo(ctx, id)
	if err != nil {
		return err
	}
	if bamboo.Owner == pseudo {
		return invalid("bamboo", "the owner cannot leave their own bamboo")
	}
	if !bamboo.IsMember(pseudo) {
		return nil
	}

	return s.bamboos.Transact(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM bamboo_members WHERE bamboo_id = ? AND pseudo = ?", id, pseudo); err != nil {
			return fmt.Errorf("leave bamboo: %w", err)
		}
		return nil
	})
}

// RenameBamboo changes the name of the bamboo. Only its owner may rename it.
func (s *BambooService) RenameBamboo(ctx context.Context, id, pseudo, name string) (models.Bamboo, error) {
	name, err := validateName("name", name)
	if err != nil {
		return models.Bamboo{}, err
	}
	bamboo, err := s.GetBamboo(ctx, id)
	if err != nil {
		return models.Bamboo{}, err
	}
	if bamboo.Owner != pseudo {
		return models.Bamboo{}, ErrForbidden
	}

	if err := s.bamboos.Update(ctx, id, map[string]any{"name": name}); err != nil {
		return models.Bamboo{}, fmt.Errorf("rename bamboo: %w", err)
	}
	bamboo.Name = name
	return bamboo, nil
}

// CreateBranch adds a branch to the bamboo. Only its owner may add branches.
func (s *BambooService) CreateBranch(ctx context.Context, bambooID, pseudo, name string) (models.Branch, error) {
	name, err := validateName("name", name)
	if err != nil {
		return models.Branch{}, err
	}
	bamboo, err := s.GetBamboo(ctx, bambooID)
	if err != nil {
		return models.Branch{}, err
	}
	if bamboo.Owner != pseudo {
		return models.Branch{}, ErrForbidden
	}

	branch := models.Branch{
		ID:        uuid.New().String(),
		BambooID:  bambooID,
		Name:      name,
		CreatedAt: s.now(),
	}
	err = s.branches.Create(ctx, map[string]any{
		"id":         branch.ID,
		"bamboo_id":  branch.BambooID,
		"name":       branch.Name,
		"created_at": branch.CreatedAt,
	})
	if err != nil {
		return models.Branch{}, err
	}
	return branch, nil
}

// GetBranch retrieves a branch by its id.
func (s *BambooService) GetBranch(ctx context.Context, id string) (models.Branch, error) {
	var b models.Branch
	err := s.db.QueryRowContext(ctx, "SELECT id, bamboo_id, name, created_at FROM branches WHERE id = ?", id).
		Scan(&b.ID, &b.BambooID, &b.Name, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Branch{}, ErrBranchNotFound
		}
		return models.Branch{}, err
	}
	return b, nil
}

// ListBranches returns the branches of a bamboo, oldest first.
func (s *BambooService) ListBranches(ctx context.Context, bambooID string) ([]models.Branch, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, bamboo_id, name, created_at FROM branches WHERE bamboo_id = ? ORDER BY created_at, name", bambooID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := []models.Branch{}
	for rows.Next() {
		var b models.Branch
		if err := rows.Scan(&b.ID, &b.BambooID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// MemberBranch retrieves a branch that pseudo may read and write in.
// It returns ErrNotMember when pseudo does not belong to the bamboo.
func (s *BambooService) MemberBranch(ctx context.Context, branchID, pseudo string) (models.Branch, error) {
	branch, err := s.GetBranch(ctx, branchID)
	if err != nil {
		return models.Branch{}, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bamboo_members WHERE bamboo_id = ? AND pseudo = ?", branch.BambooID, pseudo).Scan(&n)
	if err != nil {
		return models.Branch{}, err
	}
	if n == 0 {
		return models.Branch{}, ErrNotMember
	}
	return branch, nil
}

func (s *BambooService) userExists(ctx context.Context, pseudo string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE pseudo = ?", pseudo).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *BambooService) recordEvent(ctx context.Context, eventType, message, pseudo string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, eventType, "info", message, &pseudo); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Str("pseudo", pseudo).Msg("Failed to record event")
	}
}
