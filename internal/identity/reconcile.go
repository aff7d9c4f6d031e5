package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariovega/vidora-backend/internal/users"
	"github.com/dariovega/vidora-backend/pkg/db"
	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
	pkgerrors "github.com/dariovega/vidora-backend/pkg/errors"
	"github.com/dariovega/vidora-backend/pkg/logger"
	"github.com/dariovega/vidora-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReconcileService backs the operator endpoints for the unmatched-email
// queue: listing parked events and attaching them to a user.
type ReconcileService struct {
	repo     Repository
	users    users.Repository
	txRunner txRunner
	logg     *logger.Logger
}

func NewReconcileService(repo Repository, userRepo users.Repository, runner txRunner, logg *logger.Logger) (*ReconcileService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity repo required")
	}
	if userRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if runner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &ReconcileService{repo: repo, users: userRepo, txRunner: runner, logg: logg}, nil
}

// ListUnmatchedInput filters the parked-event queue.
type ListUnmatchedInput struct {
	Status string
	Params pagination.Params
}

// ListUnmatched pages the queue, newest first.
func (s *ReconcileService) ListUnmatched(ctx context.Context, input ListUnmatchedInput) ([]models.UnmatchedEmailLog, *pagination.Cursor, error) {
	query := ListUnmatchedQuery{Limit: input.Params.Limit}

	if trimmed := strings.TrimSpace(input.Status); trimmed != "" {
		status, err := enums.ParseUnmatchedEmailStatus(trimmed)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor

	return s.repo.ListUnmatched(ctx, query)
}

// ResolveInput attaches a parked event to a user. AddAlias additionally
// records the parked email as an alias so future deliveries resolve
// automatically.
type ResolveInput struct {
	EntryID  uuid.UUID
	UserID   uuid.UUID
	AddAlias bool
}

// Resolve marks the entry resolved. Resolving an already-resolved entry is a
// state conflict; re-adding an existing alias is not an error.
func (s *ReconcileService) Resolve(ctx context.Context, input ResolveInput) (*models.UnmatchedEmailLog, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var resolved *models.UnmatchedEmailLog
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		entry, err := repo.FindUnmatchedByID(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unmatched email entry not found")
		}
		if entry.Status == enums.UnmatchedEmailStatusResolved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "entry already resolved")
		}

		user, err := s.users.WithTx(tx).FindByID(ctx, input.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "target user not found")
		}

		entry.Status = enums.UnmatchedEmailStatusResolved
		userID := input.UserID
		entry.ResolvedUserID = &userID
		if err := repo.UpdateUnmatched(ctx, entry); err != nil {
			return err
		}

		if input.AddAlias && entry.Email != "" {
			alias := &models.EmailAlias{
				ID:         uuid.New(),
				AliasEmail: strings.ToLower(entry.Email),
				UserID:     input.UserID,
			}
			if err := repo.CreateAlias(ctx, alias); err != nil {
				if !db.IsUniqueViolation(err, "") {
					return err
				}
				if s.logg != nil {
					s.logg.Info(s.logg.WithField(ctx, "alias_email", alias.AliasEmail),
						"alias already recorded, keeping existing mapping")
				}
			}
		}

		resolved = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"entry_id":         input.EntryID.String(),
			"resolved_user_id": input.UserID.String(),
		})
		s.logg.Info(lctx, "unmatched email resolved")
	}
	return resolved, nil
}

// Ignore marks the entry ignored so it drops out of the pending queue.
func (s *ReconcileService) Ignore(ctx context.Context, entryID uuid.UUID) (*models.UnmatchedEmailLog, error) {
	if entryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}

	var ignored *models.UnmatchedEmailLog
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindUnmatchedByID(ctx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unmatched email entry not found")
		}
		if entry.Status == enums.UnmatchedEmailStatusResolved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "entry already resolved")
		}
		entry.Status = enums.UnmatchedEmailStatusIgnored
		if err := repo.UpdateUnmatched(ctx, entry); err != nil {
			return err
		}
		ignored = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ignored, nil
}
