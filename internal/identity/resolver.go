package identity

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/dariovega/vidora-backend/internal/users"
	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
	pkgerrors "github.com/dariovega/vidora-backend/pkg/errors"
	"github.com/dariovega/vidora-backend/pkg/logger"
)

// MatchType records which resolution step produced (or failed to produce) a
// user. The *_error values mark a store failure at that step; the chain keeps
// going, so an error never surfaces past the resolver.
type MatchType string

const (
	MatchError                MatchType = "error"
	MatchExact                MatchType = "exact"
	MatchCaseInsensitiveError MatchType = "case_insensitive_error"
	MatchCaseInsensitive      MatchType = "case_insensitive"
	MatchAliasError           MatchType = "alias_error"
	MatchAlias                MatchType = "alias"
	MatchRemap                MatchType = "remap"
	MatchNone                 MatchType = "none"
)

// Resolver maps processor-reported customer emails onto internal users via an
// ordered fallback chain: exact match, case-insensitive match, alias table,
// and finally the operator-maintained remap. A total miss parks the event in
// the unmatched-email queue and yields no user, never an error.
type Resolver struct {
	users     users.Repository
	repo      Repository
	remap     map[string]string
	logg      *logger.Logger
	unmatched UnmatchedCounter
}

// UnmatchedCounter is satisfied by the webhook metrics collector.
type UnmatchedCounter interface {
	IncUnmatched()
}

// NewResolver builds a resolver. remapJSON is an optional JSON object of
// webhook-email -> account-email entries maintained for manually reconciled
// mismatches; keys are matched case-insensitively.
func NewResolver(userRepo users.Repository, repo Repository, remapJSON string, logg *logger.Logger, counter UnmatchedCounter) (*Resolver, error) {
	if userRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity repo required")
	}
	remap := map[string]string{}
	if strings.TrimSpace(remapJSON) != "" {
		raw := map[string]string{}
		if err := json.Unmarshal([]byte(remapJSON), &raw); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode email remap")
		}
		for from, to := range raw {
			remap[strings.ToLower(strings.TrimSpace(from))] = strings.TrimSpace(to)
		}
	}
	return &Resolver{
		users:     userRepo,
		repo:      repo,
		remap:     remap,
		logg:      logg,
		unmatched: counter,
	}, nil
}

// Resolve runs the fallback chain and returns the matched user plus the step
// that matched. Store errors at any step are logged and treated as a miss at
// that step.
func (r *Resolver) Resolve(ctx context.Context, email string, eventType string) (*models.User, MatchType) {
	email = strings.TrimSpace(email)
	lctx := r.withFields(ctx, email, eventType)
	if email == "" {
		r.log(lctx, MatchNone, nil)
		return nil, MatchNone
	}

	user, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		r.logErr(lctx, MatchError, err)
	} else if user != nil {
		r.log(lctx, MatchExact, user)
		return user, MatchExact
	}

	user, err = r.users.FindByEmailFold(ctx, email)
	if err != nil {
		r.logErr(lctx, MatchCaseInsensitiveError, err)
	} else if user != nil {
		r.log(lctx, MatchCaseInsensitive, user)
		return user, MatchCaseInsensitive
	}

	alias, err := r.repo.FindAlias(ctx, email)
	if err != nil {
		r.logErr(lctx, MatchAliasError, err)
	} else if alias != nil {
		user, err = r.users.FindByID(ctx, alias.UserID)
		if err != nil {
			r.logErr(lctx, MatchAliasError, err)
		} else if user != nil {
			r.log(lctx, MatchAlias, user)
			return user, MatchAlias
		}
	}

	if mapped, ok := r.remap[strings.ToLower(email)]; ok {
		user, err = r.users.FindByEmailFold(ctx, mapped)
		if err != nil {
			r.logErr(lctx, MatchError, err)
		} else if user != nil {
			r.log(lctx, MatchRemap, user)
			return user, MatchRemap
		}
	}

	r.log(lctx, MatchNone, nil)
	return nil, MatchNone
}

// ResolveOrPark runs Resolve and, on a total miss, appends the raw payload to
// the unmatched-email queue with status pending. A failure to park is logged
// and swallowed; the processor retrying would not change the outcome.
func (r *Resolver) ResolveOrPark(ctx context.Context, email, eventType string, payload json.RawMessage) (*models.User, MatchType) {
	user, match := r.Resolve(ctx, email, eventType)
	if user != nil {
		return user, match
	}

	entry := &models.UnmatchedEmailLog{
		ID:             uuid.New(),
		Email:          strings.TrimSpace(email),
		EventType:      eventType,
		WebhookPayload: payload,
		Status:         enums.UnmatchedEmailStatusPending,
	}
	if err := r.repo.CreateUnmatched(ctx, entry); err != nil {
		if r.logg != nil {
			r.logg.Error(r.withFields(ctx, email, eventType), "failed to park unmatched email", err)
		}
		return nil, match
	}
	if r.unmatched != nil {
		r.unmatched.IncUnmatched()
	}
	if r.logg != nil {
		r.logg.Warn(r.withFields(ctx, email, eventType), "webhook email parked for manual reconciliation")
	}
	return nil, match
}

func (r *Resolver) withFields(ctx context.Context, email, eventType string) context.Context {
	if r.logg == nil {
		return ctx
	}
	return r.logg.WithFields(ctx, map[string]any{
		"search_email": email,
		"event_type":   eventType,
	})
}

func (r *Resolver) log(ctx context.Context, match MatchType, user *models.User) {
	if r.logg == nil {
		return
	}
	fields := map[string]any{"match_type": string(match)}
	if user != nil {
		fields["matched_user_id"] = user.ID.String()
		fields["matched_email"] = user.Email
	}
	r.logg.Info(r.logg.WithFields(ctx, fields), "identity resolution step")
}

func (r *Resolver) logErr(ctx context.Context, match MatchType, err error) {
	if r.logg == nil {
		return
	}
	r.logg.Error(r.logg.WithField(ctx, "match_type", string(match)), "identity resolution step failed", err)
}
