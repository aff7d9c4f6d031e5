package schema

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/dariovega/vidora-backend/pkg/db"
	pkgerrors "github.com/dariovega/vidora-backend/pkg/errors"
	"github.com/dariovega/vidora-backend/pkg/logger"
)

// SubscriptionIDCandidates lists the column names the subscriptions table has
// carried for the external subscription id, newest first. A rename migration
// may be mid-rollout across deployments, so lookups tolerate either shape.
var SubscriptionIDCandidates = []string{
	"creem_subscription_id",
	"provider_subscription_id",
	"external_subscription_id",
}

// ColumnProbe resolves which of several candidate column names the current
// schema exposes for a logical field. The first successful probe is cached
// for the probe's lifetime; failures are not cached, so a later call retries.
type ColumnProbe struct {
	conn       *gorm.DB
	logg       *logger.Logger
	table      string
	candidates []string

	mu       sync.Mutex
	resolved string
}

// NewColumnProbe builds a probe for the given table and ordered candidates.
// When pinned is non-empty the probe is preresolved and never touches the
// database, letting deployments (and tests) pin a schema shape via config.
func NewColumnProbe(conn *gorm.DB, logg *logger.Logger, table string, candidates []string, pinned string) (*ColumnProbe, error) {
	if conn == nil && pinned == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db connection required")
	}
	if table == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "table name required")
	}
	if len(candidates) == 0 && pinned == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "at least one candidate column required")
	}
	return &ColumnProbe{
		conn:       conn,
		logg:       logg,
		table:      table,
		candidates: candidates,
		resolved:   pinned,
	}, nil
}

// NewSubscriptionIDProbe builds the probe for the subscriptions external-id
// column.
func NewSubscriptionIDProbe(conn *gorm.DB, logg *logger.Logger, pinned string) (*ColumnProbe, error) {
	return NewColumnProbe(conn, logg, "subscriptions", SubscriptionIDCandidates, pinned)
}

// Resolve returns the column name the current schema exposes. Candidates are
// probed in order with a cheap read; a missing-column error advances to the
// next candidate, any other error is fatal and propagated.
func (p *ColumnProbe) Resolve(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved != "" {
		return p.resolved, nil
	}

	for _, candidate := range p.candidates {
		err := p.probe(ctx, candidate)
		if err == nil {
			p.resolved = candidate
			if p.logg != nil {
				lctx := p.logg.WithFields(ctx, map[string]any{
					"table":  p.table,
					"column": candidate,
				})
				p.logg.Info(lctx, "schema column resolved")
			}
			return candidate, nil
		}
		if db.IsUndefinedColumn(err) {
			if p.logg != nil {
				lctx := p.logg.WithFields(ctx, map[string]any{
					"table":  p.table,
					"column": candidate,
				})
				p.logg.Warn(lctx, "schema column missing, trying next candidate")
			}
			continue
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("probe column %s.%s", p.table, candidate))
	}

	return "", pkgerrors.New(pkgerrors.CodeInternal,
		fmt.Sprintf("no candidate column found on %s (tried %d)", p.table, len(p.candidates)))
}

func (p *ColumnProbe) probe(ctx context.Context, column string) error {
	rows, err := p.conn.WithContext(ctx).
		Raw(fmt.Sprintf("SELECT %s FROM %s LIMIT 1", column, p.table)).
		Rows()
	if err != nil {
		return err
	}
	return rows.Close()
}
