package sqlite

import (
	"context"

	"github.com/revittco/toolrt/internal/store"
)

// ListAccessPolicies returns policy records visible to the given context
// (a workspaceId, actorId, or clientId) plus records with an empty
// context, ordered by priority and then by match length, both
// descending. The policy engine re-sorts them by specificity itself.
func (d *DB) ListAccessPolicies(ctx context.Context, callContext string) ([]store.PolicyRecord, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT id, match, context, decision, priority
		FROM policy_records WHERE context = ? OR context = ''
		ORDER BY priority DESC, length(match) DESC`, callContext)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.PolicyRecord
	for rows.Next() {
		var p store.PolicyRecord
		if err := rows.Scan(&p.ID, &p.Match, &p.Context, &p.Decision, &p.Priority); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
