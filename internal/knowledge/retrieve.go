// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// QueryOptions holds parameters for fact queries.
type QueryOptions struct {
	// Query is a full-text search over fact objects.
	Query string

	// Subject filters by subject URI, or by its local name under the
	// ontology namespace (e.g. "gcn31119").
	Subject string

	// Predicate filters by predicate local name (e.g. "integral_ul").
	Predicate string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Subject == "" && q.Predicate == ""
}

// QueryResult is a stored fact with the run that last wrote it.
type QueryResult struct {
	types.Fact
	RunID string `json:"run_id" yaml:"run_id"`
}

// Retrieve queries the stored facts. Full-text results are ranked by
// relevance; filter-only results are ordered by subject, predicate and
// object.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != "" && s.fts
	)

	switch {
	case useFTS:
		qb.WriteString(
			`SELECT f.subject, f.predicate, f.object, f.kind, f.run_id
			FROM facts_fts
			JOIN facts f ON f.rowid = facts_fts.rowid
			WHERE facts_fts MATCH ?`)
		args = append(args, ftsQuery(opts.Query))
	case opts.Query != "":
		qb.WriteString(
			`SELECT f.subject, f.predicate, f.object, f.kind, f.run_id
			FROM facts f
			WHERE f.object LIKE ?`)
		args = append(args, "%"+opts.Query+"%")
	default:
		qb.WriteString(
			`SELECT f.subject, f.predicate, f.object, f.kind, f.run_id
			FROM facts f
			WHERE 1=1`)
	}

	if opts.Subject != "" {
		subject := opts.Subject
		if !strings.Contains(subject, ":") {
			subject = types.OntologyNS + subject
		}
		qb.WriteString(` AND f.subject = ?`)
		args = append(args, subject)
	}
	if opts.Predicate != "" {
		qb.WriteString(` AND f.predicate = ?`)
		args = append(args, strings.TrimPrefix(opts.Predicate, types.OntologyPrefix+":"))
	}

	if useFTS {
		qb.WriteString(` ORDER BY facts_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY f.subject, f.predicate, f.object`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying facts")
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr   QueryResult
			kind string
		)
		if err := rows.Scan(&qr.Subject, &qr.Predicate, &qr.Object.Lexical, &kind, &qr.RunID); err != nil {
			return nil, errors.Wrap(err, "scanning row")
		}
		qr.Object.Kind = types.LiteralKind(kind)
		results = append(results, qr)
	}
	return results, rows.Err()
}

// ftsQuery quotes each term so names such as IceCube-211116A or CHIME/FRB
// are matched as phrases instead of parsed as FTS5 operators.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
