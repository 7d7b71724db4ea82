package ddl

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// NamingPolicy derives the identity the database would assign to a
// constraint declared without an explicit name. It returns "" when the
// constraint kind has no derived name under the policy.
type NamingPolicy func(relation string, columns []string, kind pg_query.ConstrType) string

// PostgresNaming follows the names PostgreSQL generates for unnamed
// constraints (e.g. users_pkey, users_email_key, orders_user_id_fkey).
// Identifier truncation to NAMEDATALEN is not modelled.
func PostgresNaming(relation string, columns []string, kind pg_query.ConstrType) string {
	switch kind {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		return relation + "_pkey"
	case pg_query.ConstrType_CONSTR_UNIQUE:
		return joinName(relation, columns, "key")
	case pg_query.ConstrType_CONSTR_FOREIGN:
		return joinName(relation, columns, "fkey")
	case pg_query.ConstrType_CONSTR_EXCLUSION:
		return joinName(relation, columns, "excl")
	case pg_query.ConstrType_CONSTR_CHECK:
		if len(columns) > 0 {
			return joinName(relation, columns[:1], "check")
		}
		return relation + "_check"
	case pg_query.ConstrType_CONSTR_NOTNULL:
		if len(columns) > 0 {
			return joinName(relation, columns[:1], "not_null")
		}
		return ""
	default:
		return ""
	}
}

var legacySuffixes = map[pg_query.ConstrType]string{
	pg_query.ConstrType_CONSTR_PRIMARY:   "pkey",
	pg_query.ConstrType_CONSTR_UNIQUE:    "key",
	pg_query.ConstrType_CONSTR_EXCLUSION: "excl",
	pg_query.ConstrType_CONSTR_IDENTITY:  "idx",
	pg_query.ConstrType_CONSTR_FOREIGN:   "fkey",
	pg_query.ConstrType_CONSTR_CHECK:     "check",
}

// LegacyNaming reproduces the relation_column_suffix scheme of older
// aggregator releases, including the "None" suffix for kinds without one.
func LegacyNaming(relation string, columns []string, kind pg_query.ConstrType) string {
	suffix, ok := legacySuffixes[kind]
	if !ok {
		suffix = "None"
	}
	return joinName(relation, columns, suffix)
}

// NamingPolicyByName returns a built-in policy: "postgres" (default when
// empty) or "legacy".
func NamingPolicyByName(name string) (NamingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "postgres":
		return PostgresNaming, nil
	case "legacy":
		return LegacyNaming, nil
	default:
		return nil, fmt.Errorf("ddl: unknown naming policy %q", name)
	}
}

// IndexName is the name PostgreSQL picks for CREATE INDEX without a name.
func IndexName(relation string, columns []string) string {
	return joinName(relation, columns, "idx")
}

func joinName(relation string, columns []string, suffix string) string {
	parts := make([]string, 0, len(columns)+2)
	parts = append(parts, relation)
	parts = append(parts, columns...)
	parts = append(parts, suffix)
	return strings.Join(parts, "_")
}
