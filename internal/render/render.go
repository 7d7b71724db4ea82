// Package render turns parser nodes back into SQL text.
package render

import (
	"fmt"
	"io"

	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// Statement renders a single statement node as SQL, without a terminator.
func Statement(node *pg_query.Node) (string, error) {
	sql, err := pg_query.Deparse(&pg_query.ParseResult{
		Stmts: []*pg_query.RawStmt{{Stmt: node}},
	})
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return sql, nil
}

// Write renders each node to w as "<sql>;" followed by a blank line.
func Write(w io.Writer, nodes []*pg_query.Node) error {
	sqls := make([]string, 0, len(nodes))
	for _, node := range nodes {
		sql, err := Statement(node)
		if err != nil {
			return err
		}
		sqls = append(sqls, sql)
	}
	return WriteSQL(w, sqls)
}

// WriteSQL writes already rendered statements in the format of Write.
func WriteSQL(w io.Writer, sqls []string) error {
	for _, sql := range sqls {
		if _, err := io.WriteString(w, sql+";\n\n"); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
	return nil
}
