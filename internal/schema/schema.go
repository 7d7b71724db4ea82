// Package schema replays DDL statements into per-kind repositories of live
// object definitions.
//
// A Schema owns one Repository per ddl.Kind. Execute routes each classified
// statement to the right repository:
//
//   - CREATE statements call Repository.Create
//   - ALTER statements call Repository.Alter on the kind named by the statement
//   - DROP statements call Repository.Drop on the kind named by the statement
//   - UPDATE and DELETE are logged and skipped
//
// Structural problems (duplicate names, missing objects, missing columns or
// constraints, malformed DROP references) are returned as errors and are
// meant to abort the replay. Statements the replay cannot model are returned
// to the caller as captured *ddl.Unsupported values instead.
//
// Statements must be executed strictly in migration order; a Schema is not
// safe for concurrent use.
package schema

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/SitadziMado/migration-aggregator/internal/ddl"
)

// Option configures a Schema.
type Option func(*Schema)

// WithNaming sets the policy used to derive names of unnamed constraints.
func WithNaming(p ddl.NamingPolicy) Option {
	return func(s *Schema) {
		if p != nil {
			s.naming = p
		}
	}
}

// WithLogger sets the logger used for diagnostic notes.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Schema) {
		if l != nil {
			s.log = l
		}
	}
}

// Schema owns one Repository per object kind.
type Schema struct {
	repos  map[ddl.Kind]*Repository
	naming ddl.NamingPolicy
	log    logrus.FieldLogger
}

// New returns an empty Schema.
func New(opts ...Option) *Schema {
	s := &Schema{
		naming: ddl.PostgresNaming,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.repos = make(map[ddl.Kind]*Repository, len(ddl.Kinds())+1)
	for _, k := range ddl.Kinds() {
		s.repos[k] = NewRepository(k, s.naming)
	}
	// Never populated: ALTER and DROP against unknown kinds find nothing.
	s.repos[ddl.KindUnknown] = NewRepository(ddl.KindUnknown, s.naming)
	return s
}

// Repository returns the repository of kind.
func (s *Schema) Repository(kind ddl.Kind) *Repository {
	if r, ok := s.repos[kind]; ok {
		return r
	}
	return s.repos[ddl.KindUnknown]
}

// Execute applies stmt. It returns a non-nil *ddl.Unsupported when stmt, or
// part of it, could not be modelled; the supported part has been applied.
// A non-nil error is structural and should abort the replay.
func (s *Schema) Execute(stmt ddl.Statement) (*ddl.Unsupported, error) {
	var err error
	switch st := stmt.(type) {
	case *ddl.CreateTable:
		err = s.repos[ddl.KindTable].Create(st)
	case *ddl.CreateType:
		err = s.repos[ddl.KindType].Create(st)
	case *ddl.CreateIndex:
		err = s.createIndex(st)
	case *ddl.CreateFunction:
		err = s.repos[ddl.KindFunction].Create(st)
	case *ddl.CreateEnum:
		err = s.repos[ddl.KindEnum].Create(st)
	case *ddl.CreateTrigger:
		err = s.repos[ddl.KindTrigger].Create(st)
	case *ddl.CreateSchema:
		err = s.repos[ddl.KindSchema].Create(st)
	case *ddl.AlterTable:
		err = s.Repository(st.Target()).Alter(st)
	case *ddl.Drop:
		err = s.drop(st)
	case *ddl.Ignored:
		s.log.WithField("statement", st.Verb).Infof("non-DDL %s statement is deliberately ignored", st.Verb)
	case *ddl.Unsupported:
		return st, nil
	default:
		return nil, fmt.Errorf("schema: unhandled statement type %T", stmt)
	}

	if ue, ok := IsUnsupported(err); ok {
		return ue.Statement, nil
	}
	return nil, err
}

// createIndex stores an index. A generated name that is already taken gets
// the next free numeric suffix.
func (s *Schema) createIndex(st *ddl.CreateIndex) error {
	repo := s.repos[ddl.KindIndex]
	if st.Implicit() {
		for i := 1; repo.Has(st.Name()); i++ {
			st.SetSuffix(strconv.Itoa(i))
		}
	}
	return repo.Create(st)
}

// drop removes each referenced object. DROP TYPE also reaches enums, which
// live in their own repository.
func (s *Schema) drop(st *ddl.Drop) error {
	names, err := st.Names()
	if err != nil {
		return err
	}
	target := st.Target()
	for _, name := range names {
		repo := s.Repository(target)
		if target == ddl.KindType && !repo.Has(name) && s.repos[ddl.KindEnum].Has(name) {
			repo = s.repos[ddl.KindEnum]
		}
		if err := repo.Drop([]ddl.QualifiedName{name}, st.MissingOK()); err != nil {
			return err
		}
	}
	return nil
}
