package schema

import (
	"errors"

	"github.com/SitadziMado/migration-aggregator/internal/ddl"
)

// Repository holds the live definitions of one object kind, keyed by
// qualified name. Iteration follows insertion order; replacing a definition
// keeps its position, dropping and re-creating moves it to the end.
type Repository struct {
	kind   ddl.Kind
	naming ddl.NamingPolicy
	rows   map[ddl.QualifiedName]ddl.Definition
	order  []ddl.QualifiedName
}

// NewRepository returns an empty repository for kind. A nil naming policy
// defaults to ddl.PostgresNaming.
func NewRepository(kind ddl.Kind, naming ddl.NamingPolicy) *Repository {
	if naming == nil {
		naming = ddl.PostgresNaming
	}
	return &Repository{
		kind:   kind,
		naming: naming,
		rows:   make(map[ddl.QualifiedName]ddl.Definition),
	}
}

// Kind returns the object kind stored in the repository.
func (r *Repository) Kind() ddl.Kind { return r.kind }

// Len returns the number of live definitions.
func (r *Repository) Len() int { return len(r.rows) }

// Has reports whether name is defined.
func (r *Repository) Has(name ddl.QualifiedName) bool {
	_, ok := r.rows[name]
	return ok
}

// Get returns the live definition of name.
func (r *Repository) Get(name ddl.QualifiedName) (ddl.Definition, bool) {
	def, ok := r.rows[name]
	return def, ok
}

// Definitions returns the live definitions in insertion order.
func (r *Repository) Definitions() []ddl.Definition {
	out := make([]ddl.Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.rows[name])
	}
	return out
}

// Create stores def, resolving a name clash by def.ConflictBehavior().
func (r *Repository) Create(def ddl.Definition) error {
	name := def.Name()
	if _, exists := r.rows[name]; exists {
		switch def.ConflictBehavior() {
		case ddl.ConflictIgnore:
			return nil
		case ddl.ConflictReplace:
			r.rows[name] = def
			return nil
		default:
			return r.errorf(name, ErrDuplicateObject, "")
		}
	}
	r.rows[name] = def
	r.order = append(r.order, name)
	return nil
}

// Drop removes every name. An absent name is an error unless missingOK.
// Names processed before an error stay removed.
func (r *Repository) Drop(names []ddl.QualifiedName, missingOK bool) error {
	for _, name := range names {
		if _, exists := r.rows[name]; !exists {
			if missingOK {
				continue
			}
			return r.errorf(name, ErrMissingObject, "")
		}
		delete(r.rows, name)
		r.removeFromOrder(name)
	}
	return nil
}

// Alter applies the sub-commands of stmt, in order, to the stored
// definition. The definition must exist; ALTER ... IF EXISTS does not relax
// that. Recognized commands are applied even when others are not;
// those are returned as an *UnsupportedError carrying the residual
// statement. Commands applied before a structural error are not rolled back.
func (r *Repository) Alter(stmt *ddl.AlterTable) error {
	name := stmt.Name()
	def, ok := r.rows[name]
	if !ok {
		return r.errorf(name, ErrMissingObject, "")
	}

	target, structured := def.(ddl.Structured)
	var residual []ddl.AlterCommand
	for _, cmd := range stmt.Commands() {
		if _, unsupported := cmd.(*ddl.UnsupportedCommand); unsupported || !structured {
			residual = append(residual, cmd)
			continue
		}
		if err := r.apply(target, cmd); err != nil {
			return err
		}
	}

	if len(residual) > 0 {
		return &UnsupportedError{Statement: stmt.Residual(residual)}
	}
	return nil
}

func (r *Repository) removeFromOrder(name ddl.QualifiedName) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *Repository) errorf(name ddl.QualifiedName, err error, detail string) error {
	return &ObjectError{Kind: r.kind, Name: name, Detail: detail, Err: err}
}

// IsUnsupported reports whether err is an *UnsupportedError and returns it.
func IsUnsupported(err error) (*UnsupportedError, bool) {
	var ue *UnsupportedError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
