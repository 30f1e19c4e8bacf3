// Package rowfilter produces per-table access predicates comparing a row's
// tenant column against the resolved authorization context.
//
// The data-access layer attaches the returned predicate to every query
// against a protected table. Predicates are plain parameterized SQL
// fragments so they compose with any query builder; context-side checks
// (actor present, role allowed) are folded at build time, which rejects an
// unauthenticated caller before any row is compared.
package rowfilter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"tenantguard/internal/authz/models"
	"tenantguard/pkg/domain"
)

// Predicate is a parameterized SQL fragment using ? placeholders. Use
// Numbered to rewrite placeholders for drivers that want $1..$n.
type Predicate struct {
	SQL  string
	Args []any
}

// Deny is the predicate that matches no rows, regardless of tenant or
// role.
func Deny() Predicate {
	return Predicate{SQL: "FALSE"}
}

// IsDeny reports whether the predicate can never match a row.
func (p Predicate) IsDeny() bool {
	return p.SQL == "FALSE"
}

// Numbered rewrites ? placeholders into $start, $start+1, ... for
// PostgreSQL-style binding within a larger query.
func (p Predicate) Numbered(start int) (string, []any) {
	var b strings.Builder
	n := start
	for _, r := range p.SQL {
		if r == '?' {
			b.WriteString("$" + strconv.Itoa(n))
			n++
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), p.Args
}

// Table declares how one protected table is filtered.
type Table struct {
	// Name of the table, used for registry lookups and error messages.
	Name string
	// TenantColumn holds the row's tenant ID.
	TenantColumn string
	// WriteRoles is the optional role allow-list for write predicates.
	// Empty means any role with a matching tenant may write.
	WriteRoles []domain.Role
	// AppendOnly tables (audit, ledger-like records) permanently deny
	// update and delete for every caller.
	AppendOnly bool
}

// ReadPredicate returns the predicate attached to reads of this table.
// A context with no actor identity denies before the tenant comparison is
// built: both checks must pass, and the cheaper one fails first.
func (t Table) ReadPredicate(authCtx models.AuthContext) Predicate {
	if authCtx.ActorID.IsEmpty() || authCtx.TenantID.IsEmpty() {
		return Deny()
	}
	return Predicate{
		SQL:  t.TenantColumn + " = ?",
		Args: []any{authCtx.TenantID.String()},
	}
}

// WritePredicate returns the predicate attached to inserts and, for
// regular tables, updates. The role allow-list is a context-side check and
// folds to deny-all when the resolved role is not allowed.
func (t Table) WritePredicate(authCtx models.AuthContext) Predicate {
	if authCtx.ActorID.IsEmpty() || authCtx.TenantID.IsEmpty() {
		return Deny()
	}
	if len(t.WriteRoles) > 0 && !authCtx.Role.In(t.WriteRoles) {
		return Deny()
	}
	return Predicate{
		SQL:  t.TenantColumn + " = ?",
		Args: []any{authCtx.TenantID.String()},
	}
}

// UpdatePredicate returns the predicate for row updates. Append-only
// tables deny permanently.
func (t Table) UpdatePredicate(authCtx models.AuthContext) Predicate {
	if t.AppendOnly {
		return Deny()
	}
	return t.WritePredicate(authCtx)
}

// DeletePredicate returns the predicate for row deletion. Append-only
// tables deny permanently.
func (t Table) DeletePredicate(authCtx models.AuthContext) Predicate {
	if t.AppendOnly {
		return Deny()
	}
	return t.WritePredicate(authCtx)
}

// Policy is the per-table predicate registry handed to the data-access
// layer.
type Policy struct {
	mu     sync.RWMutex
	tables map[string]Table
}

func NewPolicy() *Policy {
	return &Policy{tables: make(map[string]Table)}
}

// Register declares a protected table. Registering the same table name
// twice is a programming error surfaced at wiring time.
func (p *Policy) Register(t Table) error {
	if t.Name == "" || t.TenantColumn == "" {
		return fmt.Errorf("rowfilter: table registration requires name and tenant column")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tables[t.Name]; ok {
		return fmt.Errorf("rowfilter: table %q already registered", t.Name)
	}
	p.tables[t.Name] = t
	return nil
}

// For returns the registered table declaration.
func (p *Policy) For(name string) (Table, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tables[name]
	return t, ok
}

// Tables lists registered table names, for diagnostics.
func (p *Policy) Tables() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.tables))
	for name := range p.tables {
		names = append(names, name)
	}
	return names
}
