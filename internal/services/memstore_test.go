package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

type memUser struct {
	id       uuid.UUID
	email    string
	hash     string
	staff    bool
	familyID *uuid.UUID
	created  time.Time
}

type memFamily struct {
	id      uuid.UUID
	adminID uuid.UUID
	created time.Time
}

type memInvite struct {
	id        uuid.UUID
	sender    uuid.UUID
	recipient uuid.UUID
	created   time.Time
}

// memStore is an in-memory stand-in for the users/families/invites tables.
// It understands exactly the statements the membership services issue.
// Transactions snapshot the tables on Begin and restore them on Rollback.
type memStore struct {
	t        *testing.T
	users    map[uuid.UUID]memUser
	families map[uuid.UUID]memFamily
	invites  map[uuid.UUID]memInvite

	failOn    string
	commits   int
	rollbacks int
}

func newMemStore(t *testing.T) *memStore {
	return &memStore{
		t:        t,
		users:    map[uuid.UUID]memUser{},
		families: map[uuid.UUID]memFamily{},
		invites:  map[uuid.UUID]memInvite{},
	}
}

type memSnapshot struct {
	users    map[uuid.UUID]memUser
	families map[uuid.UUID]memFamily
	invites  map[uuid.UUID]memInvite
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		users:    make(map[uuid.UUID]memUser, len(m.users)),
		families: make(map[uuid.UUID]memFamily, len(m.families)),
		invites:  make(map[uuid.UUID]memInvite, len(m.invites)),
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.families {
		s.families[k] = v
	}
	for k, v := range m.invites {
		s.invites[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.users = s.users
	m.families = s.families
	m.invites = s.invites
}

func (m *memStore) Begin(ctx context.Context) (Tx, error) {
	return &memTx{store: m, snap: m.snapshot()}, nil
}

type memTx struct {
	store *memStore
	snap  memSnapshot
	done  bool
}

func (tx *memTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return tx.store.QueryRow(ctx, sql, args...)
}

func (tx *memTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return tx.store.Query(ctx, sql, args...)
}

func (tx *memTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return tx.store.Exec(ctx, sql, args...)
}

func (tx *memTx) Commit(ctx context.Context) error {
	tx.done = true
	tx.store.commits++
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.store.rollbacks++
	tx.store.restore(tx.snap)
	return nil
}

func idArg(v any) uuid.UUID {
	switch id := v.(type) {
	case uuid.UUID:
		return id
	case *uuid.UUID:
		if id == nil {
			return uuid.Nil
		}
		return *id
	}
	panic(fmt.Sprintf("not a uuid arg: %T", v))
}

func (m *memStore) fail(sql string) error {
	if m.failOn != "" && strings.Contains(sql, m.failOn) {
		return errors.New("injected failure")
	}
	return nil
}

func (m *memStore) userValues(u memUser) []any {
	return []any{u.id, u.email, u.hash, u.staff, u.familyID, u.created, u.created}
}

func (m *memStore) userByEmail(email string) (memUser, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.email == email {
			return u, true
		}
	}
	return memUser{}, false
}

func (m *memStore) familySize(id uuid.UUID) int {
	n := 0
	for _, u := range m.users {
		if u.familyID != nil && *u.familyID == id {
			n++
		}
	}
	return n
}

func (m *memStore) inviteValues(inv memInvite) []any {
	return []any{inv.id, inv.sender, inv.recipient, inv.created, inv.created, m.users[inv.sender].email, m.users[inv.recipient].email}
}

func (m *memStore) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if err := m.fail(sql); err != nil {
		return errRow(err)
	}
	now := time.Now()
	switch {
	case strings.Contains(sql, "SELECT EXISTS(SELECT 1 FROM users WHERE email"):
		_, ok := m.userByEmail(args[0].(string))
		return rowFromValues(ok)

	case strings.Contains(sql, "INSERT INTO users"):
		if _, ok := m.userByEmail(args[0].(string)); ok {
			return errRow(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
		}
		u := memUser{id: uuid.New(), email: args[0].(string), hash: args[1].(string), staff: args[2].(bool), created: now}
		m.users[u.id] = u
		return rowFromValues(m.userValues(u)...)

	case strings.Contains(sql, "INSERT INTO families"):
		admin := idArg(args[0])
		for _, f := range m.families {
			if f.adminID == admin {
				return errRow(&pgconn.PgError{Code: "23505", ConstraintName: "families_admin_id_key"})
			}
		}
		f := memFamily{id: uuid.New(), adminID: admin, created: now}
		m.families[f.id] = f
		return rowFromValues(f.id)

	case strings.Contains(sql, "INSERT INTO invites"):
		sender, recipient := idArg(args[0]), idArg(args[1])
		for _, inv := range m.invites {
			if inv.sender == sender && inv.recipient == recipient {
				return errRow(&pgconn.PgError{Code: "23505", ConstraintName: "invites_sender_id_recipient_id_key"})
			}
		}
		inv := memInvite{id: uuid.New(), sender: sender, recipient: recipient, created: now}
		m.invites[inv.id] = inv
		return rowFromValues(inv.id, inv.sender, inv.recipient, inv.created, inv.created)

	case strings.Contains(sql, "EXISTS(SELECT 1 FROM invites WHERE sender_id"):
		sender, recipient := idArg(args[0]), idArg(args[1])
		var sent, received bool
		for _, inv := range m.invites {
			sent = sent || (inv.sender == sender && inv.recipient == recipient)
			received = received || (inv.sender == recipient && inv.recipient == sender)
		}
		size := 0
		if fid := args[2].(*uuid.UUID); fid != nil {
			size = m.familySize(*fid)
		}
		return rowFromValues(sent, received, size)

	case strings.Contains(sql, "FROM invites i"):
		inv, ok := m.invites[idArg(args[0])]
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(m.inviteValues(inv)...)

	case strings.Contains(sql, "SELECT sender_id, recipient_id FROM invites"):
		inv, ok := m.invites[idArg(args[0])]
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(inv.sender, inv.recipient)

	case strings.Contains(sql, "FROM families WHERE id = $1 FOR UPDATE"):
		f, ok := m.families[idArg(args[0])]
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(f.id, f.adminID, f.created, f.created)

	case strings.Contains(sql, "SELECT id FROM families WHERE admin_id"):
		admin := idArg(args[0])
		for _, f := range m.families {
			if f.adminID == admin {
				return rowFromValues(f.id)
			}
		}
		return errRow(pgx.ErrNoRows)

	case strings.Contains(sql, "JOIN users u ON u.id = f.admin_id"):
		f, ok := m.families[idArg(args[0])]
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(f.id, f.adminID, m.users[f.adminID].email, f.created, f.created)

	case strings.Contains(sql, "SELECT family_id FROM users WHERE id"):
		u, ok := m.users[idArg(args[0])]
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(u.familyID)

	case strings.Contains(sql, "FROM users WHERE family_id = $1 AND email = $2"):
		fid := idArg(args[0])
		u, ok := m.userByEmail(args[1].(string))
		if !ok || u.familyID == nil || *u.familyID != fid {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(u.id)

	case strings.Contains(sql, "FROM users WHERE email"):
		u, ok := m.userByEmail(args[0].(string))
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(m.userValues(u)...)

	case strings.Contains(sql, "FROM users WHERE id = $1"):
		u, ok := m.users[idArg(args[0])]
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(m.userValues(u)...)
	}
	m.t.Fatalf("memStore: unexpected QueryRow: %s", sql)
	return nil
}

func (m *memStore) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if err := m.fail(sql); err != nil {
		return nil, err
	}
	switch {
	case strings.Contains(sql, "WHERE id = ANY($1)"):
		ids := args[0].([]uuid.UUID)
		sorted := append([]uuid.UUID(nil), ids...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
		var rows [][]any
		for _, id := range sorted {
			if u, ok := m.users[id]; ok {
				rows = append(rows, []any{u.id, u.familyID})
			}
		}
		return &fakeRows{rows: rows}, nil

	case strings.Contains(sql, "SELECT id FROM users WHERE family_id = $1 FOR UPDATE"):
		fid := idArg(args[0])
		var rows [][]any
		for _, u := range m.users {
			if u.familyID != nil && *u.familyID == fid {
				rows = append(rows, []any{u.id})
			}
		}
		return &fakeRows{rows: rows}, nil

	case strings.Contains(sql, "SELECT id, email FROM users WHERE family_id = $1"):
		fid := idArg(args[0])
		var members []memUser
		for _, u := range m.users {
			if u.familyID != nil && *u.familyID == fid {
				members = append(members, u)
			}
		}
		sort.Slice(members, func(i, j int) bool { return members[i].email < members[j].email })
		var rows [][]any
		for _, u := range members {
			rows = append(rows, []any{u.id, u.email})
		}
		return &fakeRows{rows: rows}, nil

	case strings.Contains(sql, "FROM invites i"):
		var viewer uuid.UUID
		if len(args) > 0 {
			viewer = idArg(args[0])
		}
		var rows [][]any
		for _, inv := range m.invites {
			if len(args) == 0 || inv.sender == viewer || inv.recipient == viewer {
				rows = append(rows, m.inviteValues(inv))
			}
		}
		return &fakeRows{rows: rows}, nil
	}
	m.t.Fatalf("memStore: unexpected Query: %s", sql)
	return nil, nil
}

func (m *memStore) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if err := m.fail(sql); err != nil {
		return nil, err
	}
	switch {
	case strings.Contains(sql, "UPDATE users SET family_id"):
		fid, uid := idArg(args[0]), idArg(args[1])
		u, ok := m.users[uid]
		if !ok {
			return fakeCommandTag{}, nil
		}
		u.familyID = &fid
		m.users[uid] = u
		return fakeCommandTag{rowsAffected: 1}, nil

	case strings.Contains(sql, "DELETE FROM families f"):
		fid, admin := idArg(args[0]), idArg(args[1])
		f, ok := m.families[fid]
		if !ok || f.adminID != admin || m.familySize(fid) > 0 {
			return fakeCommandTag{}, nil
		}
		delete(m.families, fid)
		return fakeCommandTag{rowsAffected: 1}, nil

	case strings.Contains(sql, "DELETE FROM invites WHERE id = $1 AND sender_id = $2"):
		inv, ok := m.invites[idArg(args[0])]
		if !ok || inv.sender != idArg(args[1]) {
			return fakeCommandTag{}, nil
		}
		delete(m.invites, inv.id)
		return fakeCommandTag{rowsAffected: 1}, nil

	case strings.Contains(sql, "DELETE FROM invites WHERE id = $1"):
		id := idArg(args[0])
		if _, ok := m.invites[id]; !ok {
			return fakeCommandTag{}, nil
		}
		delete(m.invites, id)
		return fakeCommandTag{rowsAffected: 1}, nil
	}
	m.t.Fatalf("memStore: unexpected Exec: %s", sql)
	return nil, nil
}

// register creates a user through UserService so the family invariant holds.
func (m *memStore) register(email string) *models.User {
	m.t.Helper()
	user, err := NewUserService(m).Create(context.Background(), models.CreateUserParams{
		Email:        email,
		PasswordHash: "hash",
	})
	if err != nil {
		m.t.Fatalf("register %s: %v", email, err)
	}
	return user
}

// user reloads a user so FamilyID reflects the current state.
func (m *memStore) user(id uuid.UUID) *models.User {
	m.t.Helper()
	u, ok := m.users[id]
	if !ok {
		m.t.Fatalf("user %s not found", id)
	}
	return &models.User{ID: u.id, Email: u.email, IsStaff: u.staff, FamilyID: u.familyID}
}

func (m *memStore) familyOf(id uuid.UUID) uuid.UUID {
	m.t.Helper()
	u := m.user(id)
	if u.FamilyID == nil {
		m.t.Fatalf("user %s has no family", u.Email)
	}
	return *u.FamilyID
}

func (m *memStore) adminFamily(id uuid.UUID) (uuid.UUID, bool) {
	for _, f := range m.families {
		if f.adminID == id {
			return f.id, true
		}
	}
	return uuid.Nil, false
}
