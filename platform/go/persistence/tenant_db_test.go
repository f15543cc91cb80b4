package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// fakeTx satisfies pgx.Tx and records Exec statements and their arguments.
type fakeTx struct {
	stmts      []string
	args       [][]any
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}
func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}
func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, errors.New("not implemented")
}
func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }
func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	f.args = append(f.args, args)
	return pgconn.CommandTag{}, nil
}
func (f *fakeTx) Conn() *pgx.Conn { return nil }

// fakePool returns a preconstructed transaction and counts BeginTx calls.
type fakePool struct {
	tx    *fakeTx
	begun int
}

func (p *fakePool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	p.begun++
	return p.tx, nil
}

func TestTenantDBWithSystemRunsWithoutBinding(t *testing.T) {
	ftx := &fakeTx{}
	db := &TenantDB{pool: &fakePool{tx: ftx}, role: DefaultTenantRole}

	err := db.WithSystem(context.Background(), func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Empty(t, ftx.stmts)
	require.True(t, ftx.committed)
}

func TestTenantDBWithTenantSetsRoleAndSettings(t *testing.T) {
	ftx := &fakeTx{}
	db := &TenantDB{pool: &fakePool{tx: ftx}, role: DefaultTenantRole}
	tc := tenant.Context{OrganizationID: uuid.New(), ActorID: "actor-1", Role: tenant.RoleMember}

	err := db.WithTenant(context.Background(), tc, func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Len(t, ftx.stmts, 2)
	require.Equal(t, `SET LOCAL ROLE "app_tenant"`, ftx.stmts[0])
	require.Contains(t, ftx.stmts[1], "set_config('app.organization_id', $1, true)")
	require.Equal(t, []any{tc.OrganizationID.String(), "actor-1"}, ftx.args[1])
	require.True(t, ftx.committed)
}

func TestTenantDBWithTenantRollsBackOnError(t *testing.T) {
	ftx := &fakeTx{}
	db := &TenantDB{pool: &fakePool{tx: ftx}, role: DefaultTenantRole}
	tc := tenant.Context{OrganizationID: uuid.New(), ActorID: "actor-1", Role: tenant.RoleMember}
	boom := errors.New("boom")

	err := db.WithTenant(context.Background(), tc, func(tx pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, ftx.committed)
	require.True(t, ftx.rolledBack)
}

func TestTenantDBWithTenantRequiresContext(t *testing.T) {
	pool := &fakePool{tx: &fakeTx{}}
	db := &TenantDB{pool: pool, role: DefaultTenantRole}

	cases := map[string]tenant.Context{
		"empty":        {},
		"missing org":  {ActorID: "a", Role: tenant.RoleAdmin},
		"missing role": {OrganizationID: uuid.New(), ActorID: "a"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := db.WithTenant(context.Background(), tc, func(tx pgx.Tx) error {
				t.Fatal("fn must not run")
				return nil
			})
			require.ErrorIs(t, err, apperr.ErrUnauthenticated)
		})
	}
	require.Zero(t, pool.begun)
}
