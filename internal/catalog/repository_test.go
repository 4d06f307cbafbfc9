package catalog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

func TestGetPackageAndPlan(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, plan_id, name, price_cents, created_at FROM packages WHERE id = $1")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id", "name", "price_cents", "created_at"}).
			AddRow(4, 2, "Pilates 10-pack", int64(100000), now))

	pkg, err := repo.GetPackageByID(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, int64(100000), pkg.PriceCents)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, billing_cycle, repeat_count, sessions_granted, access_type, created_at FROM plans WHERE id = $1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "billing_cycle", "repeat_count", "sessions_granted", "access_type", "created_at"}).
			AddRow(2, "Monthly 10 sessions", "MONTHLY", 1, 10, "SESSION_BASED", now))

	plan, err := repo.GetPlanByID(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, AccessSessionBased, plan.AccessType)
	require.Equal(t, 10, plan.SessionsGranted)
}

func TestGetOrCreateTemplate(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	ctx := context.Background()

	// existing template is returned as-is
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at FROM class_templates WHERE name = $1")).
		WithArgs("Yoga").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).AddRow(7, "Yoga", now))

	tpl, err := repo.GetOrCreateTemplate(ctx, "Yoga")
	require.NoError(t, err)
	require.Equal(t, 7, tpl.ID)

	// missing template is inserted
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at FROM class_templates WHERE name = $1")).
		WithArgs("Boxing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO class_templates (name) VALUES ($1) RETURNING id, name, created_at")).
		WithArgs("Boxing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).AddRow(8, "Boxing", now))

	tpl, err = repo.GetOrCreateTemplate(ctx, "Boxing")
	require.NoError(t, err)
	require.Equal(t, 8, tpl.ID)
}

func TestEnsureAndHasPermission(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_permissions (package_id, template_id) VALUES ($1, $2) ON CONFLICT (package_id, template_id) DO NOTHING")).
		WithArgs(4, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.EnsurePermission(ctx, 4, 7))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS( SELECT 1 FROM booking_permissions WHERE package_id = $1 AND template_id = $2 )")).
		WithArgs(4, 7).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasPermission(ctx, 4, 7)
	require.NoError(t, err)
	require.True(t, ok)
}
