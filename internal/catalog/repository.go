package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetPackageByID(ctx context.Context, id int) (*Package, error) {
	query := `
		SELECT id, plan_id, name, price_cents, created_at
		FROM packages
		WHERE id = $1
	`

	var pkg Package
	err := r.db.GetContext(ctx, &pkg, query, id)
	if err != nil {
		return nil, err
	}

	return &pkg, nil
}

func (r *repository) GetPlanByID(ctx context.Context, id int) (*Plan, error) {
	query := `
		SELECT id, name, billing_cycle, repeat_count, sessions_granted, access_type, created_at
		FROM plans
		WHERE id = $1
	`

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, id)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *repository) ListPackages(ctx context.Context) ([]Package, error) {
	query := `
		SELECT id, plan_id, name, price_cents, created_at
		FROM packages
		ORDER BY name ASC
	`

	var pkgs []Package
	err := r.db.SelectContext(ctx, &pkgs, query)
	if err != nil {
		return nil, err
	}

	return pkgs, nil
}

func (r *repository) ListPlans(ctx context.Context) ([]Plan, error) {
	query := `
		SELECT id, name, billing_cycle, repeat_count, sessions_granted, access_type, created_at
		FROM plans
		ORDER BY name ASC
	`

	var plans []Plan
	err := r.db.SelectContext(ctx, &plans, query)
	if err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *repository) ListTemplates(ctx context.Context) ([]ClassTemplate, error) {
	query := `
		SELECT id, name, created_at
		FROM class_templates
		ORDER BY name ASC
	`

	var templates []ClassTemplate
	err := r.db.SelectContext(ctx, &templates, query)
	if err != nil {
		return nil, err
	}

	return templates, nil
}

func (r *repository) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	query := `
		INSERT INTO plans (name, billing_cycle, repeat_count, sessions_granted, access_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, billing_cycle, repeat_count, sessions_granted, access_type, created_at
	`

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query,
		req.Name, req.BillingCycle, req.RepeatCount, req.SessionsGranted, req.AccessType)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *repository) CreatePackage(ctx context.Context, req CreatePackageRequest) (*Package, error) {
	query := `
		INSERT INTO packages (plan_id, name, price_cents)
		VALUES ($1, $2, $3)
		RETURNING id, plan_id, name, price_cents, created_at
	`

	var pkg Package
	err := r.db.GetContext(ctx, &pkg, query, req.PlanID, req.Name, req.PriceCents)
	if err != nil {
		return nil, err
	}

	return &pkg, nil
}

func (r *repository) GetOrCreateTemplate(ctx context.Context, name string) (*ClassTemplate, error) {
	return GetOrCreateTemplateTx(ctx, r.db, name)
}

func (r *repository) EnsurePermission(ctx context.Context, packageID, templateID int) error {
	return EnsurePermissionTx(ctx, r.db, packageID, templateID)
}

func (r *repository) HasPermission(ctx context.Context, packageID, templateID int) (bool, error) {
	return HasPermissionTx(ctx, r.db, packageID, templateID)
}

// GetOrCreateTemplateTx resolves a class template by name, creating it on
// first use. Accepts either a live transaction or the bare DB handle so the
// sale flow can run it inside its own tx.
func GetOrCreateTemplateTx(ctx context.Context, q sqlx.ExtContext, name string) (*ClassTemplate, error) {
	var tpl ClassTemplate
	err := sqlx.GetContext(ctx, q, &tpl, `
		SELECT id, name, created_at
		FROM class_templates
		WHERE name = $1
	`, name)
	if err == nil {
		return &tpl, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = sqlx.GetContext(ctx, q, &tpl, `
		INSERT INTO class_templates (name)
		VALUES ($1)
		RETURNING id, name, created_at
	`, name)
	if err != nil {
		return nil, err
	}

	return &tpl, nil
}

// EnsurePermissionTx creates the (package, template) permission fact if it
// does not already exist.
func EnsurePermissionTx(ctx context.Context, q sqlx.ExtContext, packageID, templateID int) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO booking_permissions (package_id, template_id)
		VALUES ($1, $2)
		ON CONFLICT (package_id, template_id) DO NOTHING
	`, packageID, templateID)
	return err
}

func HasPermissionTx(ctx context.Context, q sqlx.ExtContext, packageID, templateID int) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM booking_permissions
			WHERE package_id = $1 AND template_id = $2
		)
	`, packageID, templateID)
	if err != nil {
		return false, err
	}

	return exists, nil
}
