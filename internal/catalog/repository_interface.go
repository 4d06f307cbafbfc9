package catalog

import "context"

type Repository interface {
	GetPackageByID(ctx context.Context, id int) (*Package, error)
	GetPlanByID(ctx context.Context, id int) (*Plan, error)
	ListPackages(ctx context.Context) ([]Package, error)
	ListPlans(ctx context.Context) ([]Plan, error)
	ListTemplates(ctx context.Context) ([]ClassTemplate, error)
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	CreatePackage(ctx context.Context, req CreatePackageRequest) (*Package, error)
	GetOrCreateTemplate(ctx context.Context, name string) (*ClassTemplate, error)
	EnsurePermission(ctx context.Context, packageID, templateID int) error
	HasPermission(ctx context.Context, packageID, templateID int) (bool, error)
}
