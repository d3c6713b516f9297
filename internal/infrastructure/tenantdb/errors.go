package tenantdb

import "errors"

// Routing errors. The Router and Directory return these when a tenant cannot
// be resolved to a usable database handle; callers map them to their own
// error surface (CLI exit codes, worker skip-and-log, service errors).
var (
	// ErrTenantNotFound is returned when no directory record exists for the
	// requested tenant ID or subdomain.
	ErrTenantNotFound = errors.New("tenant not found in directory")

	// ErrTenantSuspended is returned for tenants whose access has been
	// suspended. Their data stays in place but requests are refused.
	ErrTenantSuspended = errors.New("tenant is suspended")

	// ErrTenantArchived is returned for tenants that have been archived.
	ErrTenantArchived = errors.New("tenant is archived")

	// ErrTenantMigrating is returned while a tenant's rows are being moved
	// between the shared pool and a dedicated database. Requests are refused
	// for the duration of the move so no write can land on the losing side.
	ErrTenantMigrating = errors.New("tenant database move in progress")

	// ErrDatabaseNotAssigned is returned when a tenant's directory record
	// claims dedicated placement but names no database. This indicates a
	// corrupted directory and is never expected in normal operation.
	ErrDatabaseNotAssigned = errors.New("tenant placement is dedicated but no database is assigned")
)

// Scoping errors. SharedDB and TenantCallback fail closed: a query against
// the shared pool without a resolvable tenant returns one of these instead
// of running unfiltered.
var (
	// ErrTenantIDRequired is returned when a tenant ID is required but not
	// present in the context.
	ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

	// ErrInvalidTenantID is returned when the tenant ID in the context is
	// not a valid UUID.
	ErrInvalidTenantID = errors.New("invalid tenant_id format")
)
