// Package migrations embeds the SQL migration sets. The control-plane set
// owns the tenant directory tables and runs only against the control-plane
// database; the tenant set owns tenant-scoped tables and runs against the
// shared pool and every dedicated database. The two sets track their versions
// in separate schema tables so they can share one physical database.
package migrations

import "embed"

const (
	// ControlPlaneDir is the directory of the control-plane migration set.
	ControlPlaneDir = "controlplane"
	// TenantDir is the directory of the tenant migration set.
	TenantDir = "tenant"
)

//go:embed controlplane/*.sql tenant/*.sql
var FS embed.FS
