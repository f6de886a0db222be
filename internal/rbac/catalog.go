// Copyright 2026 The Pulseboard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rbac

// -----------------------------------------------------------------------------
// Role Name Constants
// These are the canonical names for the tiered roles stored in the database.
// -----------------------------------------------------------------------------

const (
	// RoleSuperAdmin is the top-tier system role. It bypasses every
	// permission gate and is only mutable through the bootstrap path.
	RoleSuperAdmin = "super_admin"

	// RoleAdmin is the elevated (second-tier) administrator role.
	RoleAdmin = "admin"

	// RoleManager is a standard seed role for day-to-day portal management.
	RoleManager = "manager"

	// RoleViewer is a standard read-only seed role.
	RoleViewer = "viewer"
)

// -----------------------------------------------------------------------------
// Permission Name Constants
// The catalog itself is data: permissions live in the database and are
// referenced by name at runtime. These constants mirror the seed catalog so
// call sites get compile-time safety against typos.
// -----------------------------------------------------------------------------

const (
	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersUpdate = "users.update"
	PermUsersDelete = "users.delete"
	PermUsersInvite = "users.invite"

	PermRolesView              = "roles.view"
	PermRolesCreate            = "roles.create"
	PermRolesUpdate            = "roles.update"
	PermRolesDelete            = "roles.delete"
	PermRolesAssignPermissions = "roles.assign_permissions"

	PermUserRolesAssign = "user_roles.assign"
	PermUserRolesRemove = "user_roles.remove"
	PermUserRolesSync   = "user_roles.sync"

	PermPermissionsView = "permissions.view"

	PermMenusView   = "menus.view"
	PermMenusManage = "menus.manage"

	PermContentView   = "content.view"
	PermContentManage = "content.manage"

	PermEmailTemplatesView   = "email_templates.view"
	PermEmailTemplatesManage = "email_templates.manage"

	PermSettingsView   = "settings.view"
	PermSettingsManage = "settings.manage"

	PermAnalyticsView   = "analytics.view"
	PermAnalyticsExport = "analytics.export"

	PermAuditView = "audit.view"
)

// Permission group names, free-text categories used by the admin UI.
const (
	GroupUsers          = "User Management"
	GroupRoles          = "Roles & Permissions"
	GroupMenus          = "Menus"
	GroupContent        = "Content"
	GroupEmailTemplates = "Email Templates"
	GroupSettings       = "System Settings"
	GroupAnalytics      = "Analytics"
	GroupAudit          = "Audit"
)

// CatalogEntry describes one permission in the seed catalog.
type CatalogEntry struct {
	Name        string
	DisplayName string
	Group       string
}

// Catalog is the seed permission catalog, in the order the UI presents it.
var Catalog = []CatalogEntry{
	{PermUsersView, "View Users", GroupUsers},
	{PermUsersCreate, "Create Users", GroupUsers},
	{PermUsersUpdate, "Update Users", GroupUsers},
	{PermUsersDelete, "Delete Users", GroupUsers},
	{PermUsersInvite, "Invite Users", GroupUsers},

	{PermRolesView, "View Roles", GroupRoles},
	{PermRolesCreate, "Create Roles", GroupRoles},
	{PermRolesUpdate, "Update Roles", GroupRoles},
	{PermRolesDelete, "Delete Roles", GroupRoles},
	{PermRolesAssignPermissions, "Assign Permissions to Roles", GroupRoles},
	{PermUserRolesAssign, "Assign Roles to Users", GroupRoles},
	{PermUserRolesRemove, "Remove Roles from Users", GroupRoles},
	{PermUserRolesSync, "Sync User Roles", GroupRoles},
	{PermPermissionsView, "View Permissions", GroupRoles},

	{PermMenusView, "View Menus", GroupMenus},
	{PermMenusManage, "Manage Menus", GroupMenus},

	{PermContentView, "View Content", GroupContent},
	{PermContentManage, "Manage Content", GroupContent},

	{PermEmailTemplatesView, "View Email Templates", GroupEmailTemplates},
	{PermEmailTemplatesManage, "Manage Email Templates", GroupEmailTemplates},

	{PermSettingsView, "View Settings", GroupSettings},
	{PermSettingsManage, "Manage Settings", GroupSettings},

	{PermAnalyticsView, "View Analytics", GroupAnalytics},
	{PermAnalyticsExport, "Export Analytics", GroupAnalytics},

	{PermAuditView, "View Audit Log", GroupAudit},
}

// -----------------------------------------------------------------------------
// Role Permission Mappings
// Default permission sets for the seed roles. The super_admin role carries no
// explicit permissions: the evaluator grants it implicit allow on every check.
// -----------------------------------------------------------------------------

// AdminPermissions defines permissions for the admin role.
var AdminPermissions = []string{
	PermUsersView,
	PermUsersCreate,
	PermUsersUpdate,
	PermUsersDelete,
	PermUsersInvite,
	PermRolesView,
	PermRolesCreate,
	PermRolesUpdate,
	PermRolesDelete,
	PermRolesAssignPermissions,
	PermUserRolesAssign,
	PermUserRolesRemove,
	PermUserRolesSync,
	PermPermissionsView,
	PermMenusView,
	PermMenusManage,
	PermContentView,
	PermContentManage,
	PermEmailTemplatesView,
	PermEmailTemplatesManage,
	PermSettingsView,
	PermSettingsManage,
	PermAnalyticsView,
	PermAnalyticsExport,
	PermAuditView,
}

// ManagerPermissions defines permissions for the manager role.
var ManagerPermissions = []string{
	PermUsersView,
	PermUsersInvite,
	PermRolesView,
	PermPermissionsView,
	PermMenusView,
	PermContentView,
	PermContentManage,
	PermEmailTemplatesView,
	PermAnalyticsView,
	PermAnalyticsExport,
}

// ViewerPermissions defines permissions for the viewer role.
var ViewerPermissions = []string{
	PermUsersView,
	PermRolesView,
	PermMenusView,
	PermContentView,
	PermAnalyticsView,
}
