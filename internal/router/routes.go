// ABOUTME: Static navigation table for the record-admin client
// ABOUTME: Maps path patterns to screens and their authentication requirement

package router

import "strings"

// Well-known routes
const (
	LoginPath = "/"
	HomePath  = "/home"

	LoginRoute = "login"
	HomeRoute  = "home"
)

// Route describes one navigable screen. Path segments starting with ':'
// are parameters.
type Route struct {
	Name         string
	Path         string
	Title        string
	RequiresAuth bool
}

// Parametric reports whether the route needs parameters to be addressed
func (r Route) Parametric() bool {
	return strings.Contains(r.Path, ":")
}

// Admin reports whether the route belongs to the admin area
func (r Route) Admin() bool {
	return strings.HasPrefix(r.Path, "/admin/")
}

// Table is the full navigation table
var Table = []Route{
	{Name: LoginRoute, Path: LoginPath, Title: "Sign in"},
	{Name: HomeRoute, Path: HomePath, Title: "Home", RequiresAuth: true},
	{Name: "models", Path: "/models", Title: "Models", RequiresAuth: true},
	{Name: "change-password", Path: "/account/change-password", Title: "Change password", RequiresAuth: true},
	{Name: "tokens", Path: "/account/tokens", Title: "My API tokens", RequiresAuth: true},
	{Name: "forced-change-password", Path: "/forced-change-password", Title: "Change expired password"},
	{Name: "user-admin", Path: "/admin/users", Title: "Users", RequiresAuth: true},
	{Name: "system-logs", Path: "/admin/logs", Title: "System logs", RequiresAuth: true},
	{Name: "error-logs", Path: "/admin/error-logs", Title: "Error logs", RequiresAuth: true},
	{Name: "performance", Path: "/admin/performance", Title: "Performance", RequiresAuth: true},
	{Name: "security-settings", Path: "/admin/security-settings", Title: "Security settings", RequiresAuth: true},
	{Name: "admin-tokens", Path: "/admin/tokens", Title: "All API tokens", RequiresAuth: true},
	{Name: "models-admin", Path: "/admin/models", Title: "Model administration", RequiresAuth: true},
	{Name: "model-admin", Path: "/admin/models/:modelId", Title: "Model", RequiresAuth: true},
	{Name: "view-model-links", Path: "/admin/models/links/view", Title: "Model links", RequiresAuth: true},
	{Name: "records", Path: "/models/:modelId/records", Title: "Records", RequiresAuth: true},
	{Name: "add-record", Path: "/models/:modelId/records/add", Title: "Add record", RequiresAuth: true},
	{Name: "view-record", Path: "/models/:modelId/records/:recordId/view", Title: "Record", RequiresAuth: true},
	{Name: "edit-record", Path: "/models/:modelId/records/:recordId/edit", Title: "Edit record", RequiresAuth: true},
	{
		Name:         "select-records-to-link",
		Path:         "/records/:sourceRecordId/link/:sourceModelId/:targetModelId/:modelLinkId/:sourceModelName",
		Title:        "Link records",
		RequiresAuth: true,
	},
	{
		Name:         "linked-records",
		Path:         "/records/:sourceRecordId/linked/:sourceModelId/:modelLinkId/:targetModelId/:targetModelName/:sourceModelName/:sourceRecordDisplayName",
		Title:        "Linked records",
		RequiresAuth: true,
	},
}

// Lookup returns the route with the given name
func Lookup(name string) (Route, bool) {
	for _, r := range Table {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}
