package workflow

import "github.com/ollamageek/gateway/pkg/models"

// Templates are the built-in workflow blueprints (spec §4.9). POST
// /api/workflows picks a key from projectContext.projectType (see
// templateForProjectType in internal/httpapi).
var Templates = map[string][]models.Phase{
	"fullstack_react": {
		{
			Name:          "project_setup",
			Description:   "Scaffold the repository, package manifests, and base directory layout",
			Tools:         []string{"create_directory", "create_file", "install_dependency"},
			EstimatedTime: "5m",
			Complexity:    "low",
		},
		{
			Name:          "backend_development",
			Description:   "Build the API server, routes, and data layer",
			Tools:         []string{"create_file", "install_dependency", "run_terminal"},
			Dependencies:  []string{"project_setup"},
			EstimatedTime: "20m",
			Complexity:    "high",
		},
		{
			Name:          "frontend_development",
			Description:   "Build the React client, components, and API bindings",
			Tools:         []string{"create_file", "install_dependency", "run_terminal"},
			Dependencies:  []string{"project_setup"},
			EstimatedTime: "20m",
			Complexity:    "high",
		},
		{
			Name:          "testing_setup",
			Description:   "Wire the client to the server and verify end-to-end behavior",
			Tools:         []string{"edit_file", "run_tests"},
			Dependencies:  []string{"backend_development", "frontend_development"},
			EstimatedTime: "10m",
			Complexity:    "medium",
		},
		{
			Name:          "deployment_prep",
			Description:   "Configure linting, run the test suite, and commit the result",
			Tools:         []string{"configure_linter", "run_tests", "git_operation"},
			Dependencies:  []string{"testing_setup"},
			EstimatedTime: "5m",
			Complexity:    "low",
		},
	},
	"nodejs_api": {
		{
			Name:          "project_setup",
			Description:   "Scaffold package.json and install the HTTP framework",
			Tools:         []string{"create_file", "install_dependency"},
			EstimatedTime: "3m",
			Complexity:    "low",
		},
		{
			Name:          "api_development",
			Description:   "Implement routes and handlers",
			Tools:         []string{"create_file", "edit_file"},
			Dependencies:  []string{"project_setup"},
			EstimatedTime: "15m",
			Complexity:    "medium",
		},
		{
			Name:          "testing",
			Description:   "Write and run tests, then commit",
			Tools:         []string{"run_tests", "git_operation"},
			Dependencies:  []string{"api_development"},
			EstimatedTime: "5m",
			Complexity:    "low",
		},
	},
}

// TemplateNames lists the built-in template keys in a stable order.
func TemplateNames() []string {
	return []string{"fullstack_react", "nodejs_api"}
}
