// Package detect implements the Project Detector: a pure, read-only function
// from a directory tree to a models.DetectionResult. No step here mutates
// the scanned directory, and no step depends on anything but file contents,
// so repeated calls against the same tree always agree (detection
// idempotence, per the testable-properties law).
package detect

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/corvus-paas/control-plane/internal/models"
)

// nodeBuildTooledDeps are frontend build-tool dependencies that, combined
// with a package.json "build" script, classify a project as a static site.
var nodeBuildTooledDeps = []string{"vite", "next", "gatsby", "vue", "react", "angular", "svelte"}

// nodeServerFrameworkDeps are backend-framework dependencies that classify a
// Node.js project as a long-running service.
var nodeServerFrameworkDeps = []string{"express", "koa", "fastify", "hapi", "@nestjs/core"}

// nodeFrameworkPriority picks the framework label from the first match in
// this fixed order, matching spec.md's "first dependency in a fixed
// priority list" rule.
var nodeFrameworkPriority = []string{"next", "vite", "vue", "express"}

// pythonServiceIndicators are requirements.txt package names that mark a
// Python project as a service rather than a generic script.
var pythonServiceIndicators = []string{"django", "flask", "fastapi", "uvicorn", "starlette"}

// pythonProductionRunners are WSGI/ASGI servers whose presence in
// requirements.txt means the recipe should prefer them over a dev server.
var pythonProductionRunners = []string{"gunicorn", "uvicorn", "waitress"}

// Detect scans projectRoot for a closed set of marker files and returns the
// best-effort DetectionResult. Rules are applied in order; first match
// wins. Detection never fails outright: ambiguous input falls through to a
// generic static/static result with best-effort defaults.
func Detect(projectRoot string) models.DetectionResult {
	requirementsTxt, hasRequirements := readFile(projectRoot, "requirements.txt")

	if hasRequirements && containsAny(requirementsTxt, pythonServiceIndicators) {
		return detectPython(projectRoot, requirementsTxt)
	}
	if fileExists(projectRoot, "app.py") || fileExists(projectRoot, "main.py") || fileExists(projectRoot, "manage.py") {
		return detectPython(projectRoot, requirementsTxt)
	}

	if fileExists(projectRoot, "pom.xml") {
		return models.DetectionResult{
			Type: models.TypeService, Runtime: models.RuntimeJava, Framework: "maven",
			Config: models.Config{Port: 8080, StartCommand: defaultJavaStartCommand()},
		}
	}
	if fileExists(projectRoot, "build.gradle") {
		return models.DetectionResult{
			Type: models.TypeService, Runtime: models.RuntimeJava, Framework: "gradle",
			Config: models.Config{Port: 8080, StartCommand: defaultJavaStartCommand()},
		}
	}

	if packageJSONBytes, ok := readFile(projectRoot, "package.json"); ok {
		if result, matched := detectNode(projectRoot, packageJSONBytes); matched {
			return result
		}
	}

	if fileExists(projectRoot, "index.html") {
		return models.DetectionResult{
			Type: models.TypeStatic, Runtime: models.RuntimeStatic, Framework: "html",
			Config: models.Config{BuildCommand: "", PublishDir: "."},
		}
	}

	return models.DetectionResult{
		Type: models.TypeStatic, Runtime: models.RuntimeStatic, Framework: "html",
		Config: models.Config{PublishDir: "."},
	}
}

// detectPython elaborates the Django/Flask/generic split and chooses a
// default port and start command, per spec.md §4.1's framework-specific
// elaboration rules.
func detectPython(projectRoot string, requirementsTxt string) models.DetectionResult {
	if fileExists(projectRoot, "manage.py") {
		projectPackage := resolveDjangoProjectPackage(projectRoot)
		start := "python manage.py runserver 0.0.0.0:8000"
		if containsAny(requirementsTxt, pythonProductionRunners) {
			start = "gunicorn " + projectPackage + ".wsgi:application --bind 0.0.0.0:8000 --workers 3 --timeout 120"
		}
		return models.DetectionResult{
			Type: models.TypeService, Runtime: models.RuntimePython, Framework: "django",
			Config: models.Config{Port: 8000, StartCommand: start, EntryFile: "manage.py"},
		}
	}

	framework := "generic"
	if strings.Contains(requirementsTxt, "flask") {
		framework = "flask"
	}

	start := "python -m flask run --host=0.0.0.0 --port=5000"
	if containsAny(requirementsTxt, pythonProductionRunners) {
		start = "uvicorn main:app --host 0.0.0.0 --port 5000"
	} else if !strings.Contains(requirementsTxt, "flask") {
		start = "python main.py"
	}

	return models.DetectionResult{
		Type: models.TypeService, Runtime: models.RuntimePython, Framework: framework,
		Config: models.Config{Port: 5000, StartCommand: start},
	}
}

// resolveDjangoProjectPackage resolves the project's settings package name by
// (a) the parent directory of any wsgi.py, else (b) parsing
// DJANGO_SETTINGS_MODULE out of manage.py.
func resolveDjangoProjectPackage(projectRoot string) string {
	var found string
	filepath.WalkDir(projectRoot, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil || found != "" {
			return nil
		}
		if !entry.IsDir() && entry.Name() == "wsgi.py" {
			found = filepath.Base(filepath.Dir(path))
		}
		return nil
	})
	if found != "" {
		return found
	}

	if manageBytes, ok := readFile(projectRoot, "manage.py"); ok {
		settingsModulePattern := regexp.MustCompile(`DJANGO_SETTINGS_MODULE['"]?\s*,\s*['"]([\w.]+)['"]`)
		if match := settingsModulePattern.FindStringSubmatch(manageBytes); len(match) == 2 {
			return strings.Split(match[1], ".")[0]
		}
	}
	return "app"
}

// packageJSON is the subset of package.json fields the detector inspects.
type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
}

func detectNode(projectRoot string, raw string) (models.DetectionResult, bool) {
	var pkg packageJSON
	if err := json.Unmarshal([]byte(raw), &pkg); err != nil {
		return models.DetectionResult{}, false
	}

	hasBuildScript := pkg.Scripts["build"] != ""
	hasBuildTooledDep := hasAnyDep(pkg, nodeBuildTooledDeps)
	hasServerFrameworkDep := hasAnyDep(pkg, nodeServerFrameworkDeps)
	hasServerEntry := fileExists(projectRoot, "server.js") || fileExists(projectRoot, "index.js")

	if hasBuildTooledDep && hasBuildScript {
		return buildStaticNodeResult(pkg), true
	}
	if hasServerFrameworkDep || hasServerEntry {
		return detectNodeService(pkg), true
	}
	if hasBuildScript {
		return buildStaticNodeResult(pkg), true
	}

	return models.DetectionResult{}, false
}

func buildStaticNodeResult(pkg packageJSON) models.DetectionResult {
	framework := "nodejs"
	for _, candidate := range nodeFrameworkPriority {
		if _, ok := pkg.Dependencies[candidate]; ok {
			framework = candidate
			break
		}
	}

	publishDir := "dist"
	switch framework {
	case "next":
		publishDir = "out"
	}

	return models.DetectionResult{
		Type: models.TypeStatic, Runtime: models.RuntimeNode, Framework: framework,
		Config: models.Config{
			BuildCommand: "npm install && npm run build",
			PublishDir:   publishDir,
		},
	}
}

func detectNodeService(pkg packageJSON) models.DetectionResult {
	framework := "nodejs"
	for _, candidate := range nodeFrameworkPriority {
		if _, ok := pkg.Dependencies[candidate]; ok {
			framework = candidate
			break
		}
	}

	return models.DetectionResult{
		Type: models.TypeService, Runtime: models.RuntimeNode, Framework: framework,
		Config: models.Config{Port: 3000, StartCommand: "npm start"},
	}
}

func hasAnyDep(pkg packageJSON, names []string) bool {
	for _, name := range names {
		if _, ok := pkg.Dependencies[name]; ok {
			return true
		}
		if _, ok := pkg.DevDependencies[name]; ok {
			return true
		}
	}
	return false
}

func defaultJavaStartCommand() string {
	return `java $JAVA_OPTS -Dserver.port=$SERVER_PORT -jar app.jar`
}

func fileExists(root, name string) bool {
	_, err := os.Stat(filepath.Join(root, name))
	return err == nil
}

func readFile(root, name string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		return "", false
	}
	return string(content), true
}

func containsAny(haystack string, needles []string) bool {
	lowered := strings.ToLower(haystack)
	for _, needle := range needles {
		if strings.Contains(lowered, needle) {
			return true
		}
	}
	return false
}

// NodeVersionForEngines parses package.json's engines.node field and snaps
// it to the nearest supported major (22, 20, 18, 16), defaulting to 18 when
// no constraint is declared or it cannot be parsed.
func NodeVersionForEngines(enginesNode string) int {
	digits := regexp.MustCompile(`\d+`).FindString(enginesNode)
	major, err := strconv.Atoi(digits)
	if err != nil {
		return 18
	}
	switch {
	case major >= 22:
		return 22
	case major >= 20:
		return 20
	case major >= 18:
		return 18
	case major >= 16:
		return 16
	default:
		return 18
	}
}
