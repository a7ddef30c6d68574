package recipe

import (
	"fmt"

	"github.com/corvus-paas/control-plane/internal/models"
)

// synthesizeNode builds the Node.js service recipe: base image major
// version from nodeMajorFromDetection, production-vs-dev install and
// command selection per spec.md §4.2.
func synthesizeNode(det models.DetectionResult, cfg models.Config) Recipe {
	port := cfg.Port
	if port == 0 {
		port = 3000
	}

	baseImage := fmt.Sprintf("node:%d-alpine", nodeMajorFromDetection(det))

	if cfg.UseDevMode {
		return Recipe{
			BaseImage:   baseImage,
			BuildSteps:  []string{nodeInstallCommand(true)},
			Command:     "npm run dev",
			Port:        port,
			Healthcheck: Healthcheck{Kind: "http", HTTPPath: healthCheckPathOrDefault(cfg), Interval: "30s"},
			BuildIgnore: []string{"node_modules", ".git", "dist", ".env"},
			Env:         map[string]string{"NODE_ENV": "development"},
			Labels:      map[string]string{"type": "web-service-dev"},
		}
	}

	command := cfg.StartCommand
	if command == "" {
		command = nodeStartFallbackChain()
	}

	return Recipe{
		BaseImage:   baseImage,
		BuildSteps:  []string{nodeInstallCommand(false)},
		Command:     command,
		Port:        port,
		Healthcheck: Healthcheck{Kind: "http", HTTPPath: healthCheckPathOrDefault(cfg), Interval: "30s"},
		BuildIgnore: []string{"node_modules", ".git", "dist", ".env"},
		Env:         map[string]string{"NODE_ENV": "production"},
		Labels:      map[string]string{},
	}
}

// nodeMajorFromDetection always returns 18. The detection result carries no
// engines.node value, detect.NodeVersionForEngines is not called on this
// path, and nothing downstream rewrites BaseImage, so every Node service
// builds on node:18-alpine.
func nodeMajorFromDetection(det models.DetectionResult) int {
	return 18
}

// nodeInstallCommand always installs with npm, with a
// --legacy-peer-deps/--force fallback cascade in production mode. A
// yarn.lock is not consulted, and nothing downstream rewrites BuildSteps[0].
func nodeInstallCommand(includeDevDeps bool) string {
	if includeDevDeps {
		return "npm install"
	}
	return "npm install --production --legacy-peer-deps || npm install --production --force"
}

// nodeStartFallbackChain sources .env then tries, in order: npm start,
// yarn start, node server.js, node app.js, node index.js.
func nodeStartFallbackChain() string {
	return `sh -c '[ -f .env ] && export $(grep -v "^#" .env | xargs) || true; ` +
		`npm start || yarn start || node server.js || node app.js || node index.js'`
}
