package recipe

import (
	"fmt"

	"github.com/corvus-paas/control-plane/internal/models"
)

const nginxStaticImage = "nginx:alpine"

// synthesizeStatic builds the two-stage static site recipe: a build stage
// (implicit — the executor runs BuildSteps in a language image before
// copying PublishDir into the runtime context) followed by a lightweight
// HTTP server stage serving the publish directory. The rescue step (copy
// any *.html found at depth<=2 to index.html when missing) and the reverse
// proxy's SPA fallback are the two behaviors spec.md calls out explicitly.
func synthesizeStatic(det models.DetectionResult, cfg models.Config) Recipe {
	publishDir := cfg.PublishDir
	if publishDir == "" {
		publishDir = "."
	}

	buildCommand := cfg.BuildCommand
	if buildCommand == "" && det.Framework != "html" {
		buildCommand = "npm install && npm run build"
	}

	nginxConf := staticNginxConf()

	return Recipe{
		BaseImage:   nginxStaticImage,
		BuildSteps:  rewriteBuildCommand(buildCommand),
		Command:     "nginx -g 'daemon off;'",
		Port:        80,
		Healthcheck: Healthcheck{Kind: "http", HTTPPath: "/", Interval: "30s"},
		AuxFiles: []AuxFile{
			{Path: "nginx.conf", Content: nginxConf},
			{Path: ".rescue-index-html", Content: rescueIndexHTMLScript(publishDir)},
		},
		BuildIgnore: []string{"node_modules", ".git", "dist", ".env"},
		Env:         map[string]string{},
		Labels:      map[string]string{"type": "static"},
	}
}

// staticNginxConf serves publishDir with SPA-style fallback
// (try_files $uri /index.html), gzip, and long-cache headers for static
// assets — generalized from the teacher's per-deployment nginx container,
// baked into a config file instead of relying on bind-mounted defaults.
func staticNginxConf() string {
	return `server {
    listen 80;
    server_name _;
    root /usr/share/nginx/html;
    index index.html;

    gzip on;
    gzip_types text/plain text/css application/javascript application/json image/svg+xml;

    location ~* \.(?:css|js|png|jpg|jpeg|gif|svg|woff2?|ttf)$ {
        expires 30d;
        add_header Cache-Control "public, immutable";
    }

    location / {
        try_files $uri $uri/ /index.html;
    }
}
`
}

// rescueIndexHTMLScript is a shell snippet the build stage runs after the
// user's build command: if publishDir/index.html is missing, it searches
// depth<=2 for any *.html and copies the first match to index.html, failing
// the build if none exists.
func rescueIndexHTMLScript(publishDir string) string {
	return fmt.Sprintf(`#!/bin/sh
set -e
if [ ! -f "%s/index.html" ]; then
  candidate=$(find "%s" -maxdepth 2 -name '*.html' | head -n1)
  if [ -z "$candidate" ]; then
    echo "no index.html or html fallback found in %s" >&2
    exit 1
  fi
  cp "$candidate" "%s/index.html"
fi
`, publishDir, publishDir, publishDir, publishDir)
}
