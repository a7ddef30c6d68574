package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvus-paas/control-plane/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDetect_PlainHTML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html></html>")

	result := Detect(dir)
	assert.Equal(t, models.TypeStatic, result.Type)
	assert.Equal(t, models.RuntimeStatic, result.Runtime)
}

func TestDetect_EmptyDirectoryFallsBackToStatic(t *testing.T) {
	dir := t.TempDir()

	result := Detect(dir)
	assert.Equal(t, models.TypeStatic, result.Type)
	assert.Equal(t, ".", result.Config.PublishDir)
}

func TestDetect_DjangoProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "manage.py", "#!/usr/bin/env python\nimport django")
	writeFile(t, dir, "requirements.txt", "django==4.2\n")
	writeFile(t, dir, "myproject/wsgi.py", "application = get_wsgi_application()")

	result := Detect(dir)
	assert.Equal(t, models.TypeService, result.Type)
	assert.Equal(t, models.RuntimePython, result.Runtime)
	assert.Equal(t, "django", result.Framework)
	assert.Equal(t, 8000, result.Config.Port)
	assert.Contains(t, result.Config.StartCommand, "manage.py runserver")
}

func TestDetect_DjangoWithGunicornPrefersProductionRunner(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "manage.py", "import django")
	writeFile(t, dir, "requirements.txt", "django==4.2\ngunicorn==21.2\n")
	writeFile(t, dir, "myproject/wsgi.py", "application = get_wsgi_application()")

	result := Detect(dir)
	assert.Contains(t, result.Config.StartCommand, "gunicorn")
	assert.Contains(t, result.Config.StartCommand, "myproject.wsgi:application")
}

func TestDetect_FlaskProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "from flask import Flask")
	writeFile(t, dir, "requirements.txt", "flask==3.0\n")

	result := Detect(dir)
	assert.Equal(t, models.RuntimePython, result.Runtime)
	assert.Equal(t, "flask", result.Framework)
	assert.Equal(t, 5000, result.Config.Port)
}

func TestDetect_JavaMaven(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pom.xml", "<project></project>")

	result := Detect(dir)
	assert.Equal(t, models.RuntimeJava, result.Runtime)
	assert.Equal(t, "maven", result.Framework)
	assert.Equal(t, 8080, result.Config.Port)
}

func TestDetect_NodeStaticBuildTool(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
		"dependencies": {"react": "^18.0.0", "vite": "^5.0.0"},
		"scripts": {"build": "vite build"}
	}`)

	result := Detect(dir)
	assert.Equal(t, models.TypeStatic, result.Type)
	assert.Equal(t, models.RuntimeNode, result.Runtime)
	assert.Equal(t, "vite", result.Framework)
	assert.Equal(t, "dist", result.Config.PublishDir)
}

func TestDetect_NodeNextUsesOutDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
		"dependencies": {"next": "^14.0.0"},
		"scripts": {"build": "next build"}
	}`)

	result := Detect(dir)
	assert.Equal(t, "next", result.Framework)
	assert.Equal(t, "out", result.Config.PublishDir)
}

func TestDetect_NodeService(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
		"dependencies": {"express": "^4.18.0"},
		"scripts": {"start": "node server.js"}
	}`)

	result := Detect(dir)
	assert.Equal(t, models.TypeService, result.Type)
	assert.Equal(t, "express", result.Framework)
	assert.Equal(t, 3000, result.Config.Port)
	assert.Equal(t, "npm start", result.Config.StartCommand)
}

func TestDetect_NodeServerEntryWithoutFrameworkDep(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"dependencies": {}}`)
	writeFile(t, dir, "server.js", "require('http').createServer().listen(3000)")

	result := Detect(dir)
	assert.Equal(t, models.TypeService, result.Type)
	assert.Equal(t, models.RuntimeNode, result.Runtime)
}

func TestNodeVersionForEngines(t *testing.T) {
	cases := []struct {
		constraint string
		want       int
	}{
		{">=22.0.0", 22},
		{"^20.9.0", 20},
		{"18.x", 18},
		{"16.20.0", 16},
		{"", 18},
		{"not a version", 18},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NodeVersionForEngines(c.constraint), "constraint %q", c.constraint)
	}
}
