package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corvus-paas/control-plane/internal/recipe"
)

func TestRenderDockerfile_IncludesBaseImageEnvStepsAndCommand(t *testing.T) {
	r := recipe.Recipe{
		BaseImage:  "node:20-slim",
		Env:        map[string]string{"NODE_ENV": "production"},
		BuildSteps: []string{"npm install", "npm run build"},
		Port:       3000,
		Command:    "npm start",
	}

	out := RenderDockerfile(r)

	assert.Contains(t, out, "FROM node:20-slim\n")
	assert.Contains(t, out, "WORKDIR /app\n")
	assert.Contains(t, out, "COPY . /app\n")
	assert.Contains(t, out, "ENV NODE_ENV=production\n")
	assert.Contains(t, out, "RUN npm install\n")
	assert.Contains(t, out, "RUN npm run build\n")
	assert.Contains(t, out, "EXPOSE 3000\n")
	assert.Contains(t, out, `CMD ["sh", "-c", "npm start"]`)
}

func TestRenderDockerfile_OmitsEnvAndStepsWhenEmpty(t *testing.T) {
	r := recipe.Recipe{BaseImage: "nginx:alpine", Port: 80, Command: "nginx -g 'daemon off;'"}

	out := RenderDockerfile(r)

	assert.Contains(t, out, "FROM nginx:alpine\n")
	assert.NotContains(t, out, "ENV ")
	assert.NotContains(t, out, "RUN ")
}
