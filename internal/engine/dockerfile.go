package engine

import (
	"fmt"
	"strings"

	"github.com/corvus-paas/control-plane/internal/recipe"
)

// RenderDockerfile turns a synthesized Recipe into Dockerfile text. The
// synthesizer never touches the filesystem itself (recipe-determinism law);
// this is the one place a Recipe's abstract build steps become a concrete
// build artifact, kept in the engine package since it is the engine that
// consumes it via ImageBuild.
func RenderDockerfile(r recipe.Recipe) string {
	var b strings.Builder

	fmt.Fprintf(&b, "FROM %s\n", r.BaseImage)
	fmt.Fprintln(&b, "WORKDIR /app")
	fmt.Fprintln(&b, "COPY . /app")

	for key, value := range r.Env {
		fmt.Fprintf(&b, "ENV %s=%s\n", key, value)
	}

	for _, step := range r.BuildSteps {
		fmt.Fprintf(&b, "RUN %s\n", step)
	}

	fmt.Fprintf(&b, "EXPOSE %d\n", r.Port)
	fmt.Fprintf(&b, `CMD ["sh", "-c", %q]`+"\n", r.Command)

	return b.String()
}
