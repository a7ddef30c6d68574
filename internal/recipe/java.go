package recipe

import (
	"strconv"

	"github.com/corvus-paas/control-plane/internal/models"
)

const javaRuntimeImage = "eclipse-temurin:21-jre-alpine"

// synthesizeJava builds the Java service recipe: a two-stage Maven/Gradle
// build when a pom.xml/build.gradle is present, else a single-stage
// prebuilt-JAR runtime. Framework field carries which build tool the
// detector found ("maven"/"gradle"); empty means prebuilt JAR.
func synthesizeJava(det models.DetectionResult, cfg models.Config) Recipe {
	port := cfg.Port
	if port == 0 {
		port = 8080
	}

	var buildSteps []string
	switch det.Framework {
	case "maven":
		buildSteps = []string{"mvn -q -DskipTests package", "cp target/*.jar app.jar"}
	case "gradle":
		buildSteps = []string{"gradle build -x test", "cp build/libs/*.jar app.jar"}
	}
	buildSteps = append(buildSteps, rewriteBuildCommand(cfg.BuildCommand)...)

	return Recipe{
		BaseImage:   javaRuntimeImage,
		BuildSteps:  buildSteps,
		Command:     `java $JAVA_OPTS -Dserver.port=$SERVER_PORT -jar app.jar`,
		Port:        port,
		Healthcheck: Healthcheck{Kind: "http", HTTPPath: healthCheckPathOrDefault(cfg), Interval: "30s"},
		BuildIgnore: []string{"target", ".git", "*.class"},
		Env:         map[string]string{"SERVER_PORT": strconv.Itoa(port)},
		Labels:      map[string]string{},
	}
}
