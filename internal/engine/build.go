package engine

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"

	"github.com/corvus-paas/control-plane/internal/recipe"
)

// BuildLogLine is one structured record from a build stream: either a
// stdout chunk or a fatal error, matching the Container Engine Driver's
// contract in spec.md §4.3.
type BuildLogLine struct {
	Stream string
	Error  string
}

// Build renders the recipe to a Dockerfile, writes the recipe's auxiliary
// files into contextDir, tars the directory, and streams it to the Docker
// daemon's image build API. onLog is called once per structured record as
// the build progresses; an Error-bearing record is always the last one
// received before Build returns a non-nil error.
func (e *Engine) Build(ctx context.Context, contextDir string, tag string, r recipe.Recipe, onLog func(BuildLogLine)) (string, error) {
	if err := e.precleanBuildTarget(ctx, tag); err != nil {
		e.logger.Warn().Err(err).Str("tag", tag).Msg("pre-build cleanup encountered an error (continuing)")
	}

	if err := materializeRecipeFiles(contextDir, r); err != nil {
		return "", fmt.Errorf("failed to materialize recipe files: %w", err)
	}

	buildContextTar, err := tarDirectory(contextDir)
	if err != nil {
		return "", fmt.Errorf("failed to tar build context: %w", err)
	}

	response, err := e.sdk.ImageBuild(ctx, buildContextTar, build.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start image build for %q: %w", tag, err)
	}
	defer response.Body.Close()

	imageID, buildErr := streamBuildResponse(response.Body, onLog)
	if buildErr != nil {
		return "", buildErr
	}

	return imageID, nil
}

// precleanBuildTarget force-deletes any stale image carrying the derived
// deterministic tag before a new build; a missing image is not an error. It
// does not touch containers: Run removes any container with the target name
// before it creates the new one.
func (e *Engine) precleanBuildTarget(ctx context.Context, tag string) error {
	_, err := e.sdk.ImageRemove(ctx, tag, image.RemoveOptions{Force: true})
	if err != nil && !dockerNotFound(err) {
		return err
	}
	return nil
}

func dockerNotFound(err error) bool {
	return err != nil && (bytes.Contains([]byte(err.Error()), []byte("No such image")) ||
		bytes.Contains([]byte(err.Error()), []byte("no such image")))
}

// materializeRecipeFiles writes the rendered Dockerfile and every AuxFile
// the synthesizer produced into the build context directory.
func materializeRecipeFiles(contextDir string, r recipe.Recipe) error {
	dockerfilePath := filepath.Join(contextDir, "Dockerfile")
	if err := os.WriteFile(dockerfilePath, []byte(RenderDockerfile(r)), 0644); err != nil {
		return err
	}

	if len(r.BuildIgnore) > 0 {
		ignoreContent := ""
		for _, pattern := range r.BuildIgnore {
			ignoreContent += pattern + "\n"
		}
		if err := os.WriteFile(filepath.Join(contextDir, ".dockerignore"), []byte(ignoreContent), 0644); err != nil {
			return err
		}
	}

	for _, aux := range r.AuxFiles {
		destPath := filepath.Join(contextDir, aux.Path)
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(destPath, []byte(aux.Content), 0644); err != nil {
			return err
		}
	}

	return nil
}

// tarDirectory streams contextDir into an in-memory tar archive suitable
// for the Docker build API. Deployment build contexts are small (source
// trees, not datasets), so buffering in memory is acceptable here.
func tarDirectory(contextDir string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := filepath.Walk(contextDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		relPath, err := filepath.Rel(contextDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tw, file)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

// buildStreamRecord mirrors the JSON lines the Docker daemon emits during
// ImageBuild: either a "stream" chunk or an "errorDetail".
type buildStreamRecord struct {
	Stream      string `json:"stream"`
	Error       string `json:"error"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
	Aux struct {
		ID string `json:"ID"`
	} `json:"aux"`
}

// streamBuildResponse decodes the newline-delimited JSON build response,
// invoking onLog per record and extracting the final image ID. A record
// carrying an error is terminal and fatal.
func streamBuildResponse(body io.Reader, onLog func(BuildLogLine)) (string, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var imageID string
	for scanner.Scan() {
		var record buildStreamRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}

		if record.Stream != "" && onLog != nil {
			onLog(BuildLogLine{Stream: record.Stream})
		}
		if record.Aux.ID != "" {
			imageID = record.Aux.ID
		}
		if record.Error != "" {
			if onLog != nil {
				onLog(BuildLogLine{Error: record.Error})
			}
			return "", fmt.Errorf("build failed: %s", record.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read build response stream: %w", err)
	}

	if imageID == "" {
		return "", fmt.Errorf("build completed but no image id was reported")
	}
	return imageID, nil
}

// Prune removes exited containers carrying the given label filter,
// matching the Container Engine Driver's prune(exited, label) capability.
func (e *Engine) Prune(ctx context.Context, labelKey, labelValue string) error {
	args := filters.NewArgs(
		filters.Arg("status", "exited"),
		filters.Arg("label", fmt.Sprintf("%s=%s", labelKey, labelValue)),
	)
	_, err := e.sdk.ContainersPrune(ctx, args)
	return err
}
