//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/glbrange/internal/testutil"
)

const sceneJSON = `{"asset":{"version":"2.0"},"buffers":[{"byteLength":4096}],"bufferViews":[{"buffer":0,"byteOffset":0,"byteLength":1024},{"buffer":0,"byteOffset":1024,"byteLength":3072}]}`

// fixtures are written into the nginx web root.
var fixtures = map[string][]byte{
	"scene.glb":  testutil.BuildGLB(2, testutil.JSONChunk(sceneJSON), testutil.BINChunk(payload())),
	"legacy.glb": testutil.BuildGLB(1, testutil.JSONChunk(sceneJSON)),
}

func payload() []byte {
	b := make([]byte, 4096)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

// --- nginx Container Setup ---

var (
	serverOnce sync.Once
	serverURL  string
	serverErr  error
)

// getServer returns the base URL of the shared nginx container, starting it
// if needed.
func getServer(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	serverOnce.Do(func() {
		serverURL, serverErr = startNginxContainer(context.Background())
	})

	if serverErr != nil {
		tb.Fatalf("start nginx container: %v", serverErr)
	}

	return serverURL
}

func startNginxContainer(ctx context.Context) (string, error) {
	dir, err := os.MkdirTemp("", "glbrange-fixtures")
	if err != nil {
		return "", err
	}
	// Files are copied into the container on start.
	defer os.RemoveAll(dir)

	var files []testcontainers.ContainerFile
	for name, data := range fixtures {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return "", err
		}
		files = append(files, testcontainers.ContainerFile{
			HostFilePath:      path,
			ContainerFilePath: "/usr/share/nginx/html/" + name,
			FileMode:          0o644,
		})
	}

	req := testcontainers.ContainerRequest{
		Image:        "nginx:alpine",
		ExposedPorts: []string{"80/tcp"},
		Files:        files,
		WaitingFor:   wait.ForHTTP("/scene.glb").WithPort("80/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start nginx container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve nginx host: %w", err)
	}

	port, err := container.MappedPort(ctx, "80/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve nginx port: %w", err)
	}

	return fmt.Sprintf("http://%s:%s/", host, port.Port()), nil
}
