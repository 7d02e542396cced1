package bwtest

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcharness/rpc"
	"github.com/testcontainers/testcontainers-go"
	tcwait "github.com/testcontainers/testcontainers-go/wait"
)

const (
	// defaultBitcoindImage is the image run by the docker backend.
	defaultBitcoindImage = "bitcoin/bitcoin:28.1"

	// containerRPCPort is the regtest RPC port inside the container.
	containerRPCPort = "18443/tcp"
)

// ContainerBackend is a Backend running bitcoind in a docker container.
type ContainerBackend struct {
	image     string
	logDir    string
	container testcontainers.Container
	host      string
}

// NewContainerBackend creates a backend that runs image and saves the
// container output under logDir when stopped. The container is created on
// Start.
func NewContainerBackend(t *testing.T, image,
	logDir string) *ContainerBackend {

	t.Helper()

	return &ContainerBackend{image: image, logDir: logDir}
}

// Name returns the identifier of the backend.
func (c *ContainerBackend) Name() string {
	return backendDocker
}

// Start runs the container and waits until bitcoind serves RPC on the mapped
// port.
func (c *ContainerBackend) Start(ctx context.Context) error {
	cmd := append(regtestArgs(),
		"-printtoconsole",
		"-rpcbind=0.0.0.0",
		"-rpcallowip=0.0.0.0/0",
	)

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        c.image,
			Cmd:          cmd,
			ExposedPorts: []string{containerRPCPort},
			WaitingFor: tcwait.ForListeningPort(containerRPCPort).
				WithStartupTimeout(defaultTestTimeout),
		},
		Started: true,
	}

	container, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		return fmt.Errorf("start bitcoind container: %w", err)
	}
	c.container = container

	host, err := container.Host(ctx)
	if err != nil {
		_ = c.Stop()
		return fmt.Errorf("container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, containerRPCPort)
	if err != nil {
		_ = c.Stop()
		return fmt.Errorf("container rpc port: %w", err)
	}

	c.host = net.JoinHostPort(host, mapped.Port())

	if err := waitReady(c.host); err != nil {
		_ = c.Stop()
		return fmt.Errorf("bitcoind container not ready: %w", err)
	}

	return nil
}

// Stop saves the container output and terminates the container.
func (c *ContainerBackend) Stop() error {
	if c.container == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(
		context.Background(), defaultTestTimeout,
	)
	defer cancel()

	saveErr := c.saveLogs(ctx)

	err := c.container.Terminate(ctx)
	c.container = nil

	if err != nil {
		return fmt.Errorf("terminate bitcoind container: %w", err)
	}

	return saveErr
}

// saveLogs copies the container output, which bitcoind writes with
// -printtoconsole, to the backend log directory.
func (c *ContainerBackend) saveLogs(ctx context.Context) error {
	if c.logDir == "" {
		return nil
	}

	logs, err := c.container.Logs(ctx)
	if err != nil {
		return fmt.Errorf("read container logs: %w", err)
	}
	defer logs.Close()

	path := filepath.Join(c.logDir, containerLogFilename)

	// #nosec G304 -- path is created by the test harness.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC,
		harnessLogFilePerm)
	if err != nil {
		return fmt.Errorf("create container log: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, logs); err != nil {
		return fmt.Errorf("write container log: %w", err)
	}

	return nil
}

// RPCConfig returns the connection settings of the containerized daemon.
func (c *ContainerBackend) RPCConfig() rpc.Config {
	return rpc.Config{
		Host: c.host,
		User: harnessRPCUser,
		Pass: harnessRPCPass,
	}
}

// LogDir returns the directory the container output is saved to.
func (c *ContainerBackend) LogDir() string {
	return c.logDir
}

var _ Backend = (*ContainerBackend)(nil)
