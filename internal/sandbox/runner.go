package sandbox

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

// Runner executes test commands in disposable containers with the candidate
// workspace bind-mounted at /workspace. Images are expected to be present
// on the host already. Resource limits guard against candidate programs
// that loop or allocate without bound.
type Runner struct {
	Image       string
	User        string
	CPULimit    float64
	MemoryLimit int64
}

type Result struct {
	Output   []byte
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Exec runs cmdStr with sh -c in a fresh container and waits for it to
// finish. When the context expires first the container is killed and the
// result reports exit 124, matching the shell timeout convention. The
// output is the raw container log stream, stdout and stderr interleaved.
func (r *Runner) Exec(ctx context.Context, workDir, cmdStr string) (*Result, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: workDir,
				Target: "/workspace",
			},
		},
		Init: &initTrue,
	}
	if r.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(r.CPULimit * 1e9)
	}
	if r.MemoryLimit > 0 {
		hostCfg.Memory = r.MemoryLimit
	}
	containerCfg := &container.Config{
		Image:      r.Image,
		Cmd:        []string{"sh", "-c", cmdStr},
		WorkingDir: "/workspace",
		Labels:     map[string]string{"mend": "true"},
	}
	if r.User != "" {
		containerCfg.User = r.User
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	waitResult := cli.ContainerWait(ctx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				return &Result{
					Output:   collectLogs(cli, containerID),
					ExitCode: 124,
					TimedOut: true,
					Duration: time.Since(start),
				}, nil
			}
			// nil means nothing went wrong on this channel; keep waiting
		case status := <-waitResult.Result:
			return &Result{
				Output:   collectLogs(cli, containerID),
				ExitCode: int(status.StatusCode),
				Duration: time.Since(start),
			}, nil
		}
	}
}

func collectLogs(cli *client.Client, containerID string) []byte {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return data
}
