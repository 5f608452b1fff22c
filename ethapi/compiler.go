package ethapi

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/DOIDFoundation/ethnode/rpc"
)

// maxCompilerOutput bounds what is read from solc.
const maxCompilerOutput = 4 << 20

// Compiler runs the solc binary.
type Compiler struct {
	Path    string
	Timeout time.Duration
}

// Available reports whether the binary can be started at all, its exit
// status does not matter.
func (c *Compiler) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	err := exec.CommandContext(ctx, c.Path).Run()
	var exitErr *exec.ExitError
	return err == nil || errors.As(err, &exitErr)
}

// Compile feeds source to solc and returns the bytecode printed on the line
// after the "Binary" marker. Undecodable bytecode yields empty bytes.
func (c *Compiler) Compile(ctx context.Context, source string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Path, "--bin", "--optimize")
	cmd.Stdin = strings.NewReader(source)
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, rpc.Compilation(err.Error())
	}
	if err := cmd.Start(); err != nil {
		return nil, rpc.Compilation(err.Error())
	}
	stdout, readErr := io.ReadAll(io.LimitReader(pipe, maxCompilerOutput+1))
	if len(stdout) > maxCompilerOutput {
		cancel()
		_ = cmd.Wait()
		return nil, rpc.Compilation(fmt.Sprintf("output exceeds %d bytes", maxCompilerOutput))
	}
	err = cmd.Wait()
	if err == nil {
		err = readErr
	}
	if ctx.Err() != nil {
		return nil, rpc.Compilation(ctx.Err().Error())
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, rpc.Compilation(err.Error())
	}

	lines := strings.Split(strings.TrimSuffix(string(stdout), "\n"), "\n")
	for i, line := range lines {
		if !strings.Contains(line, "Binary") {
			continue
		}
		if i+1 >= len(lines) {
			break
		}
		code, err := hex.DecodeString(strings.TrimSpace(lines[i+1]))
		if err != nil {
			return []byte{}, nil
		}
		return code, nil
	}
	return nil, rpc.Compilation("Unexpected output.")
}
