package identity

import (
	"context"
	"net"
	"os"
	"os/exec"
	"runtime"

	"github.com/google/uuid"
)

// Package-level function variables for dependency injection in tests.
var (
	osHostname   = os.Hostname
	osReadFile   = os.ReadFile
	osGetenv     = os.Getenv
	runtimeGOOS  = runtime.GOOS
	runtimeArch  = runtime.GOARCH
	lookupIPAddr = func(ctx context.Context, host string) ([]net.IPAddr, error) {
		return net.DefaultResolver.LookupIPAddr(ctx, host)
	}
	execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, name, args...)
	}
	uuidNodeID        = uuid.NodeID
	uuidNodeInterface = uuid.NodeInterface
	unameInfo         = platformUname
)
