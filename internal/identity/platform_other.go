//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package identity

type unameResult struct {
	NodeName string
	Version  string
	Machine  string
}

func platformUname() (unameResult, error) {
	return unameResult{}, ErrUnsupported
}

func registrySerial() (string, error) {
	return "", ErrUnsupported
}
