//go:build linux || darwin || freebsd || netbsd || openbsd

package identity

import "golang.org/x/sys/unix"

type unameResult struct {
	NodeName string
	Version  string
	Machine  string
}

func platformUname() (unameResult, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return unameResult{}, err
	}
	return unameResult{
		NodeName: unix.ByteSliceToString(u.Nodename[:]),
		Version:  unix.ByteSliceToString(u.Version[:]),
		Machine:  unix.ByteSliceToString(u.Machine[:]),
	}, nil
}

func registrySerial() (string, error) {
	return "", ErrUnsupported
}
