//go:build windows

package identity

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const biosKey = `HARDWARE\DESCRIPTION\System\BIOS`

type unameResult struct {
	NodeName string
	Version  string
	Machine  string
}

func platformUname() (unameResult, error) {
	v := windows.RtlGetVersion()
	machine := osGetenv("PROCESSOR_ARCHITECTURE")
	if machine == "" {
		machine = strings.ToUpper(runtimeArch)
	}
	return unameResult{
		Version: fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber),
		Machine: machine,
	}, nil
}

// registrySerial reads the SMBIOS system serial the firmware published
// into the registry at boot.
func registrySerial() (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, biosKey, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()

	value, _, err := k.GetStringValue("SystemSerialNumber")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
