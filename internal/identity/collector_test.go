package identity

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/hostpin/internal/model"
)

// saveAndRestore saves all function variables and returns a restore function.
func saveAndRestore(t *testing.T) func() {
	t.Helper()
	origHostname := osHostname
	origReadFile := osReadFile
	origGetenv := osGetenv
	origGOOS := runtimeGOOS
	origArch := runtimeArch
	origLookup := lookupIPAddr
	origCommand := execCommand
	origNodeID := uuidNodeID
	origNodeIface := uuidNodeInterface
	origUname := unameInfo

	return func() {
		osHostname = origHostname
		osReadFile = origReadFile
		osGetenv = origGetenv
		runtimeGOOS = origGOOS
		runtimeArch = origArch
		lookupIPAddr = origLookup
		execCommand = origCommand
		uuidNodeID = origNodeID
		uuidNodeInterface = origNodeIface
		unameInfo = origUname
	}
}

type stubSerial struct {
	value string
	err   error
	delay time.Duration
}

func (s stubSerial) Name() string { return "stub" }

func (s stubSerial) Serial(ctx context.Context) (string, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.value, s.err
}

func fakeHost() {
	unameInfo = func() (unameResult, error) {
		return unameResult{NodeName: "surfacepro3x-mxc", Version: "#1 SMP", Machine: "x86_64"}, nil
	}
	osHostname = func() (string, error) { return "surfacepro3x-mxc", nil }
	lookupIPAddr = func(ctx context.Context, host string) ([]net.IPAddr, error) {
		return []net.IPAddr{{IP: net.ParseIP("fe80::1")}, {IP: net.ParseIP("10.0.0.5")}}, nil
	}
	uuidNodeID = func() []byte { return []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff} }
	uuidNodeInterface = func() string { return "eth0" }
	runtimeGOOS = "linux"
}

func TestCollectAllFields(t *testing.T) {
	t.Log("Testing Collect gathers every attribute on a healthy host")
	defer saveAndRestore(t)()
	fakeHost()

	c := NewCollector(Options{Serial: stubSerial{value: " X1 \n"}})
	res := c.Collect(context.Background())

	want := model.Attributes{
		model.KeySystemName:   "SURFACEPRO3X-MXC",
		model.KeyOSFamily:     "Linux",
		model.KeyOSVersion:    "#1 SMP",
		model.KeyArchitecture: "x86_64",
		model.KeyHostname:     "surfacepro3x-mxc",
		model.KeyIPAddress:    "10.0.0.5",
		model.KeyMACAddress:   "aa:bb:cc:dd:ee:ff",
		model.KeySerialNumber: "X1",
	}
	for k, v := range want {
		if res.Attributes[k] != v {
			t.Errorf("%s = %q, want %q", k, res.Attributes[k], v)
		}
	}
	if res.Degraded() {
		t.Errorf("unexpected failures: %v", res.Failures)
	}
}

func TestCollectDegradesSingleField(t *testing.T) {
	t.Log("Testing a failing hostname lookup degrades only dependent fields")
	defer saveAndRestore(t)()
	fakeHost()
	lookupIPAddr = func(ctx context.Context, host string) ([]net.IPAddr, error) {
		return nil, errors.New("no such host")
	}

	res := NewCollector(Options{Serial: stubSerial{value: "X1"}}).Collect(context.Background())

	if res.Attributes[model.KeyIPAddress] != model.Unknown {
		t.Errorf("ip_address = %q, want sentinel", res.Attributes[model.KeyIPAddress])
	}
	if res.Attributes[model.KeySerialNumber] != "X1" {
		t.Errorf("serial_number = %q, want X1", res.Attributes[model.KeySerialNumber])
	}
	if len(res.Failures) != 1 || res.Failed(model.KeyIPAddress) == nil {
		t.Errorf("expected one ip_address failure, got %v", res.Failures)
	}
}

func TestCollectNeverLeavesKeysAbsent(t *testing.T) {
	t.Log("Testing Collect returns every key even when everything fails")
	defer saveAndRestore(t)()
	unameInfo = func() (unameResult, error) { return unameResult{}, ErrUnsupported }
	osHostname = func() (string, error) { return "", errors.New("boom") }
	uuidNodeID = func() []byte { return []byte{1, 2, 3, 4, 5, 6} }
	uuidNodeInterface = func() string { return "random" }
	runtimeGOOS = "plan9"
	runtimeArch = "amd64"

	res := NewCollector(Options{Serial: stubSerial{err: errors.New("exec failed")}}).Collect(context.Background())

	if missing := res.Attributes.Missing(); len(missing) != 0 {
		t.Fatalf("missing keys: %v", missing)
	}
	if got := res.Attributes[model.KeySystemName]; got != "UNKNOWN" {
		t.Errorf("system_name = %q, want upper-cased sentinel", got)
	}
	if got := res.Attributes[model.KeyOSVersion]; got != model.Unsupported {
		t.Errorf("os_version = %q, want %q", got, model.Unsupported)
	}
	if got := res.Attributes[model.KeyArchitecture]; got != "amd64" {
		t.Errorf("architecture = %q, want runtime fallback", got)
	}
	if got := res.Attributes[model.KeyOSFamily]; got != "Plan9" {
		t.Errorf("os_family = %q, want Plan9", got)
	}
	for _, k := range []string{model.KeyHostname, model.KeyIPAddress, model.KeyMACAddress, model.KeySerialNumber} {
		if res.Attributes[k] != model.Unknown {
			t.Errorf("%s = %q, want %q", k, res.Attributes[k], model.Unknown)
		}
	}
}

func TestCollectSerialTimeout(t *testing.T) {
	t.Log("Testing a hanging serial query is bounded and degrades to Unknown")
	defer saveAndRestore(t)()
	fakeHost()

	c := NewCollector(Options{
		SerialTimeout: 20 * time.Millisecond,
		Serial:        stubSerial{value: "late", delay: 2 * time.Second},
	})

	start := time.Now()
	res := c.Collect(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("collect blocked for %s", elapsed)
	}
	if res.Attributes[model.KeySerialNumber] != model.Unknown {
		t.Errorf("serial_number = %q, want %q", res.Attributes[model.KeySerialNumber], model.Unknown)
	}
	fe := res.Failed(model.KeySerialNumber)
	if fe == nil || !errors.Is(fe, context.DeadlineExceeded) {
		t.Errorf("expected deadline failure, got %v", fe)
	}
}

func TestCollectSerialUnsupported(t *testing.T) {
	defer saveAndRestore(t)()
	fakeHost()

	res := NewCollector(Options{Serial: UnsupportedQuery{}}).Collect(context.Background())
	if res.Attributes[model.KeySerialNumber] != model.Unsupported {
		t.Errorf("serial_number = %q, want %q", res.Attributes[model.KeySerialNumber], model.Unsupported)
	}
}

func TestCollectRecoversPanickingQuery(t *testing.T) {
	defer saveAndRestore(t)()
	fakeHost()
	uuidNodeID = func() []byte { panic("no interfaces") }

	res := NewCollector(Options{Serial: stubSerial{value: "X1"}}).Collect(context.Background())
	if res.Attributes[model.KeyMACAddress] != model.Unknown {
		t.Errorf("mac_address = %q, want sentinel", res.Attributes[model.KeyMACAddress])
	}
}

func TestMACAddressRejectsMulticastBit(t *testing.T) {
	defer saveAndRestore(t)()
	uuidNodeInterface = func() string { return "eth0" }
	uuidNodeID = func() []byte { return []byte{0x01, 0x00, 0x5e, 0x00, 0x00, 0xfb} }

	if _, err := macAddress(); !errors.Is(err, ErrRandomizedMAC) {
		t.Fatalf("expected ErrRandomizedMAC, got %v", err)
	}

	uuidNodeID = func() []byte { return []byte{0x02, 0x42, 0xac, 0x11, 0x00, 0x02} }
	mac, err := macAddress()
	if err != nil {
		t.Fatalf("locally administered unicast should pass: %v", err)
	}
	if mac != "02:42:ac:11:00:02" {
		t.Errorf("mac = %q", mac)
	}
}

func TestMACAddressRejectsRandomNode(t *testing.T) {
	defer saveAndRestore(t)()
	uuidNodeID = func() []byte { return []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff} }
	uuidNodeInterface = func() string { return "random" }

	if _, err := macAddress(); !errors.Is(err, ErrRandomizedMAC) {
		t.Fatalf("expected ErrRandomizedMAC, got %v", err)
	}
}

func TestSerialQueryFor(t *testing.T) {
	cases := map[string]string{
		"windows": "wmic",
		"linux":   "sysfs",
		"darwin":  "ioreg",
		"plan9":   "unsupported",
	}
	for goos, want := range cases {
		if got := SerialQueryFor(goos).Name(); got != want {
			t.Errorf("SerialQueryFor(%q) = %s, want %s", goos, got, want)
		}
	}
}

func TestSysfsQuery(t *testing.T) {
	defer saveAndRestore(t)()

	osReadFile = func(name string) ([]byte, error) {
		if name != linuxSerialPath {
			t.Fatalf("unexpected path %s", name)
		}
		return []byte("PF0ABCDE\n"), nil
	}
	got, err := SysfsQuery{Path: linuxSerialPath}.Serial(context.Background())
	if err != nil || got != "PF0ABCDE" {
		t.Errorf("got %q, %v", got, err)
	}

	osReadFile = func(string) ([]byte, error) { return nil, fs.ErrNotExist }
	if _, err := (SysfsQuery{Path: linuxSerialPath}).Serial(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("missing file should be unsupported, got %v", err)
	}

	osReadFile = func(string) ([]byte, error) { return nil, fs.ErrPermission }
	_, err = SysfsQuery{Path: linuxSerialPath}.Serial(context.Background())
	if err == nil || errors.Is(err, ErrUnsupported) {
		t.Errorf("permission error should stay a plain failure, got %v", err)
	}
}

func TestParseWMICSerial(t *testing.T) {
	out := "SerialNumber  \r\r\nPF0XYZ12      \r\r\n\r\r\n"
	got, err := parseWMICSerial(out)
	if err != nil || got != "PF0XYZ12" {
		t.Errorf("got %q, %v", got, err)
	}

	if _, err := parseWMICSerial("SerialNumber\r\n\r\n"); err == nil {
		t.Error("expected error for header-only output")
	}
}

func TestWMICQueryUsesCommandOutput(t *testing.T) {
	defer saveAndRestore(t)()
	execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if name != "wmic" || strings.Join(args, " ") != "bios get serialnumber" {
			t.Fatalf("unexpected command %s %v", name, args)
		}
		return exec.CommandContext(ctx, "echo", "SerialNumber\nABC123")
	}
	got, err := WMICQuery{}.Serial(context.Background())
	if err != nil || got != "ABC123" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestParseIORegSerial(t *testing.T) {
	out := `+-o J314sAP  <class IOPlatformExpertDevice>
    {
      "IOPlatformUUID" = "8A1B2C3D-0000-1111-2222-333344445555"
      "IOPlatformSerialNumber" = "C02XK0AAJGH5"
    }`
	got, err := parseIORegSerial(out)
	if err != nil || got != "C02XK0AAJGH5" {
		t.Errorf("got %q, %v", got, err)
	}
	if _, err := parseIORegSerial("nothing"); err == nil {
		t.Error("expected error without serial line")
	}
}

func TestOSFamily(t *testing.T) {
	cases := map[string]string{
		"linux":   "Linux",
		"windows": "Windows",
		"darwin":  "Darwin",
		"freebsd": "FreeBSD",
	}
	for in, want := range cases {
		if got := osFamily(in); got != want {
			t.Errorf("osFamily(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollectDropsInvalidUTF8(t *testing.T) {
	defer saveAndRestore(t)()
	fakeHost()
	osReadFile = func(string) ([]byte, error) { return []byte("PF0\xffABC\n"), nil }

	c := NewCollector(Options{Serial: SysfsQuery{Path: linuxSerialPath}})
	res := c.Collect(context.Background())

	if got := res.Attributes[model.KeySerialNumber]; got != "PF0ABC" {
		t.Errorf("serial = %q, want %q", got, "PF0ABC")
	}
	if res.Failed(model.KeySerialNumber) != nil {
		t.Error("serial with stray bytes should not degrade")
	}
}

func TestCollectInvalidUTF8OnlyIsUnknown(t *testing.T) {
	defer saveAndRestore(t)()
	fakeHost()
	osReadFile = func(string) ([]byte, error) { return []byte("\xff\xfe\n"), nil }

	c := NewCollector(Options{Serial: SysfsQuery{Path: linuxSerialPath}})
	res := c.Collect(context.Background())

	if got := res.Attributes[model.KeySerialNumber]; got != model.Unknown {
		t.Errorf("serial = %q, want %q", got, model.Unknown)
	}
}
