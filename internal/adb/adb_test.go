package adb

import (
	"errors"
	"testing"
)

func TestParseDevices_SkipsHeaderAndBlankLines(t *testing.T) {
	out := "List of devices attached\nABC123\tdevice\n\nemulator-5554\tunauthorized\nXYZ\toffline"

	devices := parseDevices(out)
	if len(devices) != 3 {
		t.Fatalf("parseDevices() returned %d devices; want 3", len(devices))
	}
	if devices[0].Serial != "ABC123" || devices[0].State != StateDevice {
		t.Errorf("devices[0] = %+v; want ABC123/device", devices[0])
	}
	if devices[1].State != StateUnauthorized {
		t.Errorf("devices[1].State = %q; want unauthorized", devices[1].State)
	}
	if devices[2].State != StateOffline {
		t.Errorf("devices[2].State = %q; want offline", devices[2].State)
	}
}

func TestParseDevices_UnknownStatus(t *testing.T) {
	devices := parseDevices("List of devices attached\nABC\tsideload")
	if len(devices) != 1 || devices[0].State != StateUnknown {
		t.Errorf("parseDevices() = %+v; want one device with unknown state", devices)
	}
}

func TestParsePackageList_StripsPrefix(t *testing.T) {
	out := "package:com.example.bloat\npackage:com.vendor.weather\nnot-a-package-line\npackage:android"

	packages := parsePackageList(out)
	want := []string{"com.example.bloat", "com.vendor.weather", "android"}
	if len(packages) != len(want) {
		t.Fatalf("parsePackageList() returned %d entries; want %d", len(packages), len(want))
	}
	for i, pkg := range want {
		if packages[i] != pkg {
			t.Errorf("packages[%d] = %q; want %q", i, packages[i], pkg)
		}
	}
}

func TestParsePackageList_EmptyOutput(t *testing.T) {
	if got := parsePackageList(""); len(got) != 0 {
		t.Errorf("parsePackageList(\"\") = %v; want empty", got)
	}
}

func TestParseUsers(t *testing.T) {
	out := "Users:\n\tUserInfo{0:Owner:c13} running\n\tUserInfo{10:Work profile:1030}\n\tgarbage line"

	users := parseUsers(out)
	if len(users) != 2 {
		t.Fatalf("parseUsers() returned %d users; want 2", len(users))
	}
	if users[0].ID != 0 {
		t.Errorf("users[0].ID = %d; want 0", users[0].ID)
	}
	if users[1].ID != 10 {
		t.Errorf("users[1].ID = %d; want 10", users[1].ID)
	}
}

func TestValidPackageID(t *testing.T) {
	invalid := []string{
		"", "   ", ".", "nodots", "com..example", "net.hello.",
		"org.0example", "org._foobar", "EXCLAMATION!!!!",
	}
	for _, id := range invalid {
		if ValidPackageID(id) {
			t.Errorf("ValidPackageID(%q) = true; want false", id)
		}
	}

	valid := []string{
		"A.a", "x.X", "org.example", "com.github.w1nst0n",
		"net.net.net.net.net", "this_.String_.is_.not_.real_",
	}
	for _, id := range valid {
		if !ValidPackageID(id) {
			t.Errorf("ValidPackageID(%q) = false; want true", id)
		}
	}
}

func TestCheckMutationOutput_SuccessVerbs(t *testing.T) {
	if err := checkMutationOutput("Success", expectSuccess); err != nil {
		t.Errorf("checkMutationOutput(Success) = %v; want nil", err)
	}
	// Zero exit status with a Failure marker must still fail: pm's exit
	// code under-reports failures for some command forms.
	err := checkMutationOutput("Failure [not installed for user 0]", expectSuccess)
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("checkMutationOutput(Failure...) = %v; want ErrPackageNotFound", err)
	}
}

func TestCheckMutationOutput_NewStateVerbs(t *testing.T) {
	if err := checkMutationOutput("Package com.example.bloat new state: disabled", expectNewState); err != nil {
		t.Errorf("disable output rejected: %v", err)
	}
	// Some OEM builds print nothing at all on success.
	if err := checkMutationOutput("", expectNewState); err != nil {
		t.Errorf("empty disable output rejected: %v", err)
	}
	err := checkMutationOutput("java.lang.SecurityException: Shell cannot change component state", expectNewState)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("SecurityException output = %v; want ErrPermissionDenied", err)
	}
}

func TestClassifyOutput(t *testing.T) {
	cases := []struct {
		out  string
		want error
	}{
		{"Failure [not installed for user 0]", ErrPackageNotFound},
		{"Unknown package: com.nope", ErrPackageNotFound},
		{"java.lang.SecurityException: permission denied", ErrPermissionDenied},
		{"error: device offline", ErrDeviceUnavailable},
		{"error: device 'ABC' not found", ErrDeviceUnavailable},
		{"error: device unauthorized", ErrTransient},
		{"command timed out", ErrTransient},
		{"something nobody has seen before", ErrTransient},
	}
	for _, tc := range cases {
		if got := classifyOutput(tc.out); !errors.Is(got, tc.want) {
			t.Errorf("classifyOutput(%q) = %v; want %v", tc.out, got, tc.want)
		}
	}
}

func TestCommandError_WrapsSentinel(t *testing.T) {
	err := &CommandError{Verb: "uninstall", Package: "com.example.bloat", Output: "Failure", Err: ErrPackageNotFound}
	if !errors.Is(err, ErrPackageNotFound) {
		t.Error("CommandError should unwrap to its sentinel")
	}
	if err.Error() == "" {
		t.Error("CommandError.Error() should not be empty")
	}
}
