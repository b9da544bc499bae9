package host

import (
	"context"
	"strings"
	"testing"
)

func TestDescribe(t *testing.T) {
	info, err := Describe(context.Background(), "1.2.3")
	if err != nil {
		t.Skipf("host info unavailable: %v", err)
	}
	if info.CLIVersion != "1.2.3" || info.GoVersion == "" || info.Arch == "" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestUserAgent(t *testing.T) {
	ua := Info{CLIVersion: "0.1.0", GoVersion: "go1.22.1", Platform: "ubuntu", PlatformVersion: "22.04", Arch: "x86_64"}.UserAgent()
	if ua != "cloudctl/0.1.0 (ubuntu 22.04; x86_64) go1.22.1" {
		t.Fatalf("unexpected user agent %q", ua)
	}
	if !strings.HasPrefix(Info{CLIVersion: "dev"}.UserAgent(), "cloudctl/dev") {
		t.Fatalf("unexpected user agent for empty info")
	}
}
