package host

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Info содержит сведения о CLI и платформе для команды version и User-Agent.
type Info struct {
	CLIVersion      string `json:"cliVersion"`
	GoVersion       string `json:"goVersion"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platformVersion,omitempty"`
	KernelVersion   string `json:"kernelVersion,omitempty"`
	Arch            string `json:"arch"`
}

// Describe собирает сведения о платформе через gopsutil.
func Describe(ctx context.Context, version string) (Info, error) {
	info := Info{
		CLIVersion: version,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
	hInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return info, fmt.Errorf("host info: %w", err)
	}
	if hInfo.Platform != "" {
		info.Platform = hInfo.Platform
	}
	info.PlatformVersion = hInfo.PlatformVersion
	info.KernelVersion = hInfo.KernelVersion
	if hInfo.KernelArch != "" {
		info.Arch = hInfo.KernelArch
	}
	return info, nil
}

// UserAgent формирует заголовок User-Agent: "cloudctl/1.0 (linux ubuntu 22.04; x86_64) go1.22".
func (i Info) UserAgent() string {
	platform := strings.TrimSpace(i.Platform + " " + i.PlatformVersion)
	return fmt.Sprintf("cloudctl/%s (%s; %s) %s", i.CLIVersion, platform, i.Arch, i.GoVersion)
}
