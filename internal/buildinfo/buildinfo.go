package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Info is what the binary knows about how it was built.
type Info struct {
	Version   string
	Revision  string
	Modified  bool
	Tags      string
	GoVersion string
}

var readBuildInfo = debug.ReadBuildInfo

// Read returns the build information, with Version "dev" for local builds.
func Read() Info {
	out := Info{Version: "dev"}
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return out
	}
	out.GoVersion = info.GoVersion
	if v := info.Main.Version; v != "" && v != "(devel)" {
		out.Version = v
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "-tags":
			out.Tags = setting.Value
		case "vcs.revision":
			out.Revision = setting.Value
		case "vcs.modified":
			out.Modified = setting.Value == "true"
		}
	}
	return out
}

// String renders e.g. "v0.3.0 (rev 1a2b3c4d5e6f, tags: netgo)".
func (i Info) String() string {
	var extra []string
	if i.Revision != "" {
		rev := i.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if i.Modified {
			rev += "-dirty"
		}
		extra = append(extra, "rev "+rev)
	}
	if i.Tags != "" {
		extra = append(extra, "tags: "+i.Tags)
	}
	if len(extra) == 0 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, strings.Join(extra, ", "))
}
