package version

import (
	"runtime/debug"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	stamped := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v0.3.1"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			},
		}, true
	}
	devel := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	missing := func() (*debug.BuildInfo, bool) { return nil, false }

	cases := []struct {
		name    string
		ver     string
		commit  string
		read    func() (*debug.BuildInfo, bool)
		want    string
		wantRev string
	}{
		{name: "ldflags-win", ver: "v1.0.0", commit: "abc", read: stamped, want: "v1.0.0", wantRev: "abc"},
		{name: "build-info", read: stamped, want: "v0.3.1", wantRev: "0123456789abcdef0123"},
		{name: "devel", read: devel, want: "dev"},
		{name: "no-info", read: missing, want: "dev"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			info := resolve(tc.ver, tc.commit, "", tc.read)
			if info.Version != tc.want || info.Commit != tc.wantRev {
				t.Fatalf("got %+v", info)
			}
			if info.GoVersion == "" {
				t.Fatal("missing go version")
			}
		})
	}
}

func TestShortCommit(t *testing.T) {
	t.Parallel()
	if got := shortCommit("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("got %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
