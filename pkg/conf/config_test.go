package conf

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ferama/ptyctl/pkg/rpty"
)

func TestFullConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata", "full.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	l := cfg.Launch
	if l.Shell != "/bin/bash" || l.Rows != 30 || l.Cols != 120 || l.Dir != "/tmp" {
		t.Fatalf("launch section not parsed: %+v", l)
	}
	if l.Env["TERM"] != "screen" || l.Env["LANG"] != "C.UTF-8" {
		t.Fatalf("env not parsed: %v", l.Env)
	}
	if cfg.Web.ListenAddress != "127.0.0.1:9000" {
		t.Fatalf("web listen address %q", cfg.Web.ListenAddress)
	}
	if !cfg.SshD.DisableSftpSubsystem || cfg.SshD.DisableShell {
		t.Fatal("sshd flags not parsed")
	}
	if cfg.SshD.AuthorizedKeysFile != "" {
		t.Fatal("password auth must not get a default authorized keys file")
	}
}

func TestSshDDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata", "sshd.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Web != nil {
		t.Fatal("web should be nil")
	}
	if cfg.SshD.DisableShell {
		t.Fatal("shell should be enabled by default")
	}
	if cfg.SshD.ListenAddress != ":2222" || cfg.SshD.Key == "" {
		t.Fatalf("defaults not applied: %+v", cfg.SshD)
	}
	if cfg.Launch.Rows != 24 || cfg.Launch.Cols != 80 || cfg.Launch.Shell == "" {
		t.Fatalf("launch defaults not applied: %+v", cfg.Launch)
	}
}

func TestPartialLaunch(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata", "web.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Launch.Rows != 50 || cfg.Launch.Cols != 80 {
		t.Fatalf("launch defaults not merged: %+v", cfg.Launch)
	}
	if cfg.Web.ListenAddress != ":8090" {
		t.Fatalf("web default not applied: %q", cfg.Web.ListenAddress)
	}
}

func TestInvalidConfigs(t *testing.T) {
	_, err := LoadConfig(filepath.Join("testdata", "bad_size.yaml"))
	if !errors.Is(err, rpty.ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := LoadConfig(filepath.Join("testdata", "unknown_field.yaml")); err == nil {
		t.Fatal("unknown fields must be rejected")
	}
	if _, err := LoadConfig(filepath.Join("testdata", "nothing.yaml")); err == nil {
		t.Fatal("a config that runs nothing must be rejected")
	}
	if _, err := LoadConfig("not_exists_path"); err == nil {
		t.Fatal("missing file")
	}
}
