package utils

import (
	"os/user"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	usr, err := user.Current()
	if err != nil {
		t.Skip(err)
	}
	path, err := ExpandUserHome("~/.ssh")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(usr.HomeDir, ".ssh") {
		t.Fatalf("got %s", path)
	}
	path, err = ExpandUserHome("/app/.ssh")
	if err != nil {
		t.Fatal(err)
	}
	if path != "/app/.ssh" {
		t.Fatalf("got %s", path)
	}
}

func TestDefaultShell(t *testing.T) {
	shell := GetUserDefaultShell("notexistsinguser")
	if shell != "/bin/sh" {
		t.Fail()
	}
}

func TestParseEnvList(t *testing.T) {
	env, err := ParseEnvList([]string{"A=1", "B=x=y", "C="})
	if err != nil {
		t.Fatal(err)
	}
	if env["A"] != "1" || env["B"] != "x=y" || env["C"] != "" || len(env) != 3 {
		t.Fatalf("unexpected %v", env)
	}

	if _, err := ParseEnvList([]string{"NOVALUE"}); err == nil {
		t.Fatal("should fail")
	}
	if _, err := ParseEnvList([]string{"=1"}); err == nil {
		t.Fatal("should fail")
	}
}

func TestByteCountSI(t *testing.T) {
	if s := ByteCountSI(999); s != "999 B" {
		t.Fatal(s)
	}
	if s := ByteCountSI(1500); s != "1.5 kB" {
		t.Fatal(s)
	}
}
