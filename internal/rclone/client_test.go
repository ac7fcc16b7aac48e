//go:build !windows

package rclone

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeRclone writes a shell script that impersonates the rclone binary and
// returns a Runner pointed at it.
func fakeRclone(t *testing.T, body string) *Runner {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rclone")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return NewRunner(path, nil)
}

func TestListRemotesPreservesOrder(t *testing.T) {
	remotes, err := NewClient(fakeRclone(t, `
case "$1" in
  listremotes) printf 'gdrive:\ndropbox:\n' ;;
  *) exit 9 ;;
esac
`)).ListRemotes(context.Background())
	if err != nil {
		t.Fatalf("ListRemotes: %v", err)
	}
	if len(remotes) != 2 || remotes[0] != "gdrive" || remotes[1] != "dropbox" {
		t.Errorf("remotes = %v, want [gdrive dropbox] in emitted order", remotes)
	}
}

func TestListDirDecodesEntries(t *testing.T) {
	client := NewClient(fakeRclone(t, `
case "$1" in
  lsjson) printf '[{"Path":"docs","Name":"docs","Size":-1,"ModTime":"2024-03-01T10:00:00Z","IsDir":true},{"Path":"a.txt","Name":"a.txt","Size":42,"ModTime":"2024-03-02T10:00:00Z","IsDir":false}]' ;;
  *) exit 9 ;;
esac
`))

	entries, err := client.ListDir(context.Background(), "gdrive:docs")
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if !entries[0].IsDir || entries[0].Name != "docs" || entries[0].Size != -1 {
		t.Errorf("folder entry decoded wrong: %+v", entries[0])
	}
	if entries[1].IsDir || entries[1].Size != 42 {
		t.Errorf("file entry decoded wrong: %+v", entries[1])
	}
}

func TestListDirFailureWrapsListError(t *testing.T) {
	client := NewClient(fakeRclone(t, `echo 'directory not found' >&2; exit 1`))

	_, err := client.ListDir(context.Background(), "gdrive:missing")
	if err == nil {
		t.Fatal("expected error")
	}
	var le *ListError
	if !errors.As(err, &le) {
		t.Fatalf("expected ListError, got %T: %v", err, err)
	}
	cf, ok := AsCommandFailed(err)
	if !ok {
		t.Fatalf("ListError should wrap CommandFailedError: %v", err)
	}
	if cf.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", cf.ExitCode)
	}
}

func TestCopyArgsShape(t *testing.T) {
	args := CopyArgs("gdrive:photos", "/tmp/photos", 500000000)
	if args[0] != "copy" || args[1] != "gdrive:photos" || args[2] != "/tmp/photos" {
		t.Errorf("unexpected copy args: %v", args)
	}
	found := false
	for _, a := range args {
		if a == "--progress" {
			found = true
		}
	}
	if !found {
		t.Error("copy args must include --progress")
	}
}
