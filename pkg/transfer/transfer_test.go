package transfer

import (
	"net"
	"os"
	"path/filepath"
	"testing"
)

func TestSendReceiveSegmentRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "0")
	want := []byte("segment contents go here")
	if err := os.WriteFile(srcPath, want, 0644); err != nil {
		t.Fatalf("write source segment: %v", err)
	}

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	destDir := t.TempDir()

	errCh := make(chan error, 1)
	go func() {
		errCh <- SendSegment(client, srcPath)
	}()

	destPath, err := ReceiveSegment(server, destDir)
	if err != nil {
		t.Fatalf("ReceiveSegment: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("SendSegment: %v", err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("read received segment: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("received %q; want %q", got, want)
	}
	if filepath.Base(destPath) != "0" {
		t.Fatalf("installed under name %q; want %q", filepath.Base(destPath), "0")
	}
}
