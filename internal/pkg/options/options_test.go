package options

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadGeneratesDefaults(t *testing.T) {
	dir := t.TempDir()
	opt, err := Load(dir, "peer1")
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "peer1_mst.toml")); err != nil {
		t.Errorf("config file not generated: %s", err)
	}

	if opt.ExpirationTime() != 24*time.Hour {
		t.Errorf("ExpirationTime() = %s, want 24h", opt.ExpirationTime())
	}
	if opt.GossipInterval() != 5*time.Second || opt.ExpiryCheckInterval() != 10*time.Second || opt.BlockInterval() != 3*time.Second {
		t.Errorf("unexpected intervals: %+v", opt)
	}
	if opt.Topic != "mst" || opt.CompletedCacheSize != 4096 || opt.MaxBatchSize != 100 || !opt.VerifySignatures {
		t.Errorf("unexpected defaults: %+v", opt)
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
Topic = "mst-test"
ExpirationMinutes = 30
GossipIntervalSec = 1
VerifySignatures = false
BootstrapPeers = ["/ip4/127.0.0.1/tcp/4215"]
`
	if err := os.WriteFile(filepath.Join(dir, "peer2_mst.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %s", err)
	}

	opt, err := Load(dir, "peer2")
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if opt.Topic != "mst-test" || opt.ExpirationTime() != 30*time.Minute || opt.GossipInterval() != time.Second {
		t.Errorf("file values not applied: %+v", opt)
	}
	if opt.VerifySignatures {
		t.Errorf("VerifySignatures should be false")
	}
	if opt.BlockIntervalSec != 3 {
		t.Errorf("missing key should fall back to default, got %d", opt.BlockIntervalSec)
	}
	if len(opt.BootstrapPeers) != 1 {
		t.Errorf("BootstrapPeers = %v", opt.BootstrapPeers)
	}
}

func TestLoadInvalidPeer(t *testing.T) {
	dir := t.TempDir()
	content := `BootstrapPeers = ["not-an-address"]`
	if err := os.WriteFile(filepath.Join(dir, "peer3_mst.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %s", err)
	}
	if _, err := Load(dir, "peer3"); err == nil {
		t.Errorf("invalid bootstrap peer accepted")
	}
}
