package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/rediset"
)

func TestParsePairs(t *testing.T) {
	zs, err := parsePairs([]string{"1.5", "ann", "-2", "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(zs) != 2 || zs[0] != (rediset.Z{Member: "ann", Score: 1.5}) || zs[1].Score != -2 {
		t.Fatalf("pairs = %v", zs)
	}
	if _, err := parsePairs([]string{"x", "ann"}); err == nil {
		t.Fatalf("expected score parse error")
	}
}

func TestMergeConfig(t *testing.T) {
	dst := Config{Addr: "localhost:6379", Prefix: "cli", LogLevel: "warn"}
	file := Config{Addr: "redis:6379", Prefix: "file", DefaultTTL: time.Minute, LogLevel: "debug", DB: 2}
	mergeConfig(&dst, file, func(name string) bool { return name == "prefix" })

	if dst.Addr != "redis:6379" || dst.Prefix != "cli" || dst.DefaultTTL != time.Minute || dst.LogLevel != "debug" || dst.DB != 2 {
		t.Fatalf("merged = %+v", dst)
	}
}

func TestKeyCommandWithExpr(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "e.yaml")
	if err := os.WriteFile(p, []byte("op: intersection\nchildren: [a, b]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"key", "--memory", "--prefix", "t", "--expr", p})
	t.Cleanup(func() { exprPath, cfg = "", Config{} })
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := strings.TrimSpace(out.String())
	if !strings.HasPrefix(got, "t:rediset:") || len(got) != len("t:rediset:")+64 {
		t.Fatalf("key = %q", got)
	}
}
