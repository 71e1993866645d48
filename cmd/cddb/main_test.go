package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cddb/internal/config"
	"cddb/internal/testsupport"
)

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	testsupport.WriteFile(t, path, string(data))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fixtureOffsetsFlag() string {
	parts := make([]string, 0, len(testsupport.FixtureOffsets))
	for _, off := range testsupport.FixtureOffsets {
		parts = append(parts, strconv.Itoa(off))
	}
	return strings.Join(parts, ",")
}

func readReply() []string {
	lines := []string{"210 rock fe116410 CD database entry follows (until terminating `.')"}
	lines = append(lines, testsupport.FixtureRecord()...)
	return append(lines, ".")
}

func TestDiscIDFromOffsets(t *testing.T) {
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t))
	out, err := runCLI(t, "-c", cfgPath, "discid", "--offsets", fixtureOffsetsFlag(), "--length", "4454")
	if err != nil {
		t.Fatalf("discid: %v", err)
	}
	if !strings.HasPrefix(out, "fe116410 16 150 23627 ") || !strings.HasSuffix(strings.TrimSpace(out), " 4454") {
		t.Fatalf("unexpected discid output: %q", out)
	}
}

func TestDiscIDRequiresLength(t *testing.T) {
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t))
	if _, err := runCLI(t, "-c", cfgPath, "discid", "--offsets", "150,9000"); err == nil {
		t.Fatal("expected error without --length")
	}
}

func TestQueryCommand(t *testing.T) {
	srv := testsupport.NewServer(t, testsupport.ModeCDDBP)
	srv.Handle("cddb query", "211 Found inexact matches, list follows (until terminating `.')",
		"rock fe116410 Fixture Artist / Fixture Album",
		"jazz fe116411 Other Album",
		".")
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t, testsupport.WithServer(srv), testsupport.WithCacheMode("off")))

	out, err := runCLI(t, "-c", cfgPath, "--json", "query", "--offsets", fixtureOffsetsFlag(), "--length", "4454")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var matches []matchJSON
	if err := json.Unmarshal([]byte(out), &matches); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Category != "rock" || matches[0].Artist != "Fixture Artist" || matches[0].Title != "Fixture Album" {
		t.Errorf("unexpected first match: %+v", matches[0])
	}
	if matches[1].DiscID != "fe116411" || matches[1].Title != "Other Album" {
		t.Errorf("unexpected second match: %+v", matches[1])
	}
}

func TestQueryNoMatch(t *testing.T) {
	srv := testsupport.NewServer(t, testsupport.ModeCDDBP)
	srv.Handle("cddb query", "202 No match found.")
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t, testsupport.WithServer(srv), testsupport.WithCacheMode("off")))

	out, err := runCLI(t, "-c", cfgPath, "query", "--offsets", fixtureOffsetsFlag(), "--length", "4454")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(out, "No match for disc fe116410") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestReadCommandCachesRecord(t *testing.T) {
	srv := testsupport.NewServer(t, testsupport.ModeCDDBP)
	srv.Handle("cddb read rock fe116410", readReply()...)
	cfg := testsupport.NewConfig(t, testsupport.WithServer(srv), testsupport.WithCacheMode("on"))
	cfgPath := writeTestConfig(t, cfg)

	out, err := runCLI(t, "-c", cfgPath, "--json", "read", "rock", "fe116410")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var d discJSON
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if d.Artist != "Fixture Artist" || d.Year != 1997 || len(d.Tracks) != 16 {
		t.Fatalf("unexpected record: %+v", d)
	}
	if d.Tracks[0].Title != "Song 1" {
		t.Errorf("first track title = %q", d.Tracks[0].Title)
	}

	out, err = runCLI(t, "-c", cfgPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(out, "1 records") || !strings.Contains(out, "fe116410") {
		t.Fatalf("record missing from cache list: %q", out)
	}

	// cache-only answers from disk
	out, err = runCLI(t, "-c", cfgPath, "--cache", "only", "read", "rock", "fe116410")
	if err != nil {
		t.Fatalf("cache-only read: %v", err)
	}
	if !strings.Contains(out, "Fixture Artist / Fixture Album") {
		t.Fatalf("unexpected cache-only output: %q", out)
	}

	out, err = runCLI(t, "-c", cfgPath, "cache", "remove", "rock", "fe116410")
	if err != nil {
		t.Fatalf("cache remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Cache.Dir, "rock", "fe116410")); !os.IsNotExist(err) {
		t.Fatalf("expected record removed, stat err = %v", err)
	}
}

func TestReadCommandRejectsBadArguments(t *testing.T) {
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t))
	if _, err := runCLI(t, "-c", cfgPath, "read", "polka", "fe116410"); err == nil || !strings.Contains(err.Error(), "unknown category") {
		t.Fatalf("expected unknown category error, got %v", err)
	}
	if _, err := runCLI(t, "-c", cfgPath, "read", "rock", "xyz"); err == nil || !strings.Contains(err.Error(), "invalid disc id") {
		t.Fatalf("expected invalid disc id error, got %v", err)
	}
}

func TestReadCommandDiscNotFound(t *testing.T) {
	srv := testsupport.NewServer(t, testsupport.ModeCDDBP)
	srv.Handle("cddb read", "401 rock fe116410 No such CD entry in database.")
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t, testsupport.WithServer(srv), testsupport.WithCacheMode("off")))

	_, err := runCLI(t, "-c", cfgPath, "read", "rock", "fe116410")
	if err == nil || !strings.Contains(err.Error(), "disc not found") {
		t.Fatalf("expected disc-not-found error, got %v", err)
	}
}

func TestWriteCommand(t *testing.T) {
	srv := testsupport.NewServer(t, testsupport.ModeCDDBP)
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t, testsupport.WithServer(srv), testsupport.WithCacheMode("off")))

	record := filepath.Join(t.TempDir(), "fe116410")
	testsupport.WriteFile(t, record, strings.Join(testsupport.FixtureRecord(), "\n")+"\n")

	out, err := runCLI(t, "-c", cfgPath, "write", "--category", "rock", record)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(out, "Submitted rock fe116410") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !slices.Contains(srv.Commands(), "cddb write rock fe116410") {
		t.Errorf("write command not sent: %q", srv.Commands())
	}
	payloads := srv.Payloads()
	if len(payloads) != 1 || !strings.Contains(payloads[0], "DTITLE=Fixture Artist / Fixture Album") {
		t.Fatalf("unexpected payloads: %q", payloads)
	}
}

func TestWriteCommandRequiresCategory(t *testing.T) {
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t))
	if _, err := runCLI(t, "-c", cfgPath, "write", "record.xmcd"); err == nil {
		t.Fatal("expected error without --category")
	}
}

func TestSitesCommand(t *testing.T) {
	srv := testsupport.NewServer(t, testsupport.ModeCDDBP)
	srv.Handle("sites", "210 OK, site information follows (until terminating `.')",
		"gnudb.gnudb.org http 80 /~cddb/cddb.cgi S033.52 E151.12 Sydney mirror",
		".")
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t, testsupport.WithServer(srv), testsupport.WithCacheMode("off")))

	out, err := runCLI(t, "-c", cfgPath, "sites")
	if err != nil {
		t.Fatalf("sites: %v", err)
	}
	for _, want := range []string{"gnudb.gnudb.org", "http", "/~cddb/cddb.cgi", "S033.52", "E151.12", "Sydney mirror"} {
		if !strings.Contains(out, want) {
			t.Errorf("sites output missing %q:\n%s", want, out)
		}
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheIndex())
	cfgPath := writeTestConfig(t, cfg)
	record := strings.Join(testsupport.FixtureRecord(), "\n") + "\n"
	testsupport.WriteFile(t, filepath.Join(cfg.Cache.Dir, "rock", "fe116410"), record)
	testsupport.WriteFile(t, filepath.Join(cfg.Cache.Dir, "jazz", "0a003c01"), record)

	out, err := runCLI(t, "-c", cfgPath, "cache", "reindex")
	if err != nil {
		t.Fatalf("cache reindex: %v", err)
	}
	if !strings.Contains(out, "Indexed 2 records") {
		t.Fatalf("unexpected reindex output: %q", out)
	}

	out, err = runCLI(t, "-c", cfgPath, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	for _, want := range []string{"Entries:   2", "Index:     yes (2 discs)", "Rock", "Jazz"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "-c", cfgPath, "cache", "show", "rock", "fe116410")
	if err != nil {
		t.Fatalf("cache show: %v", err)
	}
	if !strings.Contains(out, "Song 16") {
		t.Errorf("show output missing last track:\n%s", out)
	}

	out, err = runCLI(t, "-c", cfgPath, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Removed 2 cached records") {
		t.Fatalf("unexpected clear output: %q", out)
	}
}

func TestCacheReindexWithoutIndex(t *testing.T) {
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t))
	if _, err := runCLI(t, "-c", cfgPath, "cache", "reindex"); err == nil || !strings.Contains(err.Error(), "cache.index") {
		t.Fatalf("expected hint about cache.index, got %v", err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration to "+target) {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}

	out, err = runCLI(t, "-c", target, "--server", "cddb.example.net", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "# Config path: "+target) || !strings.Contains(out, "cddb.example.net") {
		t.Fatalf("unexpected show output:\n%s", out)
	}
}

func TestInvalidCacheFlag(t *testing.T) {
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t))
	if _, err := runCLI(t, "-c", cfgPath, "--cache", "sometimes", "cache", "list"); err == nil {
		t.Fatal("expected error for unknown cache mode")
	}
}

func TestCheckCommand(t *testing.T) {
	srv := testsupport.NewServer(t, testsupport.ModeCDDBP)
	cfgPath := writeTestConfig(t, testsupport.NewConfig(t, testsupport.WithServer(srv), testsupport.WithDevice("/dev/null")))

	out, err := runCLI(t, "-c", cfgPath, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{"Cache directory", "created on first write", "Server", "protocol level 6"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
}
