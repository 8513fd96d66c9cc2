package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseWithComments(t *testing.T) {
	o, err := Parse([]byte(`
{
    // proof of work
    "chain": {
        "difficulty": 2,
        "halvingInterval": 3,
        "enforceBalance": true
    },
    "mining": {"maxNonce": 1000000, "workers": 2},
    /* optional services */
    "api": {"host": "127.0.0.1", "port": 8080},
    "storage": {"host": "127.0.0.1", "port": 6379}
}
`))
	if err != nil {
		t.Fatal(err)
	}

	if o.Chain.Difficulty != 2 || o.Chain.HalvingInterval != 3 || !o.Chain.EnforceBalance {
		t.Fatalf("unexpected chain options %+v", o.Chain)
	}
	if o.Chain.Reward() != DefaultBaseReward {
		t.Fatalf("base reward default not applied: %f", o.Chain.Reward())
	}
	if o.Mining.MaxNonce != 1000000 || o.Mining.Workers != 2 || o.Mining.StatsWindow != DefaultStatsWindow {
		t.Fatalf("unexpected mining options %+v", o.Mining)
	}
	if o.API.Addr() != "127.0.0.1:8080" || o.Storage.Addr() != "127.0.0.1:6379" {
		t.Fail()
	}
	if o.Storage.Prefix != DefaultStoragePrefix || o.LogLevel != "info" {
		t.Fail()
	}
}

func TestDefaults(t *testing.T) {
	o := DefaultOptions()
	if o.Chain.Difficulty != DefaultDifficulty || o.Chain.HalvingInterval != DefaultHalvingInterval {
		t.Fail()
	}
	if o.Mining.Workers < 1 || o.API != nil || o.Storage != nil {
		t.Fail()
	}
}

func TestValidate(t *testing.T) {
	for _, raw := range []string{
		`{"chain": {"difficulty": -1}}`,
		`{"chain": {"difficulty": 65}}`,
		`{"chain": {"baseReward": -5}}`,
		`{"api": {"host": "0.0.0.0"}}`,
		`{"chain": `,
	} {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	if err := os.WriteFile(path, []byte("{\"chain\": {\"difficulty\": 1}} // trailing\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	o, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if o.Chain.Difficulty != 1 {
		t.Fail()
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.jsonc")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestToRedisOptions(t *testing.T) {
	ro := &RedisOptions{Network: "tcp", Host: "localhost", Port: 6379, DB: 2}
	opts, err := ro.ToRedisOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.TLSConfig != nil {
		t.Fail()
	}

	ro.TLS = &TLSClientOptions{CertFile: "missing.pem", KeyFile: "missing.key"}
	if _, err := ro.ToRedisOptions(); err == nil {
		t.Fatal("expected error for missing certificates")
	}
}

func TestParseDemo(t *testing.T) {
	o, err := Parse([]byte(`{"demo": true, "logLevel": "debug"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !o.Demo || o.LogLevel != "debug" {
		t.Fatalf("unexpected options %+v", o)
	}
}

func TestParseZeroBaseReward(t *testing.T) {
	o, err := Parse([]byte(`{"chain": {"baseReward": 0, "halvingInterval": 10}}`))
	if err != nil {
		t.Fatal(err)
	}
	if o.Chain.BaseReward == nil || o.Chain.Reward() != 0 {
		t.Fatalf("explicit zero reward replaced: %v", o.Chain.BaseReward)
	}

	o, err = Parse([]byte(`{"chain": {"halvingInterval": 10}}`))
	if err != nil {
		t.Fatal(err)
	}
	if o.Chain.Reward() != DefaultBaseReward {
		t.Fatalf("absent reward not defaulted: %f", o.Chain.Reward())
	}
}
