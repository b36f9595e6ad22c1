package postgres

import (
	"testing"
	"time"

	"github.com/casegate/casegate-backend/internal/config"
)

func TestPoolConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DatabaseConfig{
		DSN:             "postgres://u:p@localhost:5432/casegate",
		MaxConns:        12,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	}
	pc, err := poolConfig(cfg)
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if pc.MaxConns != 12 || pc.MinConns != 2 {
		t.Errorf("conns = %d/%d", pc.MaxConns, pc.MinConns)
	}
	if pc.MaxConnLifetime != time.Hour || pc.MaxConnIdleTime != time.Minute {
		t.Errorf("lifetimes = %v/%v", pc.MaxConnLifetime, pc.MaxConnIdleTime)
	}
	params := pc.ConnConfig.RuntimeParams
	if params["application_name"] != applicationName || params["timezone"] != "UTC" {
		t.Errorf("runtime params = %v", params)
	}
}

func TestPoolConfig_KeepsApplicationNameFromDSN(t *testing.T) {
	t.Parallel()

	pc, err := poolConfig(config.DatabaseConfig{DSN: "postgres://u:p@localhost:5432/casegate?application_name=ledgerctl"})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if got := pc.ConnConfig.RuntimeParams["application_name"]; got != "ledgerctl" {
		t.Errorf("application_name = %q", got)
	}
}

func TestPoolConfig_BadDSN(t *testing.T) {
	t.Parallel()

	if _, err := poolConfig(config.DatabaseConfig{DSN: "postgres://u:p@localhost:notaport/db"}); err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}
