package kafka_config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " broker-a:9092 , ,broker-b:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[0] != "broker-a:9092" || cfg.Brokers[1] != "broker-b:9092" {
		t.Errorf("unexpected brokers %v", cfg.Brokers)
	}
	if cfg.ProducerCompression != DefaultProducerCompression {
		t.Errorf("expected default compression, got %s", cfg.ProducerCompression)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	t.Setenv(EnvKafkaProducerCompression, "brotli")
	t.Setenv(EnvKafkaProducerRequireAcks, "7")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"ProducerCompression", "ProducerRequireAcks"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestValidate_SASL(t *testing.T) {
	tests := []struct {
		name      string
		mechanism string
		username  string
		password  string
		wantErr   string
	}{
		{"none", "", "", "", ""},
		{"plain with credentials", "PLAIN", "agent", "secret", ""},
		{"scram without password", "scram-sha-512", "agent", "", "SASLUsername and SASLPassword"},
		{"unknown mechanism", "gssapi", "agent", "secret", "SASLMechanism"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvKafkaSASLMechanism, tt.mechanism)
			t.Setenv(EnvKafkaSASLUsername, tt.username)
			t.Setenv(EnvKafkaSASLPassword, tt.password)

			cfg, err := Load()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if _, err := cfg.Mechanism(); err != nil {
					t.Errorf("unexpected mechanism error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q in %v", tt.wantErr, err)
			}
		})
	}
}

func TestMechanism(t *testing.T) {
	cfg := &Config{SASLMechanism: SASLNone}
	if m, err := cfg.Mechanism(); m != nil || err != nil {
		t.Errorf("expected no mechanism, got %v, %v", m, err)
	}

	cfg = &Config{SASLMechanism: SASLScramSHA256, SASLUsername: "agent", SASLPassword: "secret"}
	m, err := cfg.Mechanism()
	if err != nil || m == nil || m.Name() != "SCRAM-SHA-256" {
		t.Errorf("expected SCRAM-SHA-256, got %v, %v", m, err)
	}

	if cfg.TLS() != nil {
		t.Error("expected nil TLS config when disabled")
	}
	cfg.TLSEnabled = true
	if cfg.TLS() == nil {
		t.Error("expected TLS config when enabled")
	}
}
