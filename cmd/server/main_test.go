package main

import (
	"testing"

	"grocermate/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := map[string]config.Config{
		"short secret":      {AuthSecret: "short"},
		"common password":   {AuthSecret: "0123456789abcdef0123456789abcdef", BootstrapManagerPassword: "Password123"},
		"repeated password": {AuthSecret: "0123456789abcdef0123456789abcdef", BootstrapManagerPassword: "aaaaaaaaaaaa"},
		"short password":    {AuthSecret: "0123456789abcdef0123456789abcdef", BootstrapManagerPassword: "k3y!"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := validateSecurityConfig(cfg); err == nil {
				t.Fatalf("expected weak security config to be rejected")
			}
		})
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", BootstrapManagerPassword: "till-drawer-739154"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
	if err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"}); err != nil {
		t.Fatalf("bootstrap password is optional, got %v", err)
	}
}
