package services_test

import (
	"testing"

	"bart-backend/internal/services"
)

func TestJWTRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	jwtService := services.NewJWTService(cfg)

	token, err := jwtService.GenerateToken("subj-1", "sess-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.ParticipantID != "subj-1" || claims.SessionID != "sess-1" {
		t.Errorf("Claims mismatch: %+v", claims)
	}

	if _, err := jwtService.ValidateToken(token + "tampered"); err == nil {
		t.Error("Tampered token should fail validation")
	}

	otherCfg := testConfig(t)
	otherCfg.Auth.JWTSecret = "different-secret"
	if _, err := services.NewJWTService(otherCfg).ValidateToken(token); err == nil {
		t.Error("Token signed with another secret should fail validation")
	}
}
