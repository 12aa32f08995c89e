package app

import (
	"fmt"
	"testing"

	"github.com/form3tech-oss/jwt-go"

	"truco/internal/domain"
)

func TestVoiceLoginToken(t *testing.T) {
	svc := NewVoiceService("test-secret", "issuer", "example.com")
	token, err := svc.LoginToken("user123")
	if err != nil {
		t.Fatalf("login token error: %v", err)
	}
	claims := parseVoiceClaims(t, token, "test-secret")
	userURI := "sip:.issuer.user123.@example.com"
	if got := stringClaim(t, claims, "vxa"); got != VoiceActionLogin {
		t.Fatalf("vxa = %s, want %s", got, VoiceActionLogin)
	}
	if got := stringClaim(t, claims, "f"); got != userURI {
		t.Fatalf("f = %s, want %s", got, userURI)
	}
	if got := stringClaim(t, claims, "t"); got != userURI {
		t.Fatalf("t = %s, want %s", got, userURI)
	}
	if got := stringClaim(t, claims, "sub"); got != "user123" {
		t.Fatalf("sub = %s, want user123", got)
	}
}

func TestVoiceTeamToken(t *testing.T) {
	m, err := NewMatch(NewMatchParams{
		Code:    "abc",
		Players: []PlayerSeat{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
	}, Deps{Shuffler: domain.NoShuffle})
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	svc := NewVoiceService("test-secret", "issuer", "example.com")

	token, channel, err := svc.TeamToken(m, "c")
	if err != nil {
		t.Fatalf("team token error: %v", err)
	}
	if channel != "truco-abc-team1" {
		t.Fatalf("channel = %s, want truco-abc-team1", channel)
	}
	claims := parseVoiceClaims(t, token, "test-secret")
	if got := stringClaim(t, claims, "t"); got != "sip:confctl-g-truco-abc-team1@example.com" {
		t.Fatalf("t = %s", got)
	}

	if _, channel, _ = svc.TeamToken(m, "b"); channel != TeamChannel("abc", domain.Team2) {
		t.Fatalf("partner channel = %s", channel)
	}
	if _, _, err := svc.TeamToken(m, "stranger"); err != ErrUnknownPlayer {
		t.Fatalf("unknown player: err = %v", err)
	}
}

func TestVoiceTokenErrors(t *testing.T) {
	svc := NewVoiceService("secret", "issuer", "example.com")
	if _, err := svc.GenerateToken("user", "unknown", ""); err == nil {
		t.Fatal("expected error for unsupported action")
	}
	if _, err := svc.GenerateToken("user", VoiceActionJoin, ""); err == nil {
		t.Fatal("expected error for empty channel name")
	}
	if _, err := svc.GenerateToken("", VoiceActionLogin, ""); err == nil {
		t.Fatal("expected error for empty user")
	}
	if _, err := NewVoiceService("", "issuer", "example.com").LoginToken("user"); err != ErrVoiceDisabled {
		t.Fatalf("missing secret: err = %v", err)
	}
}

func parseVoiceClaims(t *testing.T, tokenString, secret string) jwt.MapClaims {
	t.Helper()
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token error: %v", err)
	}
	if !token.Valid {
		t.Fatal("token is invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not map claims")
	}
	return claims
}

func stringClaim(t *testing.T, claims jwt.MapClaims, name string) string {
	t.Helper()
	value, ok := claims[name]
	if !ok {
		t.Fatalf("missing %s claim", name)
	}
	str, ok := value.(string)
	if !ok {
		t.Fatalf("%s claim is not a string", name)
	}
	return str
}
