package app

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/form3tech-oss/jwt-go"

	"truco/internal/domain"
)

const (
	VoiceActionLogin = "login"
	VoiceActionJoin  = "join"
)

var ErrVoiceDisabled = errors.New("voice config is incomplete")

// VoiceService signs Vivox access tokens. Each team of a match gets its own
// channel so partners can talk without the opponents listening.
type VoiceService struct {
	secret string
	issuer string
	domain string
	ttl    time.Duration
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewVoiceService(secret, issuer, domain string) *VoiceService {
	return &VoiceService{
		secret: secret,
		issuer: issuer,
		domain: domain,
		ttl:    time.Hour,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enabled reports whether tokens can be signed.
func (s *VoiceService) Enabled() bool {
	return s != nil && s.secret != "" && s.issuer != "" && s.domain != ""
}

// TeamChannel names the voice channel of one team in a match.
func TeamChannel(matchCode string, team domain.Team) string {
	return fmt.Sprintf("truco-%s-team%d", matchCode, team)
}

// LoginToken lets a user sign in to the voice service.
func (s *VoiceService) LoginToken(user string) (string, error) {
	return s.GenerateToken(user, VoiceActionLogin, "")
}

// TeamToken lets a seated player join their team's channel in m.
func (s *VoiceService) TeamToken(m *Match, playerID string) (string, string, error) {
	m.mu.Lock()
	pl, err := m.player(playerID)
	m.mu.Unlock()
	if err != nil {
		return "", "", err
	}
	channel := TeamChannel(m.Code(), pl.Team)
	token, err := s.GenerateToken(playerID, VoiceActionJoin, channel)
	return token, channel, err
}

// GenerateToken signs an HS256 Vivox token for action.
func (s *VoiceService) GenerateToken(user, action, channel string) (string, error) {
	if user == "" {
		return "", fmt.Errorf("user is required")
	}
	if !s.Enabled() {
		return "", ErrVoiceDisabled
	}

	from := s.userURI(user)
	to, err := s.targetURI(action, channel, from)
	if err != nil {
		return "", err
	}

	now := s.now()
	s.mu.Lock()
	nonce := s.rng.Int63()
	s.mu.Unlock()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": user,
		"exp": now.Add(s.ttl).Unix(),
		"vxa": action,
		"vxi": fmt.Sprintf("%d-%d", now.UnixNano(), nonce),
		"f":   from,
		"t":   to,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
}

func (s *VoiceService) userURI(user string) string {
	return "sip:." + s.issuer + "." + user + ".@" + s.domain
}

func (s *VoiceService) channelURI(channel string) string {
	return "sip:confctl-g-" + channel + "@" + s.domain
}

func (s *VoiceService) targetURI(action, channel, from string) (string, error) {
	switch action {
	case VoiceActionLogin:
		return from, nil
	case VoiceActionJoin:
		if channel == "" {
			return "", fmt.Errorf("channel name is required for join tokens")
		}
		return s.channelURI(channel), nil
	}
	return "", fmt.Errorf("unsupported voice action: %s", action)
}
