package service

import (
	"time"
)

// challengeEnvelope is the plaintext of a sign-in or reset sid. Kind keeps a reset sid from
// completing a sign-in and the other way round.
type challengeEnvelope struct {
	Email string `json:"email"`
	TS    int64  `json:"ts"`
	Kind  string `json:"kind"`
}

const (
	challengeSignIn = "sign_in"
	challengeReset  = "reset"
)

// invitationEnvelope is the plaintext of an invitation; Data is itself a sealed invitationGrant.
type invitationEnvelope struct {
	Data  string `json:"data"`
	Email string `json:"email"`
	TS    int64  `json:"ts"`
}

// invitationGrant binds an invitation to the account whose password hash was current when it was sent.
type invitationGrant struct {
	Hash   string   `json:"hash"`
	Brands []string `json:"brands"`
}

func (s *AuthService) sealChallenge(email, kind string) (string, error) {
	return s.cipher.Seal(challengeEnvelope{Email: email, TS: s.now().Unix(), Kind: kind})
}

// openChallenge returns the email inside sid, or ErrInvalidChallenge when sid is not a live
// challenge of the given kind.
func (s *AuthService) openChallenge(sid, kind string) (string, error) {
	var env challengeEnvelope
	if err := s.cipher.Open(sid, &env); err != nil || env.Email == "" || env.Kind != kind {
		return "", ErrInvalidChallenge
	}
	if expired(env.TS, s.cfg.ChallengeTTL, s.now()) {
		return "", ErrInvalidChallenge
	}
	return env.Email, nil
}

func (s *AuthService) sealInvitation(email, hash string, brands []string) (string, error) {
	if brands == nil {
		brands = []string{}
	}
	data, err := s.cipher.Seal(invitationGrant{Hash: hash, Brands: brands})
	if err != nil {
		return "", err
	}
	return s.cipher.Seal(invitationEnvelope{Data: data, Email: email, TS: s.now().Unix()})
}

// openInvitation returns the outer envelope and the grant it carries, or ErrInvalidInvitation.
func (s *AuthService) openInvitation(token string) (invitationEnvelope, invitationGrant, error) {
	var env invitationEnvelope
	var grant invitationGrant
	if err := s.cipher.Open(token, &env); err != nil {
		return env, grant, ErrInvalidInvitation
	}
	if err := s.cipher.Open(env.Data, &grant); err != nil || grant.Hash == "" {
		return env, grant, ErrInvalidInvitation
	}
	if expired(env.TS, s.cfg.InvitationTTL, s.now()) {
		return env, grant, ErrInvalidInvitation
	}
	return env, grant, nil
}

// expired reports whether an envelope stamped at ts is older than ttl. A zero ttl never expires.
func expired(ts int64, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(time.Unix(ts, 0)) > ttl
}
