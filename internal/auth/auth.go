package auth

import (
	"crypto/subtle"
	"errors"
)

var (
	ErrAddressNotAuthorized = errors.New("address not authorized")
	ErrInvalidCredential    = errors.New("invalid credential")
)

// TrustConfig holds the process-wide trust anchors. Loaded once at startup,
// never mutated afterwards.
type TrustConfig struct {
	InstitutionAddr string
	Secret          string
	// SandboxPassword gates the test-mode override. Empty disables it.
	SandboxPassword string
}

// Request carries the authentication context observed on one inbound batch.
type Request struct {
	SourceAddr string
	Token      string
	// SandboxPassword is the hidden test parameter, if the caller sent one.
	SandboxPassword string
}

// Verify decides ACCEPT (nil) or REJECT for one inbound batch. It is a pure
// function over the request and the trust configuration.
//
// When the sandbox password matches, the institution's address and secret
// are substituted before validation: the test harness proves the pipeline
// without a real institution call.
func Verify(cfg TrustConfig, req Request) error {
	addr, token := req.SourceAddr, req.Token
	if sandboxed(cfg, req) {
		addr = cfg.InstitutionAddr
		token = cfg.Secret
	}

	if addr != cfg.InstitutionAddr {
		return ErrAddressNotAuthorized
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Secret)) != 1 {
		return ErrInvalidCredential
	}
	return nil
}

func sandboxed(cfg TrustConfig, req Request) bool {
	if cfg.SandboxPassword == "" || req.SandboxPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(req.SandboxPassword), []byte(cfg.SandboxPassword)) == 1
}
