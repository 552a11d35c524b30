package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	cfg := TrustConfig{
		InstitutionAddr: "198.51.100.7",
		Secret:          "s3cret-token",
		SandboxPassword: "sandbox-pass",
	}

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{
			name: "trusted address and token",
			req:  Request{SourceAddr: "198.51.100.7", Token: "s3cret-token"},
			want: nil,
		},
		{
			name: "unknown address",
			req:  Request{SourceAddr: "203.0.113.9", Token: "s3cret-token"},
			want: ErrAddressNotAuthorized,
		},
		{
			name: "wrong token",
			req:  Request{SourceAddr: "198.51.100.7", Token: "guess"},
			want: ErrInvalidCredential,
		},
		{
			name: "address checked before token",
			req:  Request{SourceAddr: "203.0.113.9", Token: "guess"},
			want: ErrAddressNotAuthorized,
		},
		{
			name: "sandbox override substitutes both anchors",
			req:  Request{SourceAddr: "10.0.0.1", Token: "", SandboxPassword: "sandbox-pass"},
			want: nil,
		},
		{
			name: "wrong sandbox password does not override",
			req:  Request{SourceAddr: "10.0.0.1", Token: "", SandboxPassword: "nope"},
			want: ErrAddressNotAuthorized,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Verify(cfg, c.req)
			if c.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, c.want)
		})
	}
}

func TestVerifySandboxDisabledWhenUnconfigured(t *testing.T) {
	cfg := TrustConfig{InstitutionAddr: "198.51.100.7", Secret: "s3cret-token"}

	// An empty configured password must never match an empty request value.
	err := Verify(cfg, Request{SourceAddr: "10.0.0.1", SandboxPassword: ""})
	require.ErrorIs(t, err, ErrAddressNotAuthorized)
}
