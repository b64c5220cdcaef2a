package webhook

import (
	"strings"
	"testing"
)

func TestComputeHMAC(t *testing.T) {
	for _, payload := range []string{"hello world", "", `{"event":"list.created"}`} {
		got := ComputeHMAC([]byte(payload), "my-secret")
		if !strings.HasPrefix(got, "sha256=") {
			t.Errorf("ComputeHMAC(%q) = %v, want sha256= prefix", payload, got)
		}
		if hexPart := strings.TrimPrefix(got, "sha256="); len(hexPart) != 64 {
			t.Errorf("ComputeHMAC(%q) hex length = %d, want 64", payload, len(hexPart))
		}
		if got != ComputeHMAC([]byte(payload), "my-secret") {
			t.Errorf("ComputeHMAC(%q) is not deterministic", payload)
		}
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"list.updated"}`)
	sig := ComputeHMAC(payload, "s1")

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
		want      bool
	}{
		{"valid", payload, sig, "s1", true},
		{"wrong secret", payload, sig, "s2", false},
		{"tampered payload", []byte(`{"event":"list.deleted"}`), sig, "s1", false},
		{"garbage signature", payload, "sha256=invalid", "s1", false},
		{"empty signature", payload, "", "s1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.payload, tt.signature, tt.secret); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	b, _ := GenerateSecret()
	if !strings.HasPrefix(a, SecretPrefix) {
		t.Errorf("GenerateSecret() = %q, want prefix %q", a, SecretPrefix)
	}
	if a == b {
		t.Error("GenerateSecret() returned the same secret twice")
	}
}
