package model

import (
	"errors"
	"testing"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    TargetKind
		wantErr bool
	}{
		{name: "plain IPv4", input: "1.2.3.4", want: TargetIP},
		{name: "IPv4 with max octets", input: "255.255.255.255", want: TargetIP},
		{name: "IPv4 with surrounding space", input: "  8.8.8.8 ", want: TargetIP},
		{name: "simple domain", input: "example.com", want: TargetDomain},
		{name: "subdomain with hyphen", input: "api-v2.example.co.uk", want: TargetDomain},
		{name: "octet out of range", input: "256.1.1.1", wantErr: true},
		{name: "three octets", input: "1.2.3", wantErr: true},
		{name: "free text", input: "not a target!!", wantErr: true},
		{name: "single letter TLD", input: "example.c", wantErr: true},
		{name: "numeric TLD", input: "example.123", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "URL with scheme", input: "https://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTarget(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTarget(%q) expected error, got %+v", tt.input, got)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected *ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Kind != tt.want {
				t.Errorf("kind = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestTargetKindString(t *testing.T) {
	t.Parallel()

	if TargetIP.String() != "ip" {
		t.Errorf("TargetIP.String() = %q", TargetIP.String())
	}
	if TargetDomain.String() != "domain" {
		t.Errorf("TargetDomain.String() = %q", TargetDomain.String())
	}
	if TargetKind(0).String() != "unknown" {
		t.Errorf("zero kind String() = %q", TargetKind(0).String())
	}
}
