package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/keysmith/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"ClaimID", id.NewClaimID, "claim_"},
		{"RoleID", id.NewRoleID, "role_"},
		{"AssignmentID", id.NewAssignmentID, "urole_"},
		{"ServiceClientID", id.NewServiceClientID, "svc_"},
		{"ClientClaimID", id.NewClientClaimID, "svck_"},
		{"APIKeyID", id.NewAPIKeyID, "key_"},
		{"RefreshTokenID", id.NewRefreshTokenID, "rtk_"},
		{"DenyListID", id.NewDenyListID, "deny_"},
		{"AuditID", id.NewAuditID, "audit_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixRole)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixRole {
		t.Errorf("expected prefix %q, got %q", id.PrefixRole, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"ClaimID", id.NewClaimID, id.ParseClaimID},
		{"RoleID", id.NewRoleID, id.ParseRoleID},
		{"AssignmentID", id.NewAssignmentID, id.ParseAssignmentID},
		{"ServiceClientID", id.NewServiceClientID, id.ParseServiceClientID},
		{"ClientClaimID", id.NewClientClaimID, id.ParseClientClaimID},
		{"APIKeyID", id.NewAPIKeyID, id.ParseAPIKeyID},
		{"RefreshTokenID", id.NewRefreshTokenID, id.ParseRefreshTokenID},
		{"DenyListID", id.NewDenyListID, id.ParseDenyListID},
		{"AuditID", id.NewAuditID, id.ParseAuditID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseRoleID rejects claim_", id.NewClaimID().String(), id.ParseRoleID},
		{"ParseClaimID rejects urole_", id.NewAssignmentID().String(), id.ParseClaimID},
		{"ParseAssignmentID rejects svc_", id.NewServiceClientID().String(), id.ParseAssignmentID},
		{"ParseServiceClientID rejects svck_", id.NewClientClaimID().String(), id.ParseServiceClientID},
		{"ParseClientClaimID rejects key_", id.NewAPIKeyID().String(), id.ParseClientClaimID},
		{"ParseAPIKeyID rejects rtk_", id.NewRefreshTokenID().String(), id.ParseAPIKeyID},
		{"ParseRefreshTokenID rejects deny_", id.NewDenyListID().String(), id.ParseRefreshTokenID},
		{"ParseDenyListID rejects role_", id.NewRoleID().String(), id.ParseDenyListID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseAny(t *testing.T) {
	ids := []id.ID{
		id.NewClaimID(),
		id.NewRoleID(),
		id.NewAssignmentID(),
		id.NewServiceClientID(),
		id.NewClientClaimID(),
		id.NewAPIKeyID(),
		id.NewRefreshTokenID(),
		id.NewDenyListID(),
	}

	for _, i := range ids {
		t.Run(i.String(), func(t *testing.T) {
			parsed, err := id.ParseAny(i.String())
			if err != nil {
				t.Fatalf("ParseAny(%q) failed: %v", i.String(), err)
			}
			if parsed.String() != i.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), i.String())
			}
		})
	}
}

func TestParseWithPrefix(t *testing.T) {
	i := id.NewRoleID()
	parsed, err := id.ParseWithPrefix(i.String(), id.PrefixRole)
	if err != nil {
		t.Fatalf("ParseWithPrefix failed: %v", err)
	}
	if parsed.String() != i.String() {
		t.Errorf("mismatch: %q != %q", parsed.String(), i.String())
	}

	_, err = id.ParseWithPrefix(i.String(), id.PrefixClaim)
	if err == nil {
		t.Error("expected error for wrong prefix")
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	if err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewRoleID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	// Nil round-trip.
	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewServiceClientID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	// NULL scans to the nil ID.
	var nullScanned id.ID
	if err := nullScanned.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !nullScanned.IsNil() {
		t.Error("expected nil ID after scanning NULL")
	}

	// Unsupported source type.
	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
