package tools

import "testing"

func TestNormalizeCargoAudit(t *testing.T) {
	raw := []byte(`{
  "vulnerabilities": {
    "found": true,
    "count": 1,
    "list": [{
      "advisory": {"id": "RUSTSEC-2022-0093", "package": "ed25519-dalek", "title": "Double Public Key Signing Function Oracle Attack"},
      "package": {"name": "ed25519-dalek", "version": "1.0.1"}
    }]
  }
}`)
	fs, err := Normalize("cargo-audit", raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 1 || fs[0].RuleID != "RUSTSEC-2022-0093" || fs[0].File != "Cargo.lock" || fs[0].Severity != "high" {
		t.Errorf("findings = %+v", fs)
	}
	if fs[0].Message != "ed25519-dalek 1.0.1: Double Public Key Signing Function Oracle Attack" {
		t.Errorf("message = %q", fs[0].Message)
	}
}

func TestNormalizeClippy(t *testing.T) {
	raw := []byte(`{"reason":"compiler-artifact","target":{"name":"vault"}}
{"reason":"compiler-message","message":{"code":{"code":"clippy::integer_arithmetic"},"level":"warning","message":"integer arithmetic detected","spans":[{"file_name":"src/other.rs","line_start":3,"line_end":3,"is_primary":false},{"file_name":"programs/vault/src/lib.rs","line_start":42,"line_end":43,"is_primary":true}]}}
{"reason":"compiler-message","message":{"code":{"code":"E0308"},"level":"error","message":"mismatched types","spans":[]}}
{"reason":"compiler-message","message":{"code":null,"level":"warning","message":"2 warnings emitted","spans":[]}}
{"reason":"build-finished","success":true}
`)
	fs, err := Normalize("clippy", raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 1 {
		t.Fatalf("findings = %+v", fs)
	}
	f := fs[0]
	if f.RuleID != "clippy::integer_arithmetic" || f.File != "programs/vault/src/lib.rs" || f.StartLine != 42 || f.EndLine != 43 || f.Severity != "low" {
		t.Errorf("finding = %+v", f)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, err := Normalize("cargo-audit", []byte("not json")); err == nil {
		t.Error("expected an error")
	}
}
