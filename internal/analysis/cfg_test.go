package analysis

import (
	"strings"
	"testing"
)

func TestValidationBeforeBranchIsSafe(t *testing.T) {
	fn, _ := parseFn(t, `fn f(amount: u64, cond: bool) {
    require!(amount < 1000);
    if cond { transfer(amount); }
}`)
	st := NewScopeTracker()
	st.Analyze(fn)
	if v := st.FindViolations(); len(v) != 0 {
		t.Errorf("violations = %+v", v)
	}
	if d, ok := st.ValidationDepth("amount"); !ok || d != 0 {
		t.Errorf("ValidationDepth(amount) = %d, %v", d, ok)
	}
	u := st.Usages()
	if len(u) != 1 || u[0].Depth != 1 {
		t.Errorf("usages = %+v", u)
	}
}

func TestViolationExplanation(t *testing.T) {
	fn, _ := parseFn(t, `fn test() {
    if condition {
        require!(amount > 0);
    }
    token::transfer(ctx, amount);
}`)
	st := NewScopeTracker()
	st.Analyze(fn)
	v := st.FindViolations()
	if len(v) != 1 || v[0].Variable != "amount" {
		t.Fatalf("violations = %+v", v)
	}
	if !strings.Contains(v[0].Explanation, "inside a block (depth 1) but used outside (depth 0)") {
		t.Errorf("explanation = %q", v[0].Explanation)
	}
	if v[0].Location.Line != 5 {
		t.Errorf("location = %+v", v[0].Location)
	}
}

func TestConditionsAndCheckedMathAreNotValidation(t *testing.T) {
	fn, _ := parseFn(t, `fn f(amount: u64) {
    if amount > 10 {
        let x = amount.checked_mul(2);
    }
    transfer(amount);
}`)
	st := NewScopeTracker()
	st.Analyze(fn)
	if _, ok := st.ValidationDepth("amount"); ok {
		t.Error("condition or checked math recorded as validation")
	}
}

func TestUsagesAreNotDeduplicated(t *testing.T) {
	fn, _ := parseFn(t, `fn f(amount: u64, c: bool) {
    if c { require!(amount > 0); }
    transfer(amount);
    transfer(amount);
}`)
	st := NewScopeTracker()
	st.Analyze(fn)
	if v := st.FindViolations(); len(v) != 2 {
		t.Errorf("violations = %+v", v)
	}
}

func TestStopwordsIgnored(t *testing.T) {
	fn, _ := parseFn(t, `fn f(ctx: Context<X>) {
    if flag { require!(ctx.accounts.vault.key() == expected); }
    invoke(ctx.accounts.vault.key(), true);
}`)
	st := NewScopeTracker()
	st.Analyze(fn)
	for _, u := range st.Usages() {
		if scopeStopwords[u.Variable] {
			t.Errorf("stopword %q recorded as usage", u.Variable)
		}
	}
	v := st.FindViolations()
	if len(v) != 1 || v[0].Variable != "vault" {
		t.Errorf("violations = %+v", v)
	}
}
