package rust

import (
	"errors"
	"testing"
)

const vaultSrc = `use anchor_lang::prelude::*;

pub const MAX_DEPOSIT: u64 = 1_000_000;

#[program]
pub mod vault {
    use super::*;

    pub fn deposit(ctx: Context<Deposit>, amount: u64) -> Result<()> {
        require!(amount > 0, VaultError::Zero);
        if amount > MAX_DEPOSIT {
            return err!(VaultError::TooLarge);
        } else {
            msg!("ok");
        }
        let fee = amount / 100;
        token::transfer(ctx.accounts.transfer_ctx(), amount - fee)?;
        Ok(())
    }
}

#[derive(Accounts)]
pub struct Deposit<'info> {
    #[account(mut, has_one = authority)]
    pub vault: Account<'info, Vault>,
    /// CHECK: only used as a signer seed
    pub authority: UncheckedAccount<'info>,
}

#[account]
pub struct Vault {
    pub authority: Pubkey,
    pub balance: u64,
}
`

func parse(t *testing.T, src string) *File {
	t.Helper()
	f, err := ParseSource(src)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	return f
}

func TestParseItems(t *testing.T) {
	f := parse(t, vaultSrc)

	var (
		consts  []*ConstItem
		structs []*StructItem
		mods    []*ModItem
	)
	for _, it := range f.Items {
		switch it := it.(type) {
		case *ConstItem:
			consts = append(consts, it)
		case *StructItem:
			structs = append(structs, it)
		case *ModItem:
			mods = append(mods, it)
		}
	}
	if len(consts) != 1 || consts[0].Name != "MAX_DEPOSIT" || consts[0].Raw != "1_000_000" {
		t.Fatalf("consts = %+v", consts)
	}
	if lit, ok := consts[0].Value.(*Lit); !ok || lit.Kind != IntLit {
		t.Errorf("const value = %#v", consts[0].Value)
	}
	if len(mods) != 1 || !mods[0].Inline || !HasAttr(mods[0].Attrs, "program") {
		t.Fatalf("mods = %+v", mods)
	}
	if len(structs) != 2 {
		t.Fatalf("got %d structs", len(structs))
	}

	deposit := structs[0]
	if deposit.Name != "Deposit" || !HasAttr(deposit.Attrs, "derive") {
		t.Errorf("Deposit = %+v", deposit)
	}
	if deposit.Attrs[0].Args != "Accounts" {
		t.Errorf("derive args = %q", deposit.Attrs[0].Args)
	}
	if len(deposit.Fields) != 2 {
		t.Fatalf("Deposit fields = %d", len(deposit.Fields))
	}
	vault := deposit.Fields[0]
	if vault.Type.Name != "Account" || len(vault.Type.Lifetimes) != 1 || len(vault.Type.Args) != 1 || vault.Type.Args[0].Name != "Vault" {
		t.Errorf("vault type = %+v", vault.Type)
	}
	if len(vault.Attrs) != 1 || vault.Attrs[0].Args != "mut, has_one = authority" {
		t.Errorf("vault attrs = %+v", vault.Attrs)
	}
	auth := deposit.Fields[1]
	if len(auth.Docs) != 1 || auth.Docs[0] != "CHECK: only used as a signer seed" {
		t.Errorf("authority docs = %q", auth.Docs)
	}
	if !HasAttr(structs[1].Attrs, "account") {
		t.Errorf("Vault attrs = %+v", structs[1].Attrs)
	}
}

func TestParseFunctionBody(t *testing.T) {
	f := parse(t, vaultSrc)
	fns := f.Functions()
	if len(fns) != 1 {
		t.Fatalf("Functions() = %d", len(fns))
	}
	fn := fns[0]
	if fn.Name != "deposit" || !fn.Public || len(fn.Params) != 2 {
		t.Fatalf("fn = %+v", fn)
	}
	ctx := fn.Params[0]
	if ctx.Name != "ctx" || ctx.Type.Name != "Context" || len(ctx.Type.Args) != 1 || ctx.Type.Args[0].Text != "Deposit" {
		t.Errorf("ctx param = %+v", ctx.Type)
	}

	stmts := fn.Body.Stmts
	if len(stmts) != 5 {
		t.Fatalf("got %d statements", len(stmts))
	}
	req, ok := stmts[0].(*ExprStmt).X.(*MacroExpr)
	if !ok || req.Name() != "require" || req.Tokens != "amount > 0, VaultError::Zero" {
		t.Errorf("stmt 0 = %#v", stmts[0].(*ExprStmt).X)
	}
	ifx, ok := stmts[1].(*ExprStmt).X.(*IfExpr)
	if !ok {
		t.Fatalf("stmt 1 = %T", stmts[1].(*ExprStmt).X)
	}
	if _, ok := ifx.Cond.(*BinaryExpr); !ok {
		t.Errorf("if cond = %T", ifx.Cond)
	}
	if _, ok := ifx.Else.(*BlockExpr); !ok {
		t.Errorf("else = %T", ifx.Else)
	}
	let, ok := stmts[2].(*LetStmt)
	if !ok || len(let.Names) != 1 || let.Names[0] != "fee" {
		t.Errorf("stmt 2 = %#v", stmts[2])
	}
	try, ok := stmts[3].(*ExprStmt).X.(*TryExpr)
	if !ok {
		t.Fatalf("stmt 3 = %T", stmts[3].(*ExprStmt).X)
	}
	call, ok := try.X.(*CallExpr)
	if !ok || call.Callee != "token::transfer" || len(call.Args) != 2 {
		t.Fatalf("call = %#v", try.X)
	}
	if call.Pos.Line != 17 {
		t.Errorf("call line = %d", call.Pos.Line)
	}
	if _, ok := call.Args[0].(*MethodCallExpr); !ok {
		t.Errorf("arg 0 = %T", call.Args[0])
	}
	if last := stmts[4].(*ExprStmt); last.Semi {
		t.Error("tail expression marked with semicolon")
	}
}

func TestParseControlFlow(t *testing.T) {
	f := parse(t, `
fn f(items: Vec<u64>, flag: Option<u64>) {
    for (i, item) in items.iter().enumerate() {
        total += item;
    }
    while let Some(x) = stack.pop() {
        x.checked_add(1);
    }
    if let Some(v) = flag {
        use_it(v);
    }
    match flag {
        Some(n) if n > 3 => burn(n),
        _ => {}
    }
    let double = |a: u64| a * 2;
    vault.data.borrow_mut()[0] = 1;
}
`)
	stmts := f.Functions()[0].Body.Stmts

	loop := stmts[0].(*ExprStmt).X.(*LoopExpr)
	if loop.Kind != For || len(loop.Names) != 2 || loop.Names[1] != "item" {
		t.Errorf("for = %+v", loop)
	}
	if a, ok := loop.Body.Stmts[0].(*ExprStmt).X.(*AssignExpr); !ok || a.Op != "+=" {
		t.Errorf("for body = %#v", loop.Body.Stmts[0])
	}

	wl := stmts[1].(*ExprStmt).X.(*LoopExpr)
	if le, ok := wl.Cond.(*LetExpr); wl.Kind != While || !ok || le.Names[0] != "x" {
		t.Errorf("while let = %+v", wl)
	}

	il := stmts[2].(*ExprStmt).X.(*IfExpr)
	if le, ok := il.Cond.(*LetExpr); !ok || len(le.Names) != 1 || le.Names[0] != "v" {
		t.Errorf("if let cond = %#v", il.Cond)
	}

	m := stmts[3].(*ExprStmt).X.(*MatchExpr)
	if len(m.Arms) != 2 || m.Arms[0].Guard == nil || len(m.Arms[0].Names) != 1 || m.Arms[0].Names[0] != "n" {
		t.Errorf("match = %+v", m.Arms[0])
	}

	if c, ok := stmts[4].(*LetStmt).Value.(*ClosureExpr); !ok || len(c.Params) != 1 {
		t.Errorf("closure = %#v", stmts[4].(*LetStmt).Value)
	}

	a := stmts[5].(*ExprStmt).X.(*AssignExpr)
	if _, ok := a.LHS.(*IndexExpr); !ok {
		t.Errorf("lhs = %T", a.LHS)
	}
}

func TestParseErrorIsSyntaxError(t *testing.T) {
	_, err := ParseSource("pub fn broken( {")
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("err = %v", err)
	}
	var se *SyntaxError
	if !errors.As(err, &se) || se.Pos.Line != 1 {
		t.Errorf("SyntaxError = %+v", se)
	}
}

func TestInspectSkipsNestedItems(t *testing.T) {
	f := parse(t, `
fn outer() {
    fn inner() { transfer(x); }
    invoke(y);
}
`)
	var calls []string
	Inspect(f.Functions()[0].Body, func(n Node) bool {
		if c, ok := n.(*CallExpr); ok {
			calls = append(calls, c.Callee)
		}
		return true
	})
	if len(calls) != 1 || calls[0] != "invoke" {
		t.Errorf("calls = %v", calls)
	}
}
