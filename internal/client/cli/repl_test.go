package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
}

func (f *fakeExec) record(name string, args []string) {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Browse(ctx context.Context) error {
	f.record("browse", nil)
	return nil
}
func (f *fakeExec) Show(ctx context.Context, args []string) error {
	f.record("show", args)
	return nil
}
func (f *fakeExec) Cart(ctx context.Context, args []string) error {
	f.record("cart", args)
	return nil
}
func (f *fakeExec) Wishlist(ctx context.Context, args []string) error {
	f.record("wishlist", args)
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.record("login", nil)
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Signup(ctx context.Context) error {
	f.record("signup", nil)
	return nil
}
func (f *fakeExec) Forgot(ctx context.Context) error {
	f.record("forgot", nil)
	return nil
}
func (f *fakeExec) Reset(ctx context.Context, args []string) error {
	f.record("reset", args)
	return nil
}
func (f *fakeExec) Verify(ctx context.Context, args []string) error {
	f.record("verify", args)
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.record("logout", nil)
	f.loggedIn = false
	return nil
}

func TestRunREPL_DispatchesCommandsInOrder(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"browse",
		"show p1",
		"login",
		"help",
		"cart add p1",
		"wish list",
		"wishlist add p2",
		"",
		"foobar",
		"logout",
		"exit",
	}, "\n"))

	exec := &fakeExec{loggedIn: false}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	wantOrder := []string{"browse", "show", "login", "cart", "wishlist", "wishlist", "logout"}
	if len(exec.calls) != len(wantOrder) {
		t.Fatalf("calls mismatch: got %v, want %v", exec.calls, wantOrder)
	}
	for i, c := range exec.calls {
		if c != wantOrder[i] {
			t.Fatalf("commands order mismatch: got %v, want %v", exec.calls, wantOrder)
		}
	}
}

func TestRunREPL_PassesArgsThrough(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"cart add p7",
		"reset https://craft.example.com/reset-password/tok",
		"verify tok-2",
		"quit",
	}, "\n"))

	exec := &fakeExec{loggedIn: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 3 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	if got := exec.args[0]; len(got) != 2 || got[0] != "add" || got[1] != "p7" {
		t.Fatalf("cart args: %v", got)
	}
	if got := exec.args[1]; len(got) != 1 || got[0] != "https://craft.example.com/reset-password/tok" {
		t.Fatalf("reset args: %v", got)
	}
	if got := exec.args[2]; len(got) != 1 || got[0] != "tok-2" {
		t.Fatalf("verify args: %v", got)
	}
}

func TestRunREPL_RegisterAliasesToSignup(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("register\nexit\n")
	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 1 || exec.calls[0] != "signup" {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}

func TestRunREPL_EOFStopsLoop(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("browse\n")
	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 1 || exec.calls[0] != "browse" {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
