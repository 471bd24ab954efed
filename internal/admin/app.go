package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
)

// Accounts is the provisioning service driven by the commands.
type Accounts interface {
	CreateAccount(ctx context.Context, username, password string, privileges models.Privileges, expiry *time.Time) (*models.Account, error)
	SetPassword(ctx context.Context, username, password string) (int64, error)
}

const (
	cmdCreateAccount = "create-account"
	cmdSetPassword   = "set-password"
	cmdHelp          = "help"
)

var commands = []string{cmdCreateAccount, cmdSetPassword, cmdHelp}

var ErrUnknownCommand = errors.New("unknown command")

type App struct {
	accounts Accounts
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(accounts Accounts, in io.Reader, out io.Writer) *App {
	return &App{accounts: accounts, reader: bufio.NewReader(in), out: out}
}

// CommandArgs drops everything before the first known command, so the
// server configuration flags can share os.Args with the command.
func CommandArgs(args []string) []string {
	for i, a := range args {
		if slices.Contains(commands, a) {
			return args[i:]
		}
	}
	return nil
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage:")
	fmt.Fprintln(a.out, "  create-account [-delete-enrollment] [-void] [-expires YYYY-MM-DD] [username]")
	fmt.Fprintln(a.out, "  set-password [username]")
}

// Run executes the command in args.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return ErrUnknownCommand
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case cmdCreateAccount:
		return a.createAccount(ctx, rest)
	case cmdSetPassword:
		return a.setPassword(ctx, rest)
	case cmdHelp:
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (a *App) username(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return GetSimpleText(a.reader, "Username", a.out)
}

func (a *App) createAccount(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(cmdCreateAccount, flag.ContinueOnError)
	fs.SetOutput(a.out)
	deleteEnrollment := fs.Bool("delete-enrollment", false, "grant the deleteEnrollment privilege")
	void := fs.Bool("void", false, "grant the void privilege")
	expires := fs.String("expires", "", "account expiry date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var expiry *time.Time
	if *expires != "" {
		t, err := time.Parse(time.DateOnly, *expires)
		if err != nil {
			return fmt.Errorf("invalid -expires: %w", err)
		}
		expiry = &t
	}

	username, err := a.username(fs.Args())
	if err != nil {
		return err
	}
	pw, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}

	account, err := a.accounts.CreateAccount(ctx, username, pw,
		models.Privileges{DeleteEnrollment: *deleteEnrollment, Void: *void}, expiry)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Account %q created (id %d)\n", account.Username, account.ID)
	return nil
}

func (a *App) setPassword(ctx context.Context, args []string) error {
	username, err := a.username(args)
	if err != nil {
		return err
	}
	pw, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}

	revoked, err := a.accounts.SetPassword(ctx, username, pw)
	if err != nil {
		if errors.Is(err, common.ErrAccountNotFound) {
			return fmt.Errorf("no account named %q", username)
		}
		return err
	}

	fmt.Fprintf(a.out, "Password changed, %d session(s) revoked\n", revoked)
	return nil
}
