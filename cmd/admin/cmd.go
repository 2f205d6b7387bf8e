package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/noah-isme/coursehub-api/internal/models"
)

const minPasswordLength = 8

var (
	readPasswordFunc = term.ReadPassword

	errHelp = errors.New("help provided")
)

type adminCreator interface {
	Create(ctx context.Context, name, email, password string) (*models.Admin, error)
}

type migrator func(command string, args ...string) error

type commandLine struct {
	admins  adminCreator
	migrate migrator
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|down|status|version|redo - manage the database schema")
	fmt.Fprintln(cli.out, "  create-admin -email EMAIL -name NAME - create an administrator, the password is prompted next")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	createAdminCmd.SetOutput(cli.out)
	adminEmail := createAdminCmd.String("email", "", "Login email of the administrator.")
	adminName := createAdminCmd.String("name", "", "Display name of the administrator.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if err := cli.migrate(args[2], args[3:]...); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "migrate %s: done\n", args[2])
		return nil

	case "create-admin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if strings.TrimSpace(*adminEmail) == "" || strings.TrimSpace(*adminName) == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) < minPasswordLength {
			return fmt.Errorf("password must be at least %d characters", minPasswordLength)
		}
		admin, err := cli.admins.Create(ctx, *adminName, *adminEmail, string(pwd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "admin %s created (%s)\n", admin.Email, admin.ID)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}
