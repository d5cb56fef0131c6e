// Command birdie-admin manages admin accounts and backups of a birdie database.
//
//	birdie-admin create  -username U -password P [-label L]
//	birdie-admin passwd  -username U -password P
//	birdie-admin label   -username U -label L
//	birdie-admin backup  -out FILE -passphrase S
//	birdie-admin restore -in FILE [-out DB] -passphrase S [-force]
//
// Every subcommand accepts -db PATH, defaulting to BIRDIE_DB_PATH.
// The passphrase may also come from BIRDIE_BACKUP_PASSPHRASE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/birdieclub/birdie/internal/backup"
	"github.com/birdieclub/birdie/internal/config"
	"github.com/birdieclub/birdie/internal/database"
	"github.com/birdieclub/birdie/internal/store"
)

const usage = `usage: birdie-admin <command> [flags]

commands:
  create   create an admin account
  passwd   reset an admin password and sign out its sessions
  label    rename the custom member column for an admin
  backup   write an encrypted snapshot of the database
  restore  decrypt a snapshot into a database file
`

var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "birdie-admin:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "create":
		return runCreate(args, out)
	case "passwd":
		return runPasswd(args, out)
	case "label":
		return runLabel(args, out)
	case "backup":
		return runBackup(ctx, args, out)
	case "restore":
		return runRestore(ctx, args, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	dbPath := fs.String("db", config.DefaultDBPath(), "database path")
	return fs, dbPath
}

func hashPassword(password string) (string, error) {
	if len(password) < 4 {
		return "", errors.New("password must be at least 4 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func runCreate(args []string, out io.Writer) error {
	fs, dbPath := newFlagSet("create")
	username := fs.String("username", "", "admin username")
	password := fs.String("password", "", "admin password")
	label := fs.String("label", "", "custom column label")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name := strings.TrimSpace(*username)
	if name == "" {
		return errors.New("-username is required")
	}
	hash, err := hashPassword(*password)
	if err != nil {
		return err
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	admins := store.NewAdminStore(db)
	if existing, err := admins.GetByUsername(name); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("admin %q already exists", name)
	}

	admin, err := admins.Create(name, hash, strings.TrimSpace(*label))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created admin %q (id %d)\n", admin.Username, admin.ID)
	return nil
}

func runPasswd(args []string, out io.Writer) error {
	fs, dbPath := newFlagSet("passwd")
	username := fs.String("username", "", "admin username")
	password := fs.String("password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	hash, err := hashPassword(*password)
	if err != nil {
		return err
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	admins := store.NewAdminStore(db)
	admin, err := admins.GetByUsername(strings.TrimSpace(*username))
	if err != nil {
		return err
	}
	if admin == nil {
		return fmt.Errorf("admin %q not found", *username)
	}
	if err := admins.UpdatePassword(admin.ID, hash); err != nil {
		return err
	}
	if err := store.NewSessionStore(db, store.DefaultSessionTTL).DeleteByAdminID(admin.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "password updated for %q; existing sessions signed out\n", admin.Username)
	return nil
}

func runLabel(args []string, out io.Writer) error {
	fs, dbPath := newFlagSet("label")
	username := fs.String("username", "", "admin username")
	label := fs.String("label", "", "custom column label")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.TrimSpace(*label)
	if text == "" {
		return errors.New("-label is required")
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	admins := store.NewAdminStore(db)
	admin, err := admins.GetByUsername(strings.TrimSpace(*username))
	if err != nil {
		return err
	}
	if admin == nil {
		return fmt.Errorf("admin %q not found", *username)
	}
	if _, err := admins.UpdateCustom1Label(admin.ID, text); err != nil {
		return err
	}
	fmt.Fprintf(out, "label for %q set to %q\n", admin.Username, text)
	return nil
}

func passphraseFlag(fs *flag.FlagSet) *string {
	return fs.String("passphrase", os.Getenv("BIRDIE_BACKUP_PASSPHRASE"), "encryption passphrase")
}

func runBackup(ctx context.Context, args []string, out io.Writer) error {
	fs, dbPath := newFlagSet("backup")
	outPath := fs.String("out", "", "backup file to write")
	passphrase := passphraseFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		return errors.New("-out is required")
	}
	if *passphrase == "" {
		return errors.New("-passphrase is required")
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := backup.Snapshot(ctx, db, *outPath, *passphrase)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d bytes)\n", *outPath, n)
	return nil
}

func runRestore(ctx context.Context, args []string, out io.Writer) error {
	fs, dbPath := newFlagSet("restore")
	inPath := fs.String("in", "", "backup file to read")
	outPath := fs.String("out", "", "database file to create (default -db)")
	force := fs.Bool("force", false, "replace an existing database file")
	passphrase := passphraseFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("-in is required")
	}
	if *outPath == "" {
		*outPath = *dbPath
	}

	if err := backup.Restore(ctx, *inPath, *outPath, *passphrase, *force); err != nil {
		return err
	}
	fmt.Fprintf(out, "restored %s to %s\n", *inPath, *outPath)
	return nil
}
