package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"pocketbook/internal/domain/user"
	"pocketbook/internal/infrastructure/postgres"
	"pocketbook/internal/shared/auth"
)

func runCreateUser(args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")

	fs.Usage = func() {
		fmt.Println("Usage: admin create-user --email=<address> --name=<name> [--password=<password>]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *email == "" || *name == "" {
		fmt.Println("Error: must specify --email and --name")
		fs.Usage()
		os.Exit(1)
	}

	password := *passwordFlag
	if password == "" {
		fmt.Print("Password: ")
		var err error
		password, err = readPassword(os.Stdin)
		if err != nil {
			fatal("Failed to read password", err)
		}
		fmt.Println()
	}

	cfg := loadConfig()

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		fatal("Failed to connect to database", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Registration needs neither sessions nor mail.
	users := user.NewService(postgres.NewUserRepository(db), nil, auth.BcryptHasher{}, nil, nil)
	u, err := users.Register(ctx, user.RegisterParams{Name: *name, Email: *email, Password: password})
	if err != nil {
		fatal("Failed to create user", err)
	}

	fmt.Printf("User %s created successfully with ID %d\n", u.Email, u.ID)
}

// readPassword reads without echo from a terminal and falls back to a
// single line for pipes.
func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
