package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"gblog/internal/auth"
)

// gblog-admin produces the BLOG_ADMIN_HASH value so the admin address
// never has to appear in plain text in the environment.
func main() {
	args := os.Args[1:]
	cmd := "hash"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "hash":
		if err := hashAddress(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "verify":
		if err := verifyAddress(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gblog-admin [hash|verify]")
}

func hashAddress() error {
	address, err := promptAddress("Admin address: ")
	if err != nil {
		return err
	}
	confirm, err := promptAddress("Confirm: ")
	if err != nil {
		return err
	}
	if address != confirm {
		return errors.New("addresses do not match")
	}

	hash, err := auth.HashAddress(address)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "set this as BLOG_ADMIN_HASH:")
	fmt.Fprintln(os.Stdout, hash)
	return nil
}

func verifyAddress() error {
	phc := strings.TrimSpace(os.Getenv("BLOG_ADMIN_HASH"))
	if phc == "" {
		return errors.New("BLOG_ADMIN_HASH is not set")
	}
	parsed, err := auth.ParseArgon2idHash(phc)
	if err != nil {
		return err
	}
	address, err := promptAddress("Address to check: ")
	if err != nil {
		return err
	}
	if !parsed.Verify(address) {
		return errors.New("address does not match")
	}
	fmt.Fprintln(os.Stderr, "address matches")
	return nil
}

func promptAddress(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read address: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(string(raw))), nil
}
