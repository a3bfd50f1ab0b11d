package engine

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadPassword reads a secret from the terminal without echoing. Falls back
// to plain stdin when no terminal is available (piped input).
func ReadPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	var buf [1024]byte
	n, err := os.Stdin.Read(buf[:])
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(string(buf[:n])), nil
}
