package app

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// readLine prints prompt and reads one trimmed line. io.EOF is returned only
// when nothing was read.
func (a *App) readLine(prompt string) (string, error) {
	if prompt != "" {
		a.printf("%s", prompt)
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a password without echo on a terminal. show echoes it,
// and non-terminal input is always read as a plain line.
func (a *App) readPassword(prompt string, show bool) (string, error) {
	if !a.interactive || show {
		return a.readLine(prompt)
	}

	a.printf("%s", prompt)
	b, err := term.ReadPassword(a.inFD)
	a.println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}
