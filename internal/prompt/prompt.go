// Copyright (c) 2015-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package prompt

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassphrase reads a line without echo when stdin is a terminal, and a
// plain line from reader otherwise so passphrases can be piped in.
func readPassphrase(reader *bufio.Reader) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pass, err := term.ReadPassword(fd)
		fmt.Print("\n")
		if err != nil {
			return nil, err
		}
		return bytes.TrimSpace(pass), nil
	}

	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	return bytes.TrimSpace(line), nil
}

// promptList prompts the user with the given prefix, list of valid responses,
// and default list entry to use.  The function will repeat the prompt to the
// user until they enter a valid response.
func promptList(reader *bufio.Reader, prefix string, validResponses []string,
	defaultEntry string) (string, error) {

	validStrings := strings.Join(validResponses, "/")
	prompt := fmt.Sprintf("%s (%s): ", prefix, validStrings)
	if defaultEntry != "" {
		prompt = fmt.Sprintf("%s (%s) [%s]: ", prefix, validStrings,
			defaultEntry)
	}

	for {
		fmt.Print(prompt)
		reply, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		reply = strings.TrimSpace(strings.ToLower(reply))
		if reply == "" {
			reply = defaultEntry
		}

		for _, validResponse := range validResponses {
			if reply == validResponse {
				return reply, nil
			}
		}
	}
}

// Bool prompts the user for a yes/no answer with the given prefix.  The
// prompt is repeated until the user enters a valid response.
func Bool(reader *bufio.Reader, prefix string, defaultEntry string) (bool,
	error) {

	valid := []string{"n", "no", "y", "yes"}
	response, err := promptList(reader, prefix, valid, defaultEntry)
	if err != nil {
		return false, err
	}
	return response == "yes" || response == "y", nil
}

// PassPrompt prompts the user for a passphrase with the given prefix.  When
// confirm is set the user must enter the passphrase twice, and the prompts
// repeat until both entries match.
func PassPrompt(reader *bufio.Reader, prefix string, confirm bool) ([]byte,
	error) {

	prompt := fmt.Sprintf("%s: ", prefix)
	for {
		fmt.Print(prompt)
		pass, err := readPassphrase(reader)
		if err != nil {
			return nil, err
		}
		if len(pass) == 0 {
			continue
		}

		if !confirm {
			return pass, nil
		}

		fmt.Print("Confirm passphrase: ")
		again, err := readPassphrase(reader)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(pass, again) {
			fmt.Println("The entered passphrases do not match")
			continue
		}

		return pass, nil
	}
}

// NewPassphrase prompts for the passphrase that will encrypt a key store.
func NewPassphrase(reader *bufio.Reader) ([]byte, error) {
	return PassPrompt(reader, "Enter the passphrase to encrypt your "+
		"spending keys", true)
}

// Passphrase prompts for the passphrase of an existing encrypted key store.
func Passphrase(reader *bufio.Reader) ([]byte, error) {
	return PassPrompt(reader, "Enter the key store passphrase", false)
}
