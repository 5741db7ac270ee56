// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// zkeytool creates and maintains a key database holding transparent, Sprout
// and Sapling keys.
//
// Usage:
//
//	zkeytool [options] <command> [arguments]
//
// Run zkeytool --help for the options and the list of commands.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

func main() {
	os.Exit(zkeytoolMain(os.Args[1:]))
}

// zkeytoolMain is the real main function for zkeytool.  It returns the
// process exit code so deferred functions run before the process exits.
func zkeytoolMain(args []string) int {
	cfg, cmdArgs, err := loadConfig(args)
	if err != nil {
		return 1
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	err = runCommand(newCmdContext(cfg), cmdArgs)
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintf(os.Stderr, "Commands:\n  %s\n",
			strings.Join(commandUsage(), "\n  "))
		return 1
	}
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	return 0
}
