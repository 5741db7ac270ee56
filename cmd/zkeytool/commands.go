// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/zkeystore/internal/cfgutil"
	"github.com/btcsuite/zkeystore/internal/prompt"
	"github.com/btcsuite/zkeystore/keydb"
	"github.com/btcsuite/zkeystore/keystore"
	"github.com/btcsuite/zkeystore/zcash"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// errUsage is returned when a command is invoked with bad arguments.
var errUsage = errors.New("invalid command arguments")

// passFunc obtains a passphrase.  confirm requests a second entry for new
// passphrases.
type passFunc func(prefix string, confirm bool) ([]byte, error)

// cmdContext is the state shared by every command invocation.
type cmdContext struct {
	cfg    *config
	reader *bufio.Reader
	out    io.Writer
	pass   passFunc
}

// newCmdContext returns a context reading from stdin and writing to stdout.
func newCmdContext(cfg *config) *cmdContext {
	reader := bufio.NewReader(os.Stdin)
	return &cmdContext{
		cfg:    cfg,
		reader: reader,
		out:    os.Stdout,
		pass: func(prefix string, confirm bool) ([]byte, error) {
			return prompt.PassPrompt(reader, prefix, confirm)
		},
	}
}

type command struct {
	usage   string
	handler func(ctx *cmdContext, args []string) error
}

var commands = map[string]command{
	"create": {
		usage:   "create",
		handler: createKeyStore,
	},
	"newkey": {
		usage:   "newkey",
		handler: newTransparentKey,
	},
	"newsprout": {
		usage:   "newsprout",
		handler: newSproutKey,
	},
	"newsapling": {
		usage:   "newsapling [--noaddr]",
		handler: newSaplingKey,
	},
	"importwatch": {
		usage:   "importwatch <script hex>",
		handler: importWatchOnly,
	},
	"addscript": {
		usage:   "addscript <script hex>",
		handler: addScript,
	},
	"list": {
		usage:   "list",
		handler: listKeyStore,
	},
	"dumpaddrs": {
		usage:   "dumpaddrs",
		handler: dumpAddresses,
	},
	"encrypt": {
		usage:   "encrypt",
		handler: encryptKeyStore,
	},
	"changepass": {
		usage:   "changepass",
		handler: changePassphrase,
	},
}

// commandUsage returns the sorted usage lines of every command.
func commandUsage() []string {
	usages := make([]string, 0, len(commands))
	for _, cmd := range commands {
		usages = append(usages, cmd.usage)
	}
	sort.Strings(usages)
	return usages
}

// runCommand dispatches args[0] to its handler.
func runCommand(ctx *cmdContext, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", errUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	log.Debugf("Running command %s", args[0])
	return cmd.handler(ctx, args[1:])
}

// createKeyStore creates a new, empty key database, optionally encrypted.
func createKeyStore(ctx *cmdContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	exists, err := cfgutil.FileExists(ctx.cfg.dbPath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("key database %s already exists",
			ctx.cfg.dbPath)
	}

	encrypt, err := prompt.Bool(ctx.reader, "Do you want to encrypt "+
		"spending keys with a passphrase?", "no")
	if err != nil {
		return err
	}

	cs := keystore.NewCryptoStore(nil, ctx.cfg.scryptOptions())
	if encrypt {
		pass, err := ctx.pass("Enter the passphrase to encrypt your "+
			"spending keys", true)
		if err != nil {
			return err
		}
		if err := cs.EncryptKeys(pass); err != nil {
			return err
		}
		if err := cs.Lock(); err != nil {
			return err
		}
	}

	err = os.MkdirAll(filepath.Dir(ctx.cfg.dbPath), 0700)
	if err != nil {
		return err
	}
	db, err := keydb.CreateDB(ctx.cfg.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := keydb.Init(db); err != nil {
		return err
	}
	if err := keydb.Save(db, cs); err != nil {
		return err
	}

	log.Infof("Created key database at %s", ctx.cfg.dbPath)
	fmt.Fprintln(ctx.out, "Key database created")
	return nil
}

// storeAccess selects what withStore does around a command.
type storeAccess uint8

const (
	// readStore only loads the key store.
	readStore storeAccess = iota

	// rewriteStore saves the key store after the command without unlocking
	// it first.
	rewriteStore

	// modifyStore unlocks the key store before the command and saves it
	// afterwards.
	modifyStore
)

// withStore opens the key database, loads its key store and runs fn with the
// requested access.
func withStore(ctx *cmdContext, access storeAccess,
	fn func(cs *keystore.CryptoStore) error) error {

	exists, err := cfgutil.FileExists(ctx.cfg.dbPath)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("key database %s does not exist -- run "+
			"create first", ctx.cfg.dbPath)
	}

	db, err := keydb.OpenDB(ctx.cfg.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	cs, err := keydb.Read(db, ctx.cfg.scryptOptions())
	if err != nil {
		return err
	}

	if access == readStore {
		return fn(cs)
	}

	if access == modifyStore && cs.IsLocked() {
		if err := unlockStore(ctx, cs); err != nil {
			return err
		}
		defer func() {
			if err := cs.Lock(); err != nil {
				log.Errorf("Unable to lock key store: %v", err)
			}
		}()
	}

	if err := fn(cs); err != nil {
		return err
	}
	return saveStore(db, cs)
}

// unlockStore prompts for the passphrase of cs until it unlocks.  Errors
// other than a wrong passphrase are returned immediately.
func unlockStore(ctx *cmdContext, cs *keystore.CryptoStore) error {
	for {
		pass, err := ctx.pass("Enter the key store passphrase", false)
		if err != nil {
			return err
		}
		err = cs.Unlock(pass)
		switch {
		case err == nil:
			return nil
		case keystore.IsError(err, keystore.ErrWrongPassphrase):
			fmt.Fprintln(ctx.out, "Incorrect passphrase")
		default:
			return err
		}
	}
}

func saveStore(db walletdb.DB, cs *keystore.CryptoStore) error {
	if err := keydb.Save(db, cs); err != nil {
		return fmt.Errorf("unable to save key store: %w", err)
	}
	return nil
}

func newTransparentKey(ctx *cmdContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	return withStore(ctx, modifyStore, func(cs *keystore.CryptoStore) error {
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			return err
		}
		if !cs.AddKey(priv) {
			return errors.New("unable to add transparent key")
		}

		id := zcash.NewKeyID(priv.PubKey())
		fmt.Fprintln(ctx.out, zcash.EncodePubKeyHashAddress(
			id, ctx.cfg.params,
		))
		return nil
	})
}

func newSproutKey(ctx *cmdContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	return withStore(ctx, modifyStore, func(cs *keystore.CryptoStore) error {
		sk, err := zcash.RandomSproutSpendingKey()
		if err != nil {
			return err
		}
		if !cs.AddSpendingKey(sk) {
			return errors.New("unable to add sprout spending key")
		}

		fmt.Fprintln(ctx.out, zcash.EncodeSproutAddress(
			sk.Address(), ctx.cfg.params,
		))
		return nil
	})
}

// newSaplingOpts are the options of the newsapling command.
type newSaplingOpts struct {
	NoAddr bool `long:"noaddr" description:"Do not index the default payment address"`
}

func newSaplingKey(ctx *cmdContext, args []string) error {
	var opts newSaplingOpts
	rest, err := flags.NewParser(&opts, flags.HelpFlag).ParseArgs(args)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if len(rest) != 0 {
		return errUsage
	}

	return withStore(ctx, modifyStore, func(cs *keystore.CryptoStore) error {
		sk, err := zcash.RandomSaplingSpendingKey()
		if err != nil {
			return err
		}

		addr := fn.Some(sk.DefaultAddress())
		if opts.NoAddr {
			addr = fn.None[zcash.SaplingPaymentAddress]()
		}
		if !cs.AddSaplingSpendingKey(sk, addr) {
			return errors.New("unable to add sapling spending key")
		}

		if opts.NoAddr {
			fvk := sk.FullViewingKey()
			fmt.Fprintln(ctx.out, hex.EncodeToString(fvk.Bytes()))
			return nil
		}
		encoded, err := zcash.EncodeSaplingAddress(
			sk.DefaultAddress(), ctx.cfg.params,
		)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.out, encoded)
		return nil
	})
}

// scriptArg decodes the single hex script argument of a command.
func scriptArg(args []string) ([]byte, error) {
	if len(args) != 1 {
		return nil, errUsage
	}
	script, err := hex.DecodeString(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return script, nil
}

func importWatchOnly(ctx *cmdContext, args []string) error {
	script, err := scriptArg(args)
	if err != nil {
		return err
	}

	return withStore(ctx, modifyStore, func(cs *keystore.CryptoStore) error {
		if cs.HaveWatchOnly(script) {
			fmt.Fprintln(ctx.out, "Script is already watched")
			return nil
		}
		if !cs.AddWatchOnly(script) {
			return errors.New("unable to add watch-only script")
		}
		fmt.Fprintln(ctx.out, "Script imported as watch-only")
		return nil
	})
}

func addScript(ctx *cmdContext, args []string) error {
	script, err := scriptArg(args)
	if err != nil {
		return err
	}

	return withStore(ctx, modifyStore, func(cs *keystore.CryptoStore) error {
		if !cs.AddCScript(script) {
			return fmt.Errorf("script of %d bytes exceeds the "+
				"maximum of %d", len(script),
				zcash.MaxScriptElementSize)
		}

		fmt.Fprintln(ctx.out, zcash.EncodeScriptHashAddress(
			zcash.NewScriptID(script), ctx.cfg.params,
		))
		return nil
	})
}

func listKeyStore(ctx *cmdContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	return withStore(ctx, readStore, func(cs *keystore.CryptoStore) error {
		var sproutSpendable, saplingSpendable int
		for _, addr := range cs.GetPaymentAddresses() {
			if cs.HaveSpendingKey(addr) {
				sproutSpendable++
			}
		}
		fvks := cs.GetSaplingFullViewingKeys()
		for _, fvk := range fvks {
			if cs.HaveSaplingSpendingKey(fvk) {
				saplingSpendable++
			}
		}

		status := "unencrypted"
		if cs.IsCrypted() {
			status = "encrypted"
		}

		w := ctx.out
		fmt.Fprintf(w, "Network:                  %s\n",
			ctx.cfg.params.Name)
		fmt.Fprintf(w, "Status:                   %s\n", status)
		fmt.Fprintf(w, "Transparent keys:         %d\n",
			len(cs.GetKeys()))
		fmt.Fprintf(w, "Redeem scripts:           %d\n",
			len(cs.GetCScripts()))
		fmt.Fprintf(w, "Watch-only scripts:       %d\n",
			len(cs.GetWatchOnly()))
		fmt.Fprintf(w, "Sprout addresses:         %d (%d spendable)\n",
			len(cs.GetPaymentAddresses()), sproutSpendable)
		fmt.Fprintf(w, "Sapling viewing keys:     %d (%d spendable)\n",
			len(fvks), saplingSpendable)
		fmt.Fprintf(w, "Sapling addresses:        %d\n",
			len(cs.GetSaplingPaymentAddresses()))
		return nil
	})
}

func dumpAddresses(ctx *cmdContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	params := ctx.cfg.params
	return withStore(ctx, readStore, func(cs *keystore.CryptoStore) error {
		for _, id := range cs.GetKeys() {
			fmt.Fprintln(ctx.out, zcash.EncodePubKeyHashAddress(
				id, params,
			))
		}
		for _, id := range cs.GetCScripts() {
			fmt.Fprintln(ctx.out, zcash.EncodeScriptHashAddress(
				id, params,
			))
		}
		for _, addr := range cs.GetPaymentAddresses() {
			fmt.Fprintln(ctx.out, zcash.EncodeSproutAddress(
				addr, params,
			))
		}
		for _, addr := range cs.GetSaplingPaymentAddresses() {
			encoded, err := zcash.EncodeSaplingAddress(addr, params)
			if err != nil {
				return err
			}
			fmt.Fprintln(ctx.out, encoded)
		}
		return nil
	})
}

func encryptKeyStore(ctx *cmdContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	return withStore(ctx, modifyStore, func(cs *keystore.CryptoStore) error {
		if cs.IsCrypted() {
			return errors.New("key store is already encrypted")
		}

		pass, err := ctx.pass("Enter the passphrase to encrypt your "+
			"spending keys", true)
		if err != nil {
			return err
		}
		if err := cs.EncryptKeys(pass); err != nil {
			return err
		}

		fmt.Fprintln(ctx.out, "Spending keys encrypted")
		return nil
	})
}

func changePassphrase(ctx *cmdContext, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	return withStore(ctx, rewriteStore, func(cs *keystore.CryptoStore) error {
		if !cs.IsCrypted() {
			return errors.New("key store is not encrypted -- run " +
				"encrypt instead")
		}

		oldPass, err := ctx.pass("Enter the current passphrase", false)
		if err != nil {
			return err
		}
		newPass, err := ctx.pass("Enter the new passphrase", true)
		if err != nil {
			return err
		}
		if err := cs.ChangePassphrase(oldPass, newPass); err != nil {
			return err
		}

		fmt.Fprintln(ctx.out, "Passphrase changed")
		return nil
	})
}
