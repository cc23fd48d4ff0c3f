package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/dmitrijs2005/cryptool/internal/common"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// Unlock prompts for the access code and opens a session on success.
func (a *App) Unlock(ctx context.Context) error {
	if !a.hasCode(ctx) {
		fmt.Fprintln(a.out, "No access code set yet. Use 'set-code' first.")
		return nil
	}

	code, err := getSecret("Enter access code", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(code)

	ok, err := a.gate.ValidateCode(ctx, string(code))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, color.RedString("Wrong access code."))
		return nil
	}
	fmt.Fprintln(a.out, color.GreenString("Unlocked."))
	return nil
}

// Lock ends the current session.
func (a *App) Lock(ctx context.Context) error {
	if err := a.gate.Lock(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Locked.")
	return nil
}

// SetCode sets the initial access code. With a code already in place the
// user is pointed at change-code, which re-keys instead of overwriting.
func (a *App) SetCode(ctx context.Context) error {
	if a.hasCode(ctx) {
		fmt.Fprintln(a.out, "An access code is already set. Use 'change-code' to replace it.")
		return nil
	}

	code, err := a.promptNewCode()
	if err != nil {
		return err
	}
	if code == "" {
		return nil
	}

	if err := a.gate.SetNewCode(ctx, code, false); err != nil {
		return err
	}
	fmt.Fprintln(a.out, color.GreenString("Access code set. The store is unlocked."))
	return nil
}

// ChangeCode re-keys the store under a new access code. Channel passwords and
// message envelopes are carried over untouched.
func (a *App) ChangeCode(ctx context.Context) error {
	oldCode, err := getSecret("Enter current access code", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldCode)

	newCode, err := a.promptNewCode()
	if err != nil {
		return err
	}
	if newCode == "" {
		return nil
	}

	err = a.gate.ChangeAccessCode(ctx, string(oldCode), newCode)
	switch {
	case errors.Is(err, common.ErrInvalidOldCode):
		fmt.Fprintln(a.out, color.RedString("Wrong current code. Nothing changed."))
		return nil
	case errors.Is(err, common.ErrReKeyImport):
		fmt.Fprintln(a.out, color.RedString("Restoring data under the new code failed; the store is empty. Import a snapshot to recover."))
		return err
	case err != nil:
		return err
	}

	fmt.Fprintln(a.out, color.GreenString("Access code changed."))
	return nil
}

// ResetStore wipes every channel, message and preference after an explicit
// confirmation.
func (a *App) ResetStore(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "This deletes ALL channels and messages. Type 'DELETE' to confirm", a.out)
	if err != nil {
		return err
	}
	if answer != "DELETE" {
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	}

	if err := a.gate.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "The store has been wiped.")
	return nil
}

func (a *App) promptNewCode() (string, error) {
	code, err := getSecret("Enter new access code", a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(code)

	repeat, err := getSecret("Repeat new access code", a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(repeat)

	if len(code) == 0 {
		fmt.Fprintln(a.out, "The access code must not be empty.")
		return "", nil
	}
	if string(code) != string(repeat) {
		fmt.Fprintln(a.out, color.RedString("Codes do not match."))
		return "", nil
	}
	return string(code), nil
}
