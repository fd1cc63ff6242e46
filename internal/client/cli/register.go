package cli

import (
	"context"
	"errors"
)

func (c *Cli) runRegister(ctx context.Context, args []string, passwords Passwords) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	username, err := c.usernameArg(args)
	if err != nil {
		return err
	}

	password, err := c.getPassword(passwords, "Password (min 12 chars): ")
	if err != nil {
		return err
	}

	// Подтверждение нужно только при интерактивном вводе
	if passwords.FromFile == "" && !passwordFromEnv() {
		confirm, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}
	}

	c.io.Println("Registering user...")
	result, err := c.app.Auth.Register(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID: %s\n", result.UserID)
	c.io.Printf("Username: %s\n", username)
	c.io.Println()
	c.io.Println("Please run 'fieldsync login' to start syncing.")
	return nil
}
