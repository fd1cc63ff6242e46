package cli

import (
	"context"
	"time"
)

func (c *Cli) runLogin(ctx context.Context, args []string, passwords Passwords) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	username, err := c.usernameArg(args)
	if err != nil {
		return err
	}

	password, err := c.getPassword(passwords, "Password: ")
	if err != nil {
		return err
	}

	c.io.Println("Authenticating...")
	session, err := c.app.Auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("User ID: %s\n", session.UserID)
	c.io.Printf("Server: %s\n", session.Server)
	c.io.Printf("Token expires: %s\n", time.Unix(session.ExpiresAt, 0).Format(time.RFC3339))
	return nil
}
