package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if err := c.app.Auth.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	// документы пользователя остаются на диске и снова доступны после login
	c.io.Println("Your local session has been deleted. Local documents are kept.")
	return nil
}
