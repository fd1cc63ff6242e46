package cli

import (
	"context"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	session := c.app.Session
	if session == nil {
		c.io.Println("Status: Not logged in")
		c.io.Println("Run 'fieldsync login' to start syncing.")
	} else {
		c.io.Printf("Username: %s\n", session.Username)
		c.io.Printf("User ID: %s\n", session.UserID)
		c.io.Printf("Server: %s\n", session.Server)

		expires := time.Unix(session.ExpiresAt, 0)
		if time.Now().After(expires) {
			c.io.Println("Token: expired, please login again")
		} else {
			c.io.Printf("Token expires: %s\n", expires.Format(time.RFC3339))
		}
	}

	s := c.app.Engine.Status()
	c.io.Println()
	c.io.Printf("Network: %s\n", onlineLabel(s.IsOnline))
	c.io.Printf("Storage: %s\n", durableLabel(s.Durable))
	c.io.Printf("Pending documents: %d\n", s.PendingCount)
	c.io.Printf("Open conflicts: %d\n", len(s.Conflicts))
	if s.LastSyncTime.IsZero() {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s\n", s.LastSyncTime.Format(time.RFC3339))
	}
	return nil
}

func onlineLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func durableLabel(durable bool) string {
	if durable {
		return "persistent"
	}
	return "in-memory"
}
