// Package cli implements the fieldsync command line client.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/fieldsync/internal/client/app"
	"github.com/iudanet/fieldsync/internal/client/iocli"
)

// EnvPassword позволяет передать пароль без интерактивного ввода
const EnvPassword = "FIELDSYNC_PASSWORD"

// Passwords описывает неинтерактивные источники пароля
type Passwords struct {
	FromFile string
}

// Cli выполняет команды поверх собранного приложения
type Cli struct {
	io  iocli.IO
	app *app.App
}

// New creates a Cli writing to io.
func New(io iocli.IO, a *app.App) *Cli {
	return &Cli{io: io, app: a}
}

// getPassword retrieves the password with priority:
// 1. Environment variable FIELDSYNC_PASSWORD
// 2. File given by --password-file
// 3. Interactive prompt
func (c *Cli) getPassword(passwords Passwords, prompt string) (string, error) {
	if envPassword := os.Getenv(EnvPassword); envPassword != "" {
		return envPassword, nil
	}

	if passwords.FromFile != "" {
		content, err := os.ReadFile(passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", errors.New("password file is empty")
		}
		return password, nil
	}

	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}

func passwordFromEnv() bool {
	return os.Getenv(EnvPassword) != ""
}

// usernameArg возвращает имя пользователя из аргументов или запрашивает его
func (c *Cli) usernameArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	return username, nil
}
