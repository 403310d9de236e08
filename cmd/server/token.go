package main

import (
	"context"
	"fmt"
	"time"

	"github.com/npezzotti/roomcast/internal/auth"
	"github.com/urfave/cli/v3"
)

type TokenCmd struct {
	flags  *Flags
	userId string
	email  string
	ttl    time.Duration
}

func NewTokenCmd(flags *Flags) *TokenCmd {
	return &TokenCmd{flags: flags}
}

func (cmd *TokenCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "token",
		Usage:       "Issue a development token",
		UsageText:   "roomcast token --user <id> [--email <email>] [--ttl 24h]",
		Description: "Signs a token with the configured signing key for local testing.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "user",
				Usage:       "user id claim",
				Required:    true,
				Destination: &cmd.userId,
			},
			&cli.StringFlag{
				Name:        "email",
				Usage:       "email claim",
				Destination: &cmd.email,
			},
			&cli.DurationFlag{
				Name:        "ttl",
				Usage:       "token lifetime",
				Value:       24 * time.Hour,
				Destination: &cmd.ttl,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *TokenCmd) run(_ context.Context, c *cli.Command) error {
	token, err := auth.Issue(cmd.flags.Config.SigningKey, auth.Identity{UserId: cmd.userId, Email: cmd.email}, cmd.ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	_, err = fmt.Fprintln(c.Root().Writer, token)
	return err
}
