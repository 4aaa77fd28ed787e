package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/songbridge/internal/repositories"
	"github.com/desertthunder/songbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

type accountView struct {
	Provider   string     `json:"provider"`
	ExternalID string     `json:"externalId"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Expired    bool       `json:"expired"`
	Refresh    bool       `json:"hasRefreshToken"`
}

// AccountsList prints the provider accounts linked to --user.
func (r *Runner) AccountsList(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	accounts, err := repositories.NewAccountRepository(db).ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		v := accountView{
			Provider:   a.Provider().String(),
			ExternalID: a.ExternalID(),
			Refresh:    a.RefreshToken() != "",
		}
		if expiry := a.Bundle().Expiry(); !expiry.IsZero() {
			v.ExpiresAt = &expiry
			v.Expired = !expiry.After(now)
		}
		views = append(views, v)
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(views) == 0 {
		return r.writePlain("%s\n", styles.Warn(fmt.Sprintf("No linked accounts for user %s", userID)))
	}

	r.writePlainHeader(fmt.Sprintf("Accounts for %s", userID))
	for _, v := range views {
		expiry := styles.Help("unknown expiry")
		switch {
		case v.ExpiresAt == nil:
		case v.Expired:
			expiry = styles.Err("expired " + v.ExpiresAt.Local().Format(time.RFC3339))
		default:
			expiry = styles.OK("expires " + v.ExpiresAt.Local().Format(time.RFC3339))
		}
		r.writePlain("%-8s %-24s %s\n", v.Provider, v.ExternalID, expiry)
	}
	return nil
}
