package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songbridge/internal/auth"
	"github.com/desertthunder/songbridge/internal/formatter"
	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/repositories"
	"github.com/desertthunder/songbridge/internal/shared"
	"github.com/desertthunder/songbridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TransferRun copies --playlist with the linked accounts of --user.
//
// Credentials are hydrated from the account store and refreshed when they are close to expiry.
func (r *Runner) TransferRun(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	req := tasks.Request{PlaylistID: cmd.String("playlist"), PlaylistName: cmd.String("name")}
	reverse := cmd.Bool("reverse")

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	configs, err := r.oauthConfigs(config)
	if err != nil {
		return err
	}

	client := r.upstreamClient(config)
	factory := r.newFactory(client)
	manager := r.newManager(config, repositories.NewAccountRepository(db), configs, client)

	state, outcomes := manager.Resolve(ctx, models.NewSessionState(), &auth.SignIn{UserID: userID})
	for _, o := range auth.DegradedOutcomes(outcomes) {
		r.logger.Warn("credential step degraded", "step", o.Step, "provider", o.Provider, "error", o.Err)
	}

	order := []models.Provider{models.Spotify, models.Google}
	if reverse {
		order = []models.Provider{models.Google, models.Spotify}
	}
	for _, p := range order {
		if state.AccessToken(p) == "" {
			return fmt.Errorf("%w: connect %s first", shared.ErrNotAuthenticated, p.DisplayName())
		}
	}

	r.logger.Info("starting transfer", "user", userID, "playlist", req.PlaylistID, "reverse", reverse)
	r.writePlain("Starting playlist transfer...\n")
	r.writePlain("Source: %s (%s)\n\n", req.PlaylistName, req.PlaylistID)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.CreatePlaylist:
				r.writePlain("\n📝 %s\n", update.Message)
			case tasks.MatchTracks:
				if update.Step == 1 {
					r.writePlain("\n🔍 Matching %d items\n", update.Total)
				}
				r.writePlain("   %s\n", update.Message)
			case tasks.WriteTracks:
				r.writePlain("\n💾 %s\n", update.Message)
			case tasks.Done:
				r.writePlain("\n%s\n", update.Message)
			}
		}
	}()

	var result *models.TransferResult
	spotify := factory.Spotify(state.AccessToken(models.Spotify))
	youtube := factory.YouTube(state.AccessToken(models.Google))
	if reverse {
		result, err = r.newPipeline(config).TransferReverse(ctx, youtube, spotify, req, progressCh)
	} else {
		result, err = r.newPipeline(config).Transfer(ctx, spotify, youtube, req, progressCh)
	}
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writeSummary(req, result)

	if path := cmd.String("report"); path != "" {
		direction := "spotify → youtube"
		if reverse {
			direction = "youtube → spotify"
		}
		report := formatter.Report{Direction: direction, SourceID: req.PlaylistID, PlaylistName: req.PlaylistName, Result: result}
		format, err := formatter.WriteReport(report, path)
		if err != nil {
			return err
		}
		r.logger.Info("report written", "path", path, "format", format)
		r.writePlain("\nReport saved to: %s\n", path)
	}
	return nil
}

func (r *Runner) writeSummary(req tasks.Request, result *models.TransferResult) {
	r.writePlain("\n")
	r.writePlainHeader("Transfer Complete!")
	r.writePlain("Created: %s (%s)\n", tasks.PlaylistTitle(req.PlaylistName), result.CreatedPlaylistID)

	rate := styles.OK(fmt.Sprintf("%d/%d", result.SucceededCount, result.TotalSourceItems))
	if result.SucceededCount < result.TotalSourceItems {
		rate = styles.Warn(fmt.Sprintf("%d/%d", result.SucceededCount, result.TotalSourceItems))
	}
	r.writePlain("Transferred: %s\n", rate)

	if len(result.FailedItems) > 0 {
		r.writePlain("\n%s\n", styles.Err(fmt.Sprintf("Failed to transfer %d items:", len(result.FailedItems))))
		for _, f := range result.FailedItems {
			if len(f.Artists) == 0 {
				r.writePlain("  - %s\n", f.Title)
				continue
			}
			r.writePlain("  - %s - %s\n", strings.Join(f.Artists, ", "), f.Title)
		}
	}
}
