package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/instalytics/collector/pkg/store"
)

var syncAccountsCmd = &cobra.Command{
	Use:   "sync-accounts",
	Short: "Refresh stored account profiles from the Graph API",
	Long: `Fetches the account node for each active account and updates the
stored profile fields, including the follower count the daily rollup
reads. With --account only that account is refreshed.`,
	RunE: runSyncAccounts,
}

func init() {
	rootCmd.AddCommand(syncAccountsCmd)

	syncAccountsCmd.Flags().String("account", "", "Refresh only this Instagram user ID")
}

func runSyncAccounts(cmd *cobra.Command, args []string) error {
	accountID, _ := cmd.Flags().GetString("account")

	rt, err := buildRuntime(nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var targets []store.Account
	if accountID != "" {
		account, err := rt.accounts.FindByExternalID(accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("account not found: %s", accountID)
		}
		targets = []store.Account{*account}
	} else {
		targets, err = rt.accounts.ListActive()
		if err != nil {
			return err
		}
	}

	if len(targets) == 0 {
		color.Yellow("No active accounts to sync")
		return nil
	}

	var failed int
	for _, account := range targets {
		profile, err := rt.api.GetAccount(ctx, account.InstagramUserID, account.AccessToken)
		if err != nil {
			log.WithError(err).WithField("account_id", account.InstagramUserID).Error("Failed to fetch account profile")
			failed++
			continue
		}

		err = rt.accounts.UpdateProfile(account.ID,
			profile.Username, profile.Name, profile.Biography, profile.Website, profile.ProfilePictureURL,
			profile.FollowersCount, profile.FollowsCount, profile.MediaCount)
		if err != nil {
			log.WithError(err).WithField("account_id", account.InstagramUserID).Error("Failed to update account profile")
			failed++
			continue
		}

		color.Green("Synced @%s (%d followers)", profile.Username, profile.FollowersCount)
	}

	if failed > 0 {
		return fmt.Errorf("failed to sync %d of %d accounts", failed, len(targets))
	}
	return nil
}
