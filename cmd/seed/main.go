// seed creates brands and sends invitations for local and staging setups.
//
//	go run ./cmd/seed brand "Acme Foods" "Acme Drinks"
//	go run ./cmd/seed invite --email ops@acme.test --name "Ops" --scope ADMIN --brand "Acme Foods"
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"adinsights/backend/internal/app"
	branddomain "adinsights/backend/internal/brand/domain"
	brandrepo "adinsights/backend/internal/brand/repository"
	"adinsights/backend/internal/config"
	"adinsights/backend/internal/db"
	"adinsights/backend/internal/identity/service"
	"adinsights/backend/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:           "seed",
	Short:         "Create brands and invite accounts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var brandCmd = &cobra.Command{
	Use:   "brand <name>...",
	Short: "Create brands by name; existing names are skipped",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBrand,
}

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Invite an account into one or more brands and print the registration link",
	RunE:  runInvite,
}

func init() {
	rootCmd.AddCommand(brandCmd, inviteCmd)

	inviteCmd.Flags().String("email", "", "invitee email address")
	inviteCmd.Flags().String("name", "", "invitee full name")
	inviteCmd.Flags().StringSlice("scope", []string{"READ"}, "scopes to grant (READ, WRITE, ADMIN)")
	inviteCmd.Flags().StringSlice("brand", nil, "brand names to enrol the account in")
	_ = inviteCmd.MarkFlagRequired("email")
	_ = inviteCmd.MarkFlagRequired("brand")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func runBrand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	ctx := cmd.Context()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	brands := brandrepo.NewPostgresRepository(pool)
	for _, name := range args {
		b := &branddomain.Brand{ID: uuid.NewString(), Name: name}
		switch err := brands.Create(ctx, b); err {
		case nil:
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", b.ID, b.Name)
		case brandrepo.ErrDuplicateName:
			fmt.Fprintf(cmd.OutOrStdout(), "exists  %s\n", name)
		default:
			return fmt.Errorf("brand %q: %w", name, err)
		}
	}
	return nil
}

func runInvite(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	scopes, _ := cmd.Flags().GetStringSlice("scope")
	brands, _ := cmd.Flags().GetStringSlice("brand")

	ctx := cmd.Context()
	log := logger.New(os.Stderr, cfg.LogLevel, "adinsights-seed", false)
	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	inv, ok, err := a.Auth.Invite(ctx, service.InviteRequest{Email: email, Name: name, Scopes: scopes, Brands: brands})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("one of the brands %v does not exist; create it with `seed brand`", brands)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "invited %s (%s)\n%s\n", inv.Email, inv.AccountID, inv.Link)
	return nil
}
