package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yabood/yabood/internal/auth"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/model"
)

func newMintTokenCmd(load func() (*config.Config, error)) *cobra.Command {
	var user model.User
	var id, role string

	cmd := &cobra.Command{
		Use:   "mint-token",
		Short: "Mint an access token signed with auth.secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			tokens, err := auth.NewJWTProvider(cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.Auth.CookieName)
			if err != nil {
				return err
			}

			user.ID = model.UserID(id)
			switch model.Role(role) {
			case model.RoleAdmin, model.RoleUser:
				user.Role = model.Role(role)
			case "":
				user.Role = model.RoleForEmail(user.Email, cfg.Auth.AdminEmailDomain)
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := tokens.Mint(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), labelStyle.Render("Role:"), valueStyle.Render(string(user.Role)),
				labelStyle.Render("Expires in:"), valueStyle.Render(tokens.TTL().String()))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "operator", "user id (sub claim)")
	cmd.Flags().StringVar(&user.Email, "email", "", "email address")
	cmd.Flags().StringVar(&user.Name, "name", "", "display name")
	cmd.Flags().StringVar(&user.Provider, "provider", "sitectl", "provider claim")
	cmd.Flags().StringVar(&role, "role", "", "admin or user (default derived from the email domain)")
	return cmd
}
