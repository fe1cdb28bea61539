package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lgalvao/sgc-sub008/internal/auth"
	"github.com/lgalvao/sgc-sub008/internal/config"
	"github.com/lgalvao/sgc-sub008/internal/perfil"
)

// newTokenCmd emite um token de acesso para testes locais da API.
func newTokenCmd(opts *opcoes) *cobra.Command {
	var perfilLogin string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Gera um token de acesso para desenvolvimento",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := perfil.Normalize(perfilLogin)
			if !perfil.IsValid(p) {
				return fmt.Errorf("perfil inválido: %q", perfilLogin)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
			token, _, err := jwt.GenerateAccessToken(opts.usuario, opts.unidade, string(p))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&perfilLogin, "perfil", "", "perfil escolhido no login (ADMIN, GESTOR, CHEFE, SERVIDOR)")
	_ = cmd.MarkFlagRequired("perfil")
	return cmd
}
