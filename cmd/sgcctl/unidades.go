package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type unidadeElegivel struct {
	Codigo int64  `json:"codigo"`
	Sigla  string `json:"sigla"`
	Tipo   string `json:"tipo"`
}

func newUnidadesCmd(opts *opcoes) *cobra.Command {
	var recarregar bool
	cmd := &cobra.Command{
		Use:   "unidades",
		Short: "Lista as unidades elegíveis a partir da unidade informada",
		Long:  `Mostra a própria unidade e as descendentes aptas a receber subprocessos. Com --recarregar, descarta antes o retrato da hierarquia em cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.unidade <= 0 {
				return fmt.Errorf("informe --unidade")
			}

			a, err := carregarApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if recarregar {
				if err := a.Unidades.Invalidar(cmd.Context()); err != nil {
					return fmt.Errorf("invalidar cache: %w", err)
				}
			}
			h, err := a.Unidades.Hierarquia(cmd.Context())
			if err != nil {
				return err
			}
			elegiveis, err := h.Elegiveis(opts.unidade)
			if err != nil {
				return err
			}

			out := make([]unidadeElegivel, 0, len(elegiveis))
			for _, u := range elegiveis {
				out = append(out, unidadeElegivel{Codigo: u.Codigo, Sigla: h.Sigla(u.Codigo), Tipo: string(u.Tipo)})
			}
			return imprimirJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&recarregar, "recarregar", false, "descarta o cache da hierarquia antes de consultar")
	return cmd
}
