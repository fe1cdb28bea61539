package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lgalvao/sgc-sub008/internal/app"
	"github.com/lgalvao/sgc-sub008/internal/config"
	"github.com/lgalvao/sgc-sub008/internal/subprocesso"
)

// opcoes guarda as flags persistentes, compartilhadas pelos subcomandos.
type opcoes struct {
	usuario string
	unidade int64
}

func (o *opcoes) ator() (subprocesso.Ator, error) {
	if o.usuario == "" || o.unidade <= 0 {
		return subprocesso.Ator{}, fmt.Errorf("informe --usuario e --unidade")
	}
	return subprocesso.Ator{Usuario: o.usuario, Unidade: o.unidade}, nil
}

func newRootCmd() *cobra.Command {
	opts := &opcoes{}

	root := &cobra.Command{
		Use:          "sgcctl",
		Short:        "Ferramenta administrativa do SGC",
		Long:         `Opera o fluxo de subprocessos diretamente contra o banco: schema, início de processos, ações em bloco e consultas.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.usuario, "usuario", "", "título do usuário que executa a operação")
	root.PersistentFlags().Int64Var(&opts.unidade, "unidade", 0, "unidade de atuação do usuário")

	root.AddCommand(
		newMigrarCmd(),
		newIniciarCmd(opts),
		newBlocoCmd(opts),
		newHistoricoCmd(),
		newPermissoesCmd(opts),
		newAlertasCmd(),
		newUnidadesCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// carregarApp lê a configuração do ambiente e conecta as dependências.
func carregarApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return app.New(cmd.Context(), cfg)
}

func imprimirJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
