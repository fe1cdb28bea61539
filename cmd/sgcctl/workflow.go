package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lgalvao/sgc-sub008/internal/db"
	"github.com/lgalvao/sgc-sub008/internal/subprocesso"
)

func newMigrarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrar",
		Short: "Aplica o schema embutido no banco",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := carregarApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			aplicados, err := db.ApplySchema(cmd.Context(), a.Pool)
			if err != nil {
				return err
			}
			for _, nome := range aplicados {
				fmt.Fprintf(cmd.OutOrStdout(), "aplicado %s\n", nome)
			}
			return nil
		},
	}
}

func parseCodigo(arg string) (int64, error) {
	codigo, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || codigo <= 0 {
		return 0, fmt.Errorf("código inválido: %q", arg)
	}
	return codigo, nil
}

func newIniciarCmd(opts *opcoes) *cobra.Command {
	var (
		unidades   []int64
		dataLimite string
	)
	cmd := &cobra.Command{
		Use:   "iniciar <processo>",
		Short: "Inicia o processo para as unidades informadas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processo, err := parseCodigo(args[0])
			if err != nil {
				return err
			}
			ator, err := opts.ator()
			if err != nil {
				return err
			}
			limite, err := time.Parse(time.DateOnly, dataLimite)
			if err != nil {
				return fmt.Errorf("--data-limite deve estar no formato AAAA-MM-DD")
			}

			a, err := carregarApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			resultados, err := a.Workflow.IniciarProcesso(cmd.Context(), processo, unidades, ator, limite)
			if err != nil {
				return err
			}
			return imprimirResultados(cmd, resultados)
		},
	}
	cmd.Flags().Int64SliceVar(&unidades, "unidades", nil, "unidades participantes (ex.: 3,4,6)")
	cmd.Flags().StringVar(&dataLimite, "data-limite", "", "data limite da etapa 1 (AAAA-MM-DD)")
	_ = cmd.MarkFlagRequired("unidades")
	_ = cmd.MarkFlagRequired("data-limite")
	return cmd
}

func newBlocoCmd(opts *opcoes) *cobra.Command {
	var (
		unidades []int64
		dados    subprocesso.Dados
		limite   string
	)
	cmd := &cobra.Command{
		Use:   "bloco <processo> <acao>",
		Short: "Aplica uma ação aos subprocessos de várias unidades",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			processo, err := parseCodigo(args[0])
			if err != nil {
				return err
			}
			ator, err := opts.ator()
			if err != nil {
				return err
			}
			if limite != "" {
				t, err := time.Parse(time.DateOnly, limite)
				if err != nil {
					return fmt.Errorf("--data-limite deve estar no formato AAAA-MM-DD")
				}
				dados.DataLimite = &t
			}

			a, err := carregarApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			resultados, err := a.Workflow.ProcessarEmBloco(cmd.Context(), processo, unidades, subprocesso.Acao(args[1]), ator, dados)
			if err != nil {
				return err
			}
			return imprimirResultados(cmd, resultados)
		},
	}
	cmd.Flags().Int64SliceVar(&unidades, "unidades", nil, "unidades alvo (ex.: 3,4,6)")
	cmd.Flags().StringVar(&dados.Observacoes, "observacoes", "", "observações registradas na análise")
	cmd.Flags().StringVar(&dados.Justificativa, "justificativa", "", "justificativa (reaberturas)")
	cmd.Flags().StringVar(&limite, "data-limite", "", "nova data limite (AAAA-MM-DD)")
	_ = cmd.MarkFlagRequired("unidades")
	return cmd
}

// imprimirResultados escreve o resultado por unidade e falha quando alguma
// unidade não foi processada.
func imprimirResultados(cmd *cobra.Command, resultados []subprocesso.ResultadoUnidade) error {
	if err := imprimirJSON(cmd.OutOrStdout(), resultados); err != nil {
		return err
	}
	if n := subprocesso.ContarFalhas(resultados); n > 0 {
		return fmt.Errorf("%d de %d unidades com falha", n, len(resultados))
	}
	return nil
}

func newHistoricoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "historico <subprocesso>",
		Short: "Lista análises e movimentações do subprocesso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codigo, err := parseCodigo(args[0])
			if err != nil {
				return err
			}

			a, err := carregarApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			hist, err := a.Workflow.ListarHistorico(cmd.Context(), codigo)
			if err != nil {
				return err
			}
			return imprimirJSON(cmd.OutOrStdout(), hist)
		},
	}
}

func newPermissoesCmd(opts *opcoes) *cobra.Command {
	return &cobra.Command{
		Use:   "permissoes <subprocesso>",
		Short: "Mostra as ações disponíveis ao usuário no subprocesso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codigo, err := parseCodigo(args[0])
			if err != nil {
				return err
			}
			ator, err := opts.ator()
			if err != nil {
				return err
			}

			a, err := carregarApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			permissoes, err := a.Workflow.CalcularPermissoes(cmd.Context(), codigo, ator)
			if err != nil {
				return err
			}
			return imprimirJSON(cmd.OutOrStdout(), permissoes)
		},
	}
}

func newAlertasCmd() *cobra.Command {
	var limite int64
	cmd := &cobra.Command{
		Use:   "alertas",
		Short: "Lista os pedidos de alerta pendentes na fila",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := carregarApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			pendentes, err := a.Alertas.Pendentes(cmd.Context(), limite)
			if err != nil {
				return err
			}
			return imprimirJSON(cmd.OutOrStdout(), pendentes)
		},
	}
	cmd.Flags().Int64Var(&limite, "limite", 20, "quantidade máxima de alertas")
	return cmd
}
