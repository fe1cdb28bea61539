package subprocesso

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessarEmBlocoIsolaUnidades(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 1, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})
	c.store.put(Subprocesso{Codigo: 2, UnidadeCodigo: 4, Situacao: Homologado})
	limite := agoraTeste.Add(10 * 24 * time.Hour)

	res, err := c.svc.ProcessarEmBloco(context.Background(), 1, []int64{3, 4, 6, 3}, AlterarDataLimite, atorAdmin, Dados{DataLimite: &limite})
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.True(t, res[0].Sucesso())
	require.NotNil(t, res[0].Subprocesso)
	assert.Equal(t, limite, *res[0].Subprocesso.DataLimiteEtapa1)

	require.NotNil(t, res[1].Erro)
	assert.Equal(t, TipoTransicaoInvalida, res[1].Erro.Tipo)
	assert.Equal(t, Homologado, c.store.get(2).Situacao)

	require.NotNil(t, res[2].Erro)
	assert.Equal(t, TipoNaoEncontrado, res[2].Erro.Tipo)

	assert.Equal(t, limite, *c.store.get(1).DataLimiteEtapa1)
}

func TestProcessarEmBlocoValidacoes(t *testing.T) {
	c := novoCenario(t)

	_, err := c.svc.ProcessarEmBloco(context.Background(), 1, nil, AceitarCadastro, atorGestor, Dados{})
	assert.ErrorIs(t, err, ErrValidacao)

	_, err = c.svc.ProcessarEmBloco(context.Background(), 99, []int64{3}, AceitarCadastro, atorGestor, Dados{})
	assert.ErrorIs(t, err, ErrNaoEncontrado)
}

func TestProcessarEmBlocoErroInterno(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 1, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado})
	c.store.put(Subprocesso{Codigo: 2, UnidadeCodigo: 4, Situacao: CadastroDisponibilizado})
	c.store.falhaMovimentacao = errInfra

	res, err := c.svc.ProcessarEmBloco(context.Background(), 1, []int64{3, 4}, AceitarCadastro, atorGestor, Dados{})
	require.NoError(t, err)
	require.Len(t, res, 2)
	for _, r := range res {
		require.NotNil(t, r.Erro)
		assert.Equal(t, TipoInterno, r.Erro.Tipo)
	}
}

func TestIniciarProcesso(t *testing.T) {
	c := novoCenario(t)
	limite := agoraTeste.Add(30 * 24 * time.Hour)

	res, err := c.svc.IniciarProcesso(context.Background(), 1, []int64{3, 2, 5, 7, 88}, atorAdmin, limite)
	require.NoError(t, err)
	require.Len(t, res, 5)

	for _, r := range res[:3] {
		require.True(t, r.Sucesso(), r.UnidadeCodigo)
		assert.Equal(t, CadastroEmAndamento, r.Subprocesso.Situacao)
		assert.Equal(t, limite, *r.Subprocesso.DataLimiteEtapa1)

		_, movimentacoes := c.store.contagem(r.Subprocesso.Codigo)
		assert.Equal(t, 1, movimentacoes)
	}
	assert.Equal(t, TipoValidacao, res[3].Erro.Tipo)
	assert.Equal(t, TipoNaoEncontrado, res[4].Erro.Tipo)

	porUnidade := map[int64][]bool{}
	for _, a := range c.sink.enfileirados() {
		porUnidade[a.UnidadeCodigo] = append(porUnidade[a.UnidadeCodigo], a.Agregado)
	}
	assert.Equal(t, []bool{false}, porUnidade[3])
	assert.Equal(t, []bool{false}, porUnidade[2])
	assert.Equal(t, []bool{false}, porUnidade[5])
	assert.Equal(t, []bool{true}, porUnidade[1])

	sp, err := c.store.BuscarPorProcessoEUnidade(context.Background(), 1, 3)
	require.NoError(t, err)
	hist, err := c.svc.ListarHistorico(context.Background(), sp.Codigo)
	require.NoError(t, err)
	assert.Equal(t, "Processo iniciado", hist.Movimentacoes[0].Descricao)

	res, err = c.svc.IniciarProcesso(context.Background(), 1, []int64{3}, atorAdmin, limite)
	require.NoError(t, err)
	require.NotNil(t, res[0].Erro)
	assert.Equal(t, TipoValidacao, res[0].Erro.Tipo)
}

func TestIniciarProcessoRejeicoes(t *testing.T) {
	c := novoCenario(t)
	limite := agoraTeste.Add(24 * time.Hour)

	_, err := c.svc.IniciarProcesso(context.Background(), 1, []int64{3}, atorGestor, limite)
	assert.ErrorIs(t, err, ErrProibido)

	_, err = c.svc.IniciarProcesso(context.Background(), 1, []int64{3}, atorAdmin, agoraTeste.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrValidacao)

	_, err = c.svc.IniciarProcesso(context.Background(), 1, nil, atorAdmin, limite)
	assert.ErrorIs(t, err, ErrValidacao)

	_, err = c.svc.IniciarProcesso(context.Background(), 42, []int64{3}, atorAdmin, limite)
	assert.ErrorIs(t, err, ErrNaoEncontrado)
}

func TestIniciarProcessoSomenteSubarvoreDoAtor(t *testing.T) {
	c := novoCenario(t)
	limite := agoraTeste.Add(24 * time.Hour)
	adminSTIC := Ator{Usuario: "admin-stic", Unidade: 5}

	res, err := c.svc.IniciarProcesso(context.Background(), 1, []int64{6, 5, 3}, adminSTIC, limite)
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.True(t, res[0].Sucesso())
	assert.True(t, res[1].Sucesso())
	require.NotNil(t, res[2].Erro)
	assert.Equal(t, TipoValidacao, res[2].Erro.Tipo)
	assert.Contains(t, res[2].Erro.Mensagem, "COSIS")

	_, err = c.store.BuscarPorProcessoEUnidade(context.Background(), 1, 3)
	assert.ErrorIs(t, err, ErrRegistroNaoEncontrado)
}
