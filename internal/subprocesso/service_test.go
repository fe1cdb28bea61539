package subprocesso

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisponibilizarCadastroPeloChefe(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 10, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})

	res, err := c.svc.AplicarAcao(context.Background(), 10, DisponibilizarCadastro, atorChefe, Dados{})
	require.NoError(t, err)

	assert.Equal(t, CadastroDisponibilizado, res.Subprocesso.Situacao)
	assert.Equal(t, int64(2), res.Subprocesso.Versao)
	assert.Equal(t, CadastroDisponibilizado, c.store.get(10).Situacao)

	hist, err := c.svc.ListarHistorico(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, hist.Movimentacoes, 1)
	assert.Equal(t, int64(3), hist.Movimentacoes[0].UnidadeOrigem)
	assert.Equal(t, int64(2), hist.Movimentacoes[0].UnidadeDestino)
	assert.Equal(t, "Disponibilização do cadastro de atividades da unidade COSIS", hist.Movimentacoes[0].Descricao)
	require.Len(t, hist.Analises, 1)
	assert.Equal(t, AnaliseCadastro, hist.Analises[0].Tipo)
	assert.Equal(t, DisponibilizarCadastro, hist.Analises[0].Acao)

	require.Len(t, res.Notificacoes, 1)
	assert.Equal(t, int64(2), res.Notificacoes[0].UnidadeCodigo)
	assert.Len(t, c.sink.enfileirados(), 1)
}

func TestDevolverCadastroPeloGestorSuperior(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 10, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado})

	res, err := c.svc.AplicarAcao(context.Background(), 10, DevolverCadastro, atorGestor, Dados{Observacoes: "faltam evidências"})
	require.NoError(t, err)
	assert.Equal(t, CadastroDevolvido, res.Subprocesso.Situacao)

	hist, err := c.svc.ListarHistorico(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, hist.Analises, 1)
	assert.Equal(t, "faltam evidências", hist.Analises[0].Observacoes)
	assert.Equal(t, "gestor", hist.Analises[0].UsuarioTitulo)
	assert.Equal(t, int64(2), hist.Analises[0].UnidadeCodigo)
	require.Len(t, hist.Movimentacoes, 1)
	assert.Equal(t, int64(3), hist.Movimentacoes[0].UnidadeDestino)

	// O chefe pode disponibilizar de novo após a devolução.
	res, err = c.svc.AplicarAcao(context.Background(), 10, DisponibilizarCadastro, atorChefe, Dados{})
	require.NoError(t, err)
	assert.Equal(t, CadastroDisponibilizado, res.Subprocesso.Situacao)
}

func TestDevolucaoPorGestorIntermediarioAvisaSomenteAUnidadeDoSubprocesso(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 11, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado})

	res, err := c.svc.AplicarAcao(context.Background(), 11, DevolverCadastro, atorGestor, Dados{Observacoes: "revisar"})
	require.NoError(t, err)

	require.Len(t, res.Notificacoes, 1)
	assert.Equal(t, int64(3), res.Notificacoes[0].UnidadeCodigo)
	assert.False(t, res.Notificacoes[0].Agregado)

	enfileirados := c.sink.enfileirados()
	require.Len(t, enfileirados, 1)
	for _, a := range enfileirados {
		assert.NotEqual(t, int64(1), a.UnidadeCodigo)
		assert.NotEqual(t, int64(2), a.UnidadeCodigo)
	}
}

func TestServidorNaoTemPermissoesDeEscrita(t *testing.T) {
	c := novoCenario(t)
	for _, sit := range Situacoes {
		c.store.put(Subprocesso{Codigo: 10, UnidadeCodigo: 3, Situacao: sit})

		p, err := c.svc.CalcularPermissoes(context.Background(), 10, atorServidor)
		require.NoError(t, err)
		assert.Equal(t, Permissoes{}, p, sit)
	}
}

func TestReabrirProcesso(t *testing.T) {
	c := novoCenario(t)
	fim := agoraTeste.Add(-48 * time.Hour)
	c.store.put(Subprocesso{
		Codigo:        20,
		UnidadeCodigo: 2,
		MapaCodigo:    ptr(7),
		Situacao:      Homologado,
		DataFimEtapa1: &fim,
		DataFimEtapa2: &fim,
	})

	_, err := c.svc.AplicarAcao(context.Background(), 20, ReabrirProcesso, atorAdmin, Dados{})
	require.ErrorIs(t, err, ErrValidacao)
	assert.Equal(t, Homologado, c.store.get(20).Situacao)

	res, err := c.svc.AplicarAcao(context.Background(), 20, ReabrirProcesso, atorAdmin, Dados{Justificativa: "inclusão de atividades"})
	require.NoError(t, err)
	assert.Equal(t, CadastroEmAndamento, res.Subprocesso.Situacao)
	assert.Nil(t, res.Subprocesso.DataFimEtapa1)
	assert.Nil(t, res.Subprocesso.DataFimEtapa2)

	require.Len(t, res.Notificacoes, 2)
	assert.Equal(t, int64(2), res.Notificacoes[0].UnidadeCodigo)
	assert.Equal(t, "Cadastro de atividades da unidade SGP reaberto", res.Notificacoes[0].Descricao)
	assert.False(t, res.Notificacoes[0].Agregado)
	assert.Equal(t, int64(1), res.Notificacoes[1].UnidadeCodigo)
	assert.True(t, res.Notificacoes[1].Agregado)
	assert.Equal(t, "ADMIN", res.Notificacoes[1].UnidadeSigla)

	hist, err := c.svc.ListarHistorico(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, hist.Analises, 1)
	assert.Equal(t, "inclusão de atividades", hist.Analises[0].Observacoes)
}

func TestAcoesConcorrentesSomenteUmaVence(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 30, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado})

	var leituras sync.WaitGroup
	leituras.Add(2)
	c.store.aoBuscarNaTx = func() {
		leituras.Done()
		leituras.Wait()
	}

	acoes := []Acao{AceitarCadastro, DevolverCadastro}
	erros := make([]error, len(acoes))
	var wg sync.WaitGroup
	for i, acao := range acoes {
		wg.Add(1)
		go func(i int, acao Acao) {
			defer wg.Done()
			_, erros[i] = c.svc.AplicarAcao(context.Background(), 30, acao, atorGestor, Dados{Observacoes: "ok"})
		}(i, acao)
	}
	wg.Wait()

	sucessos := 0
	for _, err := range erros {
		if err == nil {
			sucessos++
			continue
		}
		assert.ErrorIs(t, err, ErrTransicaoInvalida)
	}
	assert.Equal(t, 1, sucessos)

	analises, movimentacoes := c.store.contagem(30)
	assert.Equal(t, 1, analises)
	assert.Equal(t, 1, movimentacoes)
	assert.Equal(t, int64(2), c.store.get(30).Versao)
}

func TestAcoesSerializadasAposMesmaLeituraSomenteUmaVence(t *testing.T) {
	var leituras sync.WaitGroup
	leituras.Add(2)
	c := novoCenarioComGancho(t, func() {
		leituras.Done()
		leituras.Wait()
	})
	c.store.serializar = true
	c.store.put(Subprocesso{Codigo: 31, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado})

	acoes := []Acao{AceitarCadastro, DevolverCadastro}
	erros := make([]error, len(acoes))
	var wg sync.WaitGroup
	for i, acao := range acoes {
		wg.Add(1)
		go func(i int, acao Acao) {
			defer wg.Done()
			_, erros[i] = c.svc.AplicarAcao(context.Background(), 31, acao, atorGestor, Dados{Observacoes: "ok"})
		}(i, acao)
	}
	wg.Wait()

	sucessos := 0
	for _, err := range erros {
		if err == nil {
			sucessos++
			continue
		}
		assert.ErrorIs(t, err, ErrTransicaoInvalida)
	}
	assert.Equal(t, 1, sucessos)

	analises, movimentacoes := c.store.contagem(31)
	assert.Equal(t, 1, analises)
	assert.Equal(t, 1, movimentacoes)
	assert.Equal(t, int64(2), c.store.get(31).Versao)
}

func TestAlteracaoEntreLeituraEGravacaoRejeitaAcao(t *testing.T) {
	var c cenario
	alterado := false
	c = novoCenarioComGancho(t, func() {
		if alterado {
			return
		}
		alterado = true
		c.store.put(Subprocesso{Codigo: 32, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado, Versao: 2})
	})
	c.store.put(Subprocesso{Codigo: 32, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado})

	_, err := c.svc.AplicarAcao(context.Background(), 32, AceitarCadastro, atorGestor, Dados{})
	require.ErrorIs(t, err, ErrTransicaoInvalida)

	analises, movimentacoes := c.store.contagem(32)
	assert.Zero(t, analises)
	assert.Zero(t, movimentacoes)
	assert.Equal(t, int64(2), c.store.get(32).Versao)
	assert.Empty(t, c.sink.enfileirados())
}

func TestLembreteRejeitadoSeSubprocessoMudou(t *testing.T) {
	var c cenario
	alterado := false
	c = novoCenarioComGancho(t, func() {
		if alterado {
			return
		}
		alterado = true
		c.store.put(Subprocesso{Codigo: 33, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado, Versao: 2})
	})
	c.store.put(Subprocesso{Codigo: 33, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})

	_, err := c.svc.AplicarAcao(context.Background(), 33, EnviarLembrete, atorGestor, Dados{})
	require.ErrorIs(t, err, ErrTransicaoInvalida)
	assert.Empty(t, c.sink.enfileirados())
}

func TestTransicaoInvalidaNaoDeixaEfeitos(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 40, UnidadeCodigo: 3, Situacao: CadastroHomologado})

	_, err := c.svc.AplicarAcao(context.Background(), 40, DisponibilizarCadastro, atorChefe, Dados{})
	require.ErrorIs(t, err, ErrTransicaoInvalida)

	assert.Equal(t, CadastroHomologado, c.store.get(40).Situacao)
	assert.Equal(t, int64(1), c.store.get(40).Versao)
	analises, movimentacoes := c.store.contagem(40)
	assert.Zero(t, analises)
	assert.Zero(t, movimentacoes)
	assert.Empty(t, c.sink.enfileirados())
}

func TestFalhaDeInfraDesfazTudo(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 41, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})
	c.store.falhaMovimentacao = errInfra

	_, err := c.svc.AplicarAcao(context.Background(), 41, DisponibilizarCadastro, atorChefe, Dados{})
	require.ErrorIs(t, err, errInfra)
	assert.Equal(t, TipoInterno, TipoDe(err))

	assert.Equal(t, CadastroEmAndamento, c.store.get(41).Situacao)
	analises, movimentacoes := c.store.contagem(41)
	assert.Zero(t, analises)
	assert.Zero(t, movimentacoes)
	assert.Empty(t, c.sink.enfileirados())
}

func TestFalhaNaFilaNaoDesfazAcao(t *testing.T) {
	c := novoCenario(t)
	c.sink.falha = errInfra
	c.store.put(Subprocesso{Codigo: 42, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})

	res, err := c.svc.AplicarAcao(context.Background(), 42, DisponibilizarCadastro, atorChefe, Dados{})
	require.NoError(t, err)
	assert.Equal(t, CadastroDisponibilizado, res.Subprocesso.Situacao)
}

func TestAcaoProibida(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 50, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado})

	cases := map[string]struct {
		acao Acao
		ator Ator
	}{
		"chefe homologando":       {HomologarCadastro, atorChefe},
		"gestor de outra unidade": {AceitarCadastro, atorGestorSTIC},
		"chefe da superior":       {DevolverCadastro, atorChefeSGP},
		"servidor":                {AceitarCadastro, atorServidor},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.svc.AplicarAcao(context.Background(), 50, tc.acao, tc.ator, Dados{Observacoes: "x"})
			require.ErrorIs(t, err, ErrProibido)
			assert.Equal(t, TipoProibido, TipoDe(err))
		})
	}
	assert.Equal(t, CadastroDisponibilizado, c.store.get(50).Situacao)
}

func TestProibidoPrevaleceSobreTransicao(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 51, UnidadeCodigo: 3, Situacao: Homologado})

	_, err := c.svc.AplicarAcao(context.Background(), 51, HomologarCadastro, atorChefe, Dados{})
	assert.ErrorIs(t, err, ErrProibido)
}

func TestDisponibilizarMapaSemMapa(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 60, UnidadeCodigo: 3, Situacao: CadastroHomologado})

	_, err := c.svc.AplicarAcao(context.Background(), 60, DisponibilizarMapa, atorAdmin, Dados{})
	require.ErrorIs(t, err, ErrPreRequisitoAusente)
	assert.Equal(t, CadastroHomologado, c.store.get(60).Situacao)

	c.store.put(Subprocesso{Codigo: 60, UnidadeCodigo: 3, Situacao: CadastroHomologado, MapaCodigo: ptr(9)})
	limite := agoraTeste.Add(15 * 24 * time.Hour)
	res, err := c.svc.AplicarAcao(context.Background(), 60, DisponibilizarMapa, atorAdmin, Dados{DataLimite: &limite})
	require.NoError(t, err)
	assert.Equal(t, MapaDisponibilizado, res.Subprocesso.Situacao)
	require.NotNil(t, res.Subprocesso.DataLimiteEtapa2)
	assert.Equal(t, limite, *res.Subprocesso.DataLimiteEtapa2)
}

func TestAlterarDataLimite(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 70, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})

	passado := agoraTeste.Add(-time.Hour)
	_, err := c.svc.AplicarAcao(context.Background(), 70, AlterarDataLimite, atorAdmin, Dados{DataLimite: &passado})
	require.ErrorIs(t, err, ErrValidacao)

	_, err = c.svc.AplicarAcao(context.Background(), 70, AlterarDataLimite, atorAdmin, Dados{})
	require.ErrorIs(t, err, ErrValidacao)

	futuro := time.Date(2026, 6, 30, 23, 59, 0, 0, time.UTC)
	res, err := c.svc.AplicarAcao(context.Background(), 70, AlterarDataLimite, atorAdmin, Dados{DataLimite: &futuro})
	require.NoError(t, err)
	assert.Equal(t, CadastroEmAndamento, res.Subprocesso.Situacao)
	require.NotNil(t, res.Subprocesso.DataLimiteEtapa1)
	assert.Equal(t, futuro, *res.Subprocesso.DataLimiteEtapa1)

	analises, movimentacoes := c.store.contagem(70)
	assert.Equal(t, 1, analises)
	assert.Zero(t, movimentacoes)

	require.Len(t, res.Notificacoes, 1)
	assert.Equal(t, int64(3), res.Notificacoes[0].UnidadeCodigo)
	assert.Equal(t, "Data limite da etapa atual da unidade COSIS alterada para 30/06/2026", res.Notificacoes[0].Descricao)

	hist, err := c.svc.ListarHistorico(context.Background(), 70)
	require.NoError(t, err)
	assert.Equal(t, "Data limite alterada para 30/06/2026", hist.Analises[0].Observacoes)
}

func TestAceitarMantemSituacaoEMoveParaSuperior(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 80, UnidadeCodigo: 3, Situacao: CadastroDisponibilizado})

	res, err := c.svc.AplicarAcao(context.Background(), 80, AceitarCadastro, atorGestor, Dados{})
	require.NoError(t, err)
	assert.Equal(t, CadastroDisponibilizado, res.Subprocesso.Situacao)
	assert.Equal(t, int64(2), res.Subprocesso.Versao)

	d, err := c.svc.Detalhar(context.Background(), 80)
	require.NoError(t, err)
	require.NotNil(t, d.LocalizacaoAtual)
	assert.Equal(t, int64(1), d.LocalizacaoAtual.UnidadeCodigo)
	assert.Equal(t, "ADMIN", d.LocalizacaoAtual.UnidadeSigla)
	assert.Equal(t, "COSIS", d.UnidadeSigla)
}

func TestEnviarLembrete(t *testing.T) {
	c := novoCenario(t)
	limite := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	c.store.put(Subprocesso{Codigo: 90, UnidadeCodigo: 3, Situacao: CadastroEmAndamento, DataLimiteEtapa1: &limite})

	res, err := c.svc.AplicarAcao(context.Background(), 90, EnviarLembrete, atorGestor, Dados{})
	require.NoError(t, err)
	require.Len(t, res.Notificacoes, 1)
	assert.Equal(t, int64(3), res.Notificacoes[0].UnidadeCodigo)
	assert.Equal(t, "Lembrete: o prazo da etapa atual da unidade COSIS termina em 20/05/2026", res.Notificacoes[0].Descricao)

	analises, movimentacoes := c.store.contagem(90)
	assert.Zero(t, analises)
	assert.Zero(t, movimentacoes)
	assert.Equal(t, int64(1), c.store.get(90).Versao)

	c.store.put(Subprocesso{Codigo: 91, UnidadeCodigo: 3, Situacao: Homologado})
	_, err = c.svc.AplicarAcao(context.Background(), 91, EnviarLembrete, atorGestor, Dados{})
	assert.ErrorIs(t, err, ErrTransicaoInvalida)

	c.sink.falha = errInfra
	_, err = c.svc.AplicarAcao(context.Background(), 90, EnviarLembrete, atorAdmin, Dados{})
	assert.ErrorIs(t, err, errInfra)
}

func TestAcaoDesconhecidaOuCapacidade(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 95, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})

	_, err := c.svc.AplicarAcao(context.Background(), 95, Acao("apagarTudo"), atorAdmin, Dados{})
	assert.ErrorIs(t, err, ErrValidacao)

	_, err = c.svc.AplicarAcao(context.Background(), 95, EditarCadastro, atorChefe, Dados{})
	assert.ErrorIs(t, err, ErrValidacao)
}

func TestSubprocessoOuUnidadeInexistente(t *testing.T) {
	c := novoCenario(t)

	_, err := c.svc.AplicarAcao(context.Background(), 999, DisponibilizarCadastro, atorChefe, Dados{})
	assert.ErrorIs(t, err, ErrNaoEncontrado)

	_, err = c.svc.ListarHistorico(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNaoEncontrado)

	_, err = c.svc.CalcularPermissoes(context.Background(), 999, atorChefe)
	assert.ErrorIs(t, err, ErrNaoEncontrado)

	_, err = c.svc.Detalhar(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNaoEncontrado)

	c.store.put(Subprocesso{Codigo: 96, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})
	_, err = c.svc.AplicarAcao(context.Background(), 96, DisponibilizarCadastro, Ator{Usuario: "x", Unidade: 77}, Dados{})
	assert.ErrorIs(t, err, ErrNaoEncontrado)
}

func TestHistoricoIdempotenteEOrdenado(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 100, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})
	ctx := context.Background()

	_, err := c.svc.AplicarAcao(ctx, 100, DisponibilizarCadastro, atorChefe, Dados{})
	require.NoError(t, err)
	_, err = c.svc.AplicarAcao(ctx, 100, DevolverCadastro, atorGestor, Dados{Observacoes: "rever"})
	require.NoError(t, err)

	primeiro, err := c.svc.ListarHistorico(ctx, 100)
	require.NoError(t, err)
	segundo, err := c.svc.ListarHistorico(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, primeiro, segundo)

	require.Len(t, primeiro.Analises, 2)
	assert.Equal(t, DevolverCadastro, primeiro.Analises[0].Acao)
	assert.Equal(t, DisponibilizarCadastro, primeiro.Analises[1].Acao)
	loc, ok := primeiro.LocalizacaoAtual()
	require.True(t, ok)
	assert.Equal(t, int64(3), loc)
}

func TestFluxoCompleto(t *testing.T) {
	c := novoCenario(t)
	c.store.put(Subprocesso{Codigo: 110, UnidadeCodigo: 3, Situacao: CadastroEmAndamento, MapaCodigo: ptr(5)})
	ctx := context.Background()

	passos := []struct {
		acao  Acao
		ator  Ator
		dados Dados
		final Situacao
	}{
		{DisponibilizarCadastro, atorChefe, Dados{}, CadastroDisponibilizado},
		{AceitarCadastro, atorGestor, Dados{}, CadastroDisponibilizado},
		{HomologarCadastro, atorAdmin, Dados{}, CadastroHomologado},
		{DisponibilizarMapa, atorAdmin, Dados{}, MapaDisponibilizado},
		{ApresentarSugestoes, atorChefe, Dados{Observacoes: "incluir competência"}, MapaComSugestoes},
		{DisponibilizarMapa, atorAdmin, Dados{}, MapaDisponibilizado},
		{ValidarMapa, atorChefe, Dados{}, MapaValidado},
		{AceitarMapa, atorGestor, Dados{}, MapaValidado},
		{HomologarMapa, atorAdmin, Dados{}, MapaHomologado},
		{Finalizar, atorAdmin, Dados{}, Homologado},
	}

	for _, p := range passos {
		res, err := c.svc.AplicarAcao(ctx, 110, p.acao, p.ator, p.dados)
		require.NoError(t, err, p.acao)
		require.Equal(t, p.final, res.Subprocesso.Situacao, p.acao)
	}

	sp := c.store.get(110)
	require.NotNil(t, sp.DataFimEtapa1)
	require.NotNil(t, sp.DataFimEtapa2)
	assert.Equal(t, int64(len(passos)+1), sp.Versao)

	analises, movimentacoes := c.store.contagem(110)
	assert.Equal(t, len(passos), analises)
	assert.Equal(t, len(passos), movimentacoes)

	res, err := c.svc.AplicarAcao(ctx, 110, ReabrirRevisao, atorAdmin, Dados{Justificativa: "ajuste no mapa"})
	require.NoError(t, err)
	assert.Equal(t, CadastroHomologado, res.Subprocesso.Situacao)
	assert.NotNil(t, res.Subprocesso.DataFimEtapa1)
	assert.Nil(t, res.Subprocesso.DataFimEtapa2)
}

// Para toda ação e situação, a permissão calculada coincide com o que o
// motor aceita.
func TestPermissoesEMotorConcordam(t *testing.T) {
	atores := map[string]Ator{"ADMIN": atorAdmin, "GESTOR": atorGestor, "CHEFE": atorChefe}
	limite := agoraTeste.Add(72 * time.Hour)
	dados := Dados{Observacoes: "ok", Justificativa: "motivo", DataLimite: &limite}

	for _, r := range Regras {
		if r.Natureza == Capacidade {
			continue
		}
		ator := atores[string(r.Habilitados[0].Perfil)]

		for _, sit := range Situacoes {
			c := novoCenario(t)
			c.store.put(Subprocesso{Codigo: 1, UnidadeCodigo: 3, Situacao: sit, MapaCodigo: ptr(1)})

			p, err := c.svc.CalcularPermissoes(context.Background(), 1, ator)
			require.NoError(t, err)

			res, err := c.svc.AplicarAcao(context.Background(), 1, r.Acao, ator, dados)
			if !p.Habilitada(r.Acao) {
				require.ErrorIs(t, err, ErrTransicaoInvalida, "%s em %s", r.Acao, sit)
				continue
			}
			require.NoError(t, err, "%s em %s", r.Acao, sit)

			esperado := r.Destino
			if esperado == "" {
				esperado = sit
			}
			assert.Equal(t, esperado, res.Subprocesso.Situacao)

			analises, movimentacoes := c.store.contagem(1)
			if r.Natureza == Notificacao {
				assert.Zero(t, analises)
				assert.Zero(t, movimentacoes)
				continue
			}
			assert.Equal(t, 1, analises, r.Acao)
			if r.DestinoMov == SemMovimentacao {
				assert.Zero(t, movimentacoes, r.Acao)
			} else {
				assert.Equal(t, 1, movimentacoes, r.Acao)
			}
		}
	}
}

func TestMetricasDeTransicao(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := novoCenario(t, ComMetrics(m))
	c.store.put(Subprocesso{Codigo: 120, UnidadeCodigo: 3, Situacao: CadastroEmAndamento})

	_, err := c.svc.AplicarAcao(context.Background(), 120, DisponibilizarCadastro, atorChefe, Dados{})
	require.NoError(t, err)
	_, err = c.svc.AplicarAcao(context.Background(), 120, DisponibilizarCadastro, atorChefe, Dados{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transicoes.WithLabelValues("disponibilizarCadastro", "sucesso")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transicoes.WithLabelValues("disponibilizarCadastro", "transicao_invalida")))
}
