package subprocesso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lgalvao/sgc-sub008/internal/alerta"
	"github.com/lgalvao/sgc-sub008/internal/perfil"
	"github.com/lgalvao/sgc-sub008/internal/unidade"
)

// ResultadoUnidade é o desfecho de uma unidade em uma operação em bloco.
type ResultadoUnidade struct {
	UnidadeCodigo int64        `json:"unidadeCodigo"`
	Subprocesso   *Subprocesso `json:"subprocesso,omitempty"`
	Erro          *Erro        `json:"erro,omitempty"`
}

// Sucesso indica se a unidade foi processada.
func (r ResultadoUnidade) Sucesso() bool {
	return r.Erro == nil
}

func semRepeticao(codigos []int64) []int64 {
	vistos := make(map[int64]struct{}, len(codigos))
	out := make([]int64, 0, len(codigos))
	for _, c := range codigos {
		if _, ok := vistos[c]; ok {
			continue
		}
		vistos[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// erroDeUnidade converte qualquer falha em um resultado da unidade.
func (s *Service) erroDeUnidade(err error, codigo int64) *Erro {
	var e *Erro
	if errors.As(err, &e) {
		return e
	}
	s.logger.Error().Err(err).Int64("unidade", codigo).Msg("falha ao processar unidade em bloco")
	return &Erro{Tipo: TipoInterno, Mensagem: "erro interno ao processar a unidade"}
}

// ProcessarEmBloco aplica a mesma ação aos subprocessos das unidades
// informadas. Cada unidade é uma unidade atômica própria: a falha de uma não
// desfaz as demais.
func (s *Service) ProcessarEmBloco(ctx context.Context, processo int64, unidades []int64, acao Acao, ator Ator, dados Dados) ([]ResultadoUnidade, error) {
	if len(unidades) == 0 {
		return nil, novoErro(TipoValidacao, "nenhuma unidade informada")
	}
	if _, err := s.repo.BuscarProcesso(ctx, processo); err != nil {
		if errors.Is(err, ErrRegistroNaoEncontrado) {
			return nil, novoErro(TipoNaoEncontrado, "processo %d não encontrado", processo)
		}
		return nil, err
	}

	unidades = semRepeticao(unidades)
	resultados := make([]ResultadoUnidade, 0, len(unidades))
	for _, u := range unidades {
		if err := ctx.Err(); err != nil {
			return resultados, err
		}

		r := ResultadoUnidade{UnidadeCodigo: u}
		sp, err := s.repo.BuscarPorProcessoEUnidade(ctx, processo, u)
		switch {
		case errors.Is(err, ErrRegistroNaoEncontrado):
			err = novoErro(TipoNaoEncontrado, "unidade %d não participa do processo %d", u, processo)
		case err == nil:
			var res Resultado
			res, err = s.AplicarAcao(ctx, sp.Codigo, acao, ator, dados)
			if err == nil {
				r.Subprocesso = &res.Subprocesso
			}
		}
		if err != nil {
			r.Erro = s.erroDeUnidade(err, u)
		}
		resultados = append(resultados, r)
	}

	s.logger.Info().
		Int64("processo", processo).
		Str("acao", string(acao)).
		Int("unidades", len(resultados)).
		Int("falhas", ContarFalhas(resultados)).
		Msg("processamento em bloco concluído")

	return resultados, nil
}

// ContarFalhas conta as unidades sem sucesso.
func ContarFalhas(resultados []ResultadoUnidade) int {
	n := 0
	for _, r := range resultados {
		if !r.Sucesso() {
			n++
		}
	}
	return n
}

// IniciarProcesso cria um subprocesso em andamento para cada unidade
// participante da subárvore do ator, registra a movimentação inicial e avisa as unidades. As
// unidades que já participam do processo aparecem como falha.
func (s *Service) IniciarProcesso(ctx context.Context, processo int64, unidades []int64, ator Ator, dataLimite time.Time) ([]ResultadoUnidade, error) {
	agora := s.agora()

	proc, err := s.repo.BuscarProcesso(ctx, processo)
	if err != nil {
		if errors.Is(err, ErrRegistroNaoEncontrado) {
			return nil, novoErro(TipoNaoEncontrado, "processo %d não encontrado", processo)
		}
		return nil, err
	}

	h, err := s.unidades.Hierarquia(ctx)
	if err != nil {
		return nil, fmt.Errorf("carregar hierarquia: %w", err)
	}
	if _, err := h.Buscar(ator.Unidade); err != nil {
		return nil, novoErro(TipoNaoEncontrado, "unidade %d não encontrada", ator.Unidade)
	}
	perfis, err := s.perfis.PerfisAtivos(ctx, ator.Usuario, ator.Unidade, agora)
	if err != nil {
		return nil, err
	}
	if !perfis.Contem(perfil.Admin) {
		return nil, novoErro(TipoProibido, "somente administradores iniciam processos")
	}

	if len(unidades) == 0 {
		return nil, novoErro(TipoValidacao, "nenhuma unidade informada")
	}
	if !dataLimite.After(agora) {
		return nil, novoErro(TipoValidacao, "data limite deve ser posterior à data atual")
	}

	elegiveis, err := h.Elegiveis(ator.Unidade)
	if err != nil {
		return nil, err
	}
	aptas := make(map[int64]struct{}, len(elegiveis))
	for _, u := range elegiveis {
		aptas[u.Codigo] = struct{}{}
	}

	avisadas := make(map[int64]struct{})
	unidades = semRepeticao(unidades)
	resultados := make([]ResultadoUnidade, 0, len(unidades))
	for _, u := range unidades {
		if err := ctx.Err(); err != nil {
			return resultados, err
		}

		r := ResultadoUnidade{UnidadeCodigo: u}
		criado, err := s.iniciarUnidade(ctx, h, aptas, proc, u, ator, dataLimite, agora)
		if err != nil {
			r.Erro = s.erroDeUnidade(err, u)
			resultados = append(resultados, r)
			continue
		}
		r.Subprocesso = &criado

		sigla := h.Sigla(u)
		ev := alerta.Evento{
			ProcessoCodigo:   proc.Codigo,
			UnidadeOrigem:    u,
			UnidadeDestino:   u,
			Mensagem:         fmt.Sprintf("Início do processo '%s' para a unidade %s. Prazo da etapa: %s", proc.Descricao, sigla, dataLimite.Format(formatoData)),
			MensagemSuperior: fmt.Sprintf("Início do processo '%s' em unidades subordinadas", proc.Descricao),
		}
		alertas, err := alerta.Distribuir(h, ev, agora)
		if err != nil {
			s.logger.Warn().Err(err).Int64("unidade", u).Msg("falha ao distribuir alertas")
		}
		for _, a := range alertas {
			if a.Agregado {
				if _, ok := avisadas[a.UnidadeCodigo]; ok {
					continue
				}
				avisadas[a.UnidadeCodigo] = struct{}{}
			}
			if err := s.alertas.Enfileirar(ctx, a); err != nil {
				s.logger.Warn().Err(err).Int64("unidade", a.UnidadeCodigo).Msg("falha ao enfileirar alerta")
			}
		}
		resultados = append(resultados, r)
	}

	s.logger.Info().
		Int64("processo", processo).
		Int("unidades", len(resultados)).
		Int("falhas", ContarFalhas(resultados)).
		Str("usuario", ator.Usuario).
		Msg("processo iniciado")

	return resultados, nil
}

// iniciarUnidade cria o subprocesso de uma unidade. aptas são as unidades
// elegíveis a partir da unidade do ator.
func (s *Service) iniciarUnidade(ctx context.Context, h *unidade.Hierarquia, aptas map[int64]struct{}, proc Processo, codigo int64, ator Ator, dataLimite, agora time.Time) (Subprocesso, error) {
	u, err := h.Buscar(codigo)
	if err != nil {
		return Subprocesso{}, novoErro(TipoNaoEncontrado, "unidade %d não encontrada", codigo)
	}
	if !u.Participa() {
		return Subprocesso{}, novoErro(TipoValidacao, "unidade %s não participa de processos", u.Sigla)
	}
	if _, ok := aptas[codigo]; !ok {
		return Subprocesso{}, novoErro(TipoValidacao, "unidade %s fora da subárvore da unidade %s", u.Sigla, h.Sigla(ator.Unidade))
	}

	limite := dataLimite
	var criado Subprocesso
	err = s.repo.Executar(ctx, func(tx Transacao) error {
		var err error
		criado, err = tx.Criar(ctx, Subprocesso{
			ProcessoCodigo:    proc.Codigo,
			ProcessoDescricao: proc.Descricao,
			UnidadeCodigo:     codigo,
			Situacao:          CadastroEmAndamento,
			DataLimiteEtapa1:  &limite,
			Versao:            1,
		})
		if err != nil {
			return err
		}
		return tx.InserirMovimentacao(ctx, Movimentacao{
			ID:                novoID(),
			SubprocessoCodigo: criado.Codigo,
			UnidadeOrigem:     ator.Unidade,
			UnidadeDestino:    codigo,
			UsuarioTitulo:     ator.Usuario,
			Descricao:         "Processo iniciado",
			DataHora:          agora,
		})
	})
	if errors.Is(err, ErrDuplicado) {
		return Subprocesso{}, novoErro(TipoValidacao, "unidade %s já participa do processo %d", u.Sigla, proc.Codigo)
	}
	return criado, err
}
