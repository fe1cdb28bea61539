package subprocesso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lgalvao/sgc-sub008/internal/alerta"
	"github.com/lgalvao/sgc-sub008/internal/perfil"
	"github.com/lgalvao/sgc-sub008/internal/unidade"
)

const formatoData = "02/01/2006"

var (
	ErrRegistroNaoEncontrado = errors.New("registro não encontrado")
	ErrConflitoVersao        = errors.New("subprocesso alterado por outra operação")
	ErrDuplicado             = errors.New("subprocesso já existe para a unidade no processo")
)

// Repositorio é o armazenamento de subprocessos e de sua trilha de auditoria.
type Repositorio interface {
	Buscar(ctx context.Context, codigo int64) (Subprocesso, error)
	BuscarPorProcessoEUnidade(ctx context.Context, processo, unidade int64) (Subprocesso, error)
	BuscarProcesso(ctx context.Context, codigo int64) (Processo, error)
	ListarAnalises(ctx context.Context, subprocesso int64) ([]Analise, error)
	ListarMovimentacoes(ctx context.Context, subprocesso int64) ([]Movimentacao, error)
	// Executar roda fn em uma unidade atômica: tudo ou nada.
	Executar(ctx context.Context, fn func(tx Transacao) error) error
}

// Transacao expõe as escritas permitidas dentro da unidade atômica.
type Transacao interface {
	Buscar(ctx context.Context, codigo int64) (Subprocesso, error)
	Criar(ctx context.Context, sp Subprocesso) (Subprocesso, error)
	// Atualizar grava somente se a versão lida ainda for a atual; caso
	// contrário devolve ErrConflitoVersao.
	Atualizar(ctx context.Context, sp Subprocesso) (Subprocesso, error)
	InserirAnalise(ctx context.Context, a Analise) error
	InserirMovimentacao(ctx context.Context, m Movimentacao) error
}

// Unidades entrega a hierarquia vigente.
type Unidades interface {
	Hierarquia(ctx context.Context) (*unidade.Hierarquia, error)
}

// Perfis resolve os perfis ativos de um usuário em uma unidade.
type Perfis interface {
	PerfisAtivos(ctx context.Context, usuario string, unidade int64, em time.Time) (perfil.Perfis, error)
}

// Service é o motor de transições dos subprocessos.
type Service struct {
	repo     Repositorio
	unidades Unidades
	perfis   Perfis
	alertas  alerta.Sink
	agora    func() time.Time
	logger   zerolog.Logger
	metrics  *Metrics
}

// Opcao ajusta o Service.
type Opcao func(*Service)

// ComRelogio substitui a fonte de data e hora.
func ComRelogio(agora func() time.Time) Opcao {
	return func(s *Service) { s.agora = agora }
}

// ComLogger substitui o logger do componente.
func ComLogger(l zerolog.Logger) Opcao {
	return func(s *Service) { s.logger = l }
}

// ComMetrics liga a coleta de métricas.
func ComMetrics(m *Metrics) Opcao {
	return func(s *Service) { s.metrics = m }
}

// NewService cria uma nova instância de Service.
func NewService(repo Repositorio, unidades Unidades, perfis Perfis, alertas alerta.Sink, opts ...Opcao) *Service {
	s := &Service{
		repo:     repo,
		unidades: unidades,
		perfis:   perfis,
		alertas:  alertas,
		agora:    time.Now,
		logger:   log.With().Str("component", "subprocesso").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resultado é o subprocesso atualizado e os alertas emitidos.
type Resultado struct {
	Subprocesso  Subprocesso     `json:"subprocesso"`
	Notificacoes []alerta.Alerta `json:"notificacoes"`
}

type contexto struct {
	h       *unidade.Hierarquia
	sp      Subprocesso
	perfis  perfil.Perfis
	relacao unidade.Relacao
}

func (s *Service) carregar(ctx context.Context, codigo int64, ator Ator, agora time.Time) (contexto, error) {
	sp, err := s.repo.Buscar(ctx, codigo)
	if err != nil {
		if errors.Is(err, ErrRegistroNaoEncontrado) {
			return contexto{}, novoErro(TipoNaoEncontrado, "subprocesso %d não encontrado", codigo)
		}
		return contexto{}, err
	}

	h, err := s.unidades.Hierarquia(ctx)
	if err != nil {
		return contexto{}, fmt.Errorf("carregar hierarquia: %w", err)
	}
	if _, err := h.Buscar(ator.Unidade); err != nil {
		return contexto{}, novoErro(TipoNaoEncontrado, "unidade %d não encontrada", ator.Unidade)
	}

	perfis, err := s.perfis.PerfisAtivos(ctx, ator.Usuario, ator.Unidade, agora)
	if err != nil {
		return contexto{}, err
	}

	return contexto{
		h:       h,
		sp:      sp,
		perfis:  perfis,
		relacao: h.Relacao(ator.Unidade, sp.UnidadeCodigo),
	}, nil
}

// AplicarAcao valida e aplica a ação sobre o subprocesso. A versão autorizada
// na leitura precisa ser a mesma dentro da unidade atômica que grava a
// mudança.
func (s *Service) AplicarAcao(ctx context.Context, codigo int64, acao Acao, ator Ator, dados Dados) (res Resultado, err error) {
	inicio := time.Now()
	defer func() {
		s.metrics.observar(acao, err, inicio)
		if err != nil {
			s.logRejeicao(err, codigo, acao, ator)
		}
	}()

	regra, ok := RegraDe(acao)
	if !ok || regra.Natureza == Capacidade {
		return Resultado{}, novoErro(TipoValidacao, "ação desconhecida: %s", acao)
	}

	agora := s.agora()
	c, err := s.carregar(ctx, codigo, ator, agora)
	if err != nil {
		return Resultado{}, err
	}

	if !regra.Habilita(c.perfis, c.relacao) {
		return Resultado{}, novoErro(TipoProibido, "usuário %s sem permissão para %s no subprocesso %d", ator.Usuario, acao, codigo)
	}
	if err := regra.validar(dados, agora); err != nil {
		return Resultado{}, err
	}

	if regra.Natureza == Notificacao {
		return s.lembrar(ctx, c, regra, agora)
	}

	destinoMov := s.destinoMovimentacao(c, regra.DestinoMov, ator)
	sigla := c.h.Sigla(c.sp.UnidadeCodigo)

	var atualizado Subprocesso
	err = s.repo.Executar(ctx, func(tx Transacao) error {
		atual, err := tx.Buscar(ctx, codigo)
		if err != nil {
			return err
		}
		if atual.Versao != c.sp.Versao {
			return ErrConflitoVersao
		}

		destino, err := transitar(ctx, atual.Situacao, acao)
		if err != nil {
			return err
		}
		if regra.RequerMapa && atual.MapaCodigo == nil {
			return novoErro(TipoPreRequisitoAusente, "subprocesso %d não possui mapa de competências", codigo)
		}

		atualizado, err = tx.Atualizar(ctx, regra.aplicar(atual, destino, dados, agora))
		if err != nil {
			return err
		}

		if err := tx.InserirAnalise(ctx, Analise{
			ID:                novoID(),
			SubprocessoCodigo: codigo,
			Tipo:              regra.tipoAnalise(atual.Situacao),
			Acao:              acao,
			UsuarioTitulo:     ator.Usuario,
			UnidadeCodigo:     ator.Unidade,
			Observacoes:       regra.observacoesAnalise(dados),
			DataHora:          agora,
		}); err != nil {
			return err
		}

		if regra.DestinoMov == SemMovimentacao {
			return nil
		}
		return tx.InserirMovimentacao(ctx, Movimentacao{
			ID:                novoID(),
			SubprocessoCodigo: codigo,
			UnidadeOrigem:     ator.Unidade,
			UnidadeDestino:    destinoMov,
			UsuarioTitulo:     ator.Usuario,
			Descricao:         fmt.Sprintf(regra.DescricaoMov, sigla),
			DataHora:          agora,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrConflitoVersao):
			return Resultado{}, novoErro(TipoTransicaoInvalida, "subprocesso %d alterado por outra operação; ação %s não aplicada", codigo, acao)
		case errors.Is(err, ErrRegistroNaoEncontrado):
			return Resultado{}, novoErro(TipoNaoEncontrado, "subprocesso %d não encontrado", codigo)
		}
		return Resultado{}, err
	}

	alertas := s.notificar(ctx, c.h, s.eventoDaAcao(c, regra, destinoMov, dados, sigla), agora)

	s.logger.Info().
		Int64("subprocesso", codigo).
		Str("acao", string(acao)).
		Str("situacao_anterior", string(c.sp.Situacao)).
		Str("situacao", string(atualizado.Situacao)).
		Str("usuario", ator.Usuario).
		Int64("unidade", ator.Unidade).
		Msg("ação aplicada")

	return Resultado{Subprocesso: atualizado, Notificacoes: alertas}, nil
}

func (s *Service) destinoMovimentacao(c contexto, d DestinoMov, ator Ator) int64 {
	switch d {
	case SuperiorAtor:
		if sup, ok := c.h.Superior(ator.Unidade); ok {
			return sup.Codigo
		}
		return ator.Unidade
	case UnidadeSubprocesso:
		return c.sp.UnidadeCodigo
	case UnidadeAtor:
		return ator.Unidade
	}
	return 0
}

func (s *Service) eventoDaAcao(c contexto, regra Regra, destinoMov int64, dados Dados, sigla string) alerta.Evento {
	ev := alerta.Evento{
		ProcessoCodigo: c.sp.ProcessoCodigo,
		UnidadeOrigem:  c.sp.UnidadeCodigo,
		UnidadeDestino: destinoMov,
	}
	if regra.DestinoMov == SemMovimentacao {
		ev.UnidadeDestino = c.sp.UnidadeCodigo
	}
	if regra.Acao == AlterarDataLimite && dados.DataLimite != nil {
		ev.Mensagem = fmt.Sprintf(regra.MensagemAlerta, sigla, dados.DataLimite.Format(formatoData))
	} else {
		ev.Mensagem = fmt.Sprintf(regra.MensagemAlerta, sigla)
	}
	return ev
}

// notificar distribui e enfileira os alertas de um evento já gravado. Falhas
// aqui não desfazem a ação.
func (s *Service) notificar(ctx context.Context, h *unidade.Hierarquia, ev alerta.Evento, agora time.Time) []alerta.Alerta {
	alertas, err := alerta.Distribuir(h, ev, agora)
	if err != nil {
		s.logger.Warn().Err(err).Int64("unidade", ev.UnidadeDestino).Msg("falha ao distribuir alertas")
		return nil
	}
	for _, a := range alertas {
		if err := s.alertas.Enfileirar(ctx, a); err != nil {
			s.logger.Warn().Err(err).Int64("unidade", a.UnidadeCodigo).Msg("falha ao enfileirar alerta")
		}
	}
	return alertas
}

// lembrar envia o lembrete de prazo para a unidade do subprocesso, sem
// alterar situação nem trilha de auditoria.
func (s *Service) lembrar(ctx context.Context, c contexto, regra Regra, agora time.Time) (Resultado, error) {
	if _, err := transitar(ctx, c.sp.Situacao, regra.Acao); err != nil {
		return Resultado{}, err
	}

	prazo := "data não definida"
	if limite := c.sp.DataLimite(); limite != nil {
		prazo = limite.Format(formatoData)
	}
	atual, err := s.repo.Buscar(ctx, c.sp.Codigo)
	if err != nil {
		if errors.Is(err, ErrRegistroNaoEncontrado) {
			return Resultado{}, novoErro(TipoNaoEncontrado, "subprocesso %d não encontrado", c.sp.Codigo)
		}
		return Resultado{}, err
	}
	if atual.Versao != c.sp.Versao {
		return Resultado{}, novoErro(TipoTransicaoInvalida, "subprocesso %d alterado por outra operação; ação %s não aplicada", c.sp.Codigo, regra.Acao)
	}

	sigla := c.h.Sigla(c.sp.UnidadeCodigo)
	a := alerta.Novo(c.sp.ProcessoCodigo, c.sp.UnidadeCodigo, sigla, fmt.Sprintf(regra.MensagemAlerta, sigla, prazo), agora)

	if err := s.alertas.Enfileirar(ctx, a); err != nil {
		return Resultado{}, fmt.Errorf("enfileirar lembrete: %w", err)
	}
	return Resultado{Subprocesso: c.sp, Notificacoes: []alerta.Alerta{a}}, nil
}

func (s *Service) logRejeicao(err error, codigo int64, acao Acao, ator Ator) {
	tipo := TipoDe(err)
	ev := s.logger.Warn()
	if tipo == TipoInterno {
		ev = s.logger.Error()
	}
	ev.Err(err).
		Int64("subprocesso", codigo).
		Str("acao", string(acao)).
		Str("usuario", ator.Usuario).
		Int64("unidade", ator.Unidade).
		Str("tipo", string(tipo)).
		Msg("ação rejeitada")
}

// CalcularPermissoes devolve o que o ator pode fazer no subprocesso agora.
func (s *Service) CalcularPermissoes(ctx context.Context, codigo int64, ator Ator) (Permissoes, error) {
	c, err := s.carregar(ctx, codigo, ator, s.agora())
	if err != nil {
		return Permissoes{}, err
	}
	return Calcular(c.sp.Situacao, c.perfis, c.relacao), nil
}

// ListarHistorico devolve análises e movimentações do subprocesso, das mais
// recentes para as mais antigas.
func (s *Service) ListarHistorico(ctx context.Context, codigo int64) (Historico, error) {
	if _, err := s.repo.Buscar(ctx, codigo); err != nil {
		if errors.Is(err, ErrRegistroNaoEncontrado) {
			return Historico{}, novoErro(TipoNaoEncontrado, "subprocesso %d não encontrado", codigo)
		}
		return Historico{}, err
	}
	return s.historico(ctx, codigo)
}

func (s *Service) historico(ctx context.Context, codigo int64) (Historico, error) {
	analises, err := s.repo.ListarAnalises(ctx, codigo)
	if err != nil {
		return Historico{}, err
	}
	movimentacoes, err := s.repo.ListarMovimentacoes(ctx, codigo)
	if err != nil {
		return Historico{}, err
	}

	if analises == nil {
		analises = []Analise{}
	}
	if movimentacoes == nil {
		movimentacoes = []Movimentacao{}
	}
	return Historico{Analises: analises, Movimentacoes: movimentacoes}, nil
}

// Localizacao identifica a unidade que detém o subprocesso.
type Localizacao struct {
	UnidadeCodigo int64  `json:"unidadeCodigo"`
	UnidadeSigla  string `json:"unidadeSigla"`
}

// Detalhe é a visão de leitura do subprocesso.
type Detalhe struct {
	Subprocesso      Subprocesso  `json:"subprocesso"`
	UnidadeSigla     string       `json:"unidadeSigla"`
	Prazo            *time.Time   `json:"prazo,omitempty"`
	LocalizacaoAtual *Localizacao `json:"localizacaoAtual,omitempty"`
}

// Detalhar devolve o subprocesso com a sigla da unidade e a localização
// atual.
func (s *Service) Detalhar(ctx context.Context, codigo int64) (Detalhe, error) {
	sp, err := s.repo.Buscar(ctx, codigo)
	if err != nil {
		if errors.Is(err, ErrRegistroNaoEncontrado) {
			return Detalhe{}, novoErro(TipoNaoEncontrado, "subprocesso %d não encontrado", codigo)
		}
		return Detalhe{}, err
	}
	hist, err := s.historico(ctx, codigo)
	if err != nil {
		return Detalhe{}, err
	}
	h, err := s.unidades.Hierarquia(ctx)
	if err != nil {
		return Detalhe{}, fmt.Errorf("carregar hierarquia: %w", err)
	}

	d := Detalhe{
		Subprocesso:  sp,
		UnidadeSigla: h.Sigla(sp.UnidadeCodigo),
		Prazo:        sp.DataLimite(),
	}
	if loc, ok := hist.LocalizacaoAtual(); ok {
		d.LocalizacaoAtual = &Localizacao{UnidadeCodigo: loc, UnidadeSigla: h.Sigla(loc)}
	}
	return d, nil
}
