package subprocesso

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lgalvao/sgc-sub008/internal/alerta"
	"github.com/lgalvao/sgc-sub008/internal/perfil"
	"github.com/lgalvao/sgc-sub008/internal/unidade"
)

var agoraTeste = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// memStore guarda subprocessos em memória com as mesmas garantias do banco:
// escritas só aparecem no commit e a versão é conferida de novo ao gravar.
type memStore struct {
	mu            sync.Mutex
	subprocessos  map[int64]Subprocesso
	processos     map[int64]Processo
	analises      []Analise
	movimentacoes []Movimentacao
	proximo       int64

	aoBuscarNaTx      func()
	falhaMovimentacao error

	// serializar faz as unidades atômicas rodarem uma de cada vez, como
	// acontece com o bloqueio de linha do Postgres.
	serializar bool
	txMu       sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		subprocessos: map[int64]Subprocesso{},
		processos:    map[int64]Processo{1: {Codigo: 1, Descricao: "Mapeamento 2026", Tipo: "MAPEAMENTO", CriadoEm: agoraTeste}},
		proximo:      1000,
	}
}

func (m *memStore) put(sp Subprocesso) Subprocesso {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sp.Versao == 0 {
		sp.Versao = 1
	}
	if sp.ProcessoCodigo == 0 {
		sp.ProcessoCodigo = 1
	}
	m.subprocessos[sp.Codigo] = sp
	return sp
}

func (m *memStore) get(codigo int64) Subprocesso {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subprocessos[codigo]
}

func (m *memStore) contagem(codigo int64) (analises, movimentacoes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.analises {
		if a.SubprocessoCodigo == codigo {
			analises++
		}
	}
	for _, mv := range m.movimentacoes {
		if mv.SubprocessoCodigo == codigo {
			movimentacoes++
		}
	}
	return analises, movimentacoes
}

func (m *memStore) Buscar(_ context.Context, codigo int64) (Subprocesso, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, ok := m.subprocessos[codigo]
	if !ok {
		return Subprocesso{}, ErrRegistroNaoEncontrado
	}
	return sp, nil
}

func (m *memStore) BuscarPorProcessoEUnidade(_ context.Context, processo, unidade int64) (Subprocesso, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sp := range m.subprocessos {
		if sp.ProcessoCodigo == processo && sp.UnidadeCodigo == unidade {
			return sp, nil
		}
	}
	return Subprocesso{}, ErrRegistroNaoEncontrado
}

func (m *memStore) BuscarProcesso(_ context.Context, codigo int64) (Processo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.processos[codigo]
	if !ok {
		return Processo{}, ErrRegistroNaoEncontrado
	}
	return p, nil
}

func (m *memStore) ListarAnalises(_ context.Context, codigo int64) ([]Analise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Analise
	for _, a := range m.analises {
		if a.SubprocessoCodigo == codigo {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DataHora.Equal(out[j].DataHora) {
			return out[i].DataHora.After(out[j].DataHora)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (m *memStore) ListarMovimentacoes(_ context.Context, codigo int64) ([]Movimentacao, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Movimentacao
	for _, mv := range m.movimentacoes {
		if mv.SubprocessoCodigo == codigo {
			out = append(out, mv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DataHora.Equal(out[j].DataHora) {
			return out[i].DataHora.After(out[j].DataHora)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (m *memStore) Executar(_ context.Context, fn func(tx Transacao) error) error {
	if m.serializar {
		m.txMu.Lock()
		defer m.txMu.Unlock()
	}
	tx := &memTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx)
}

func (m *memStore) commit(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sp := range tx.atualizados {
		if m.subprocessos[sp.Codigo].Versao != sp.Versao-1 {
			return ErrConflitoVersao
		}
	}
	for _, sp := range tx.criados {
		for _, existente := range m.subprocessos {
			if existente.ProcessoCodigo == sp.ProcessoCodigo && existente.UnidadeCodigo == sp.UnidadeCodigo {
				return ErrDuplicado
			}
		}
	}

	for _, sp := range tx.criados {
		m.subprocessos[sp.Codigo] = sp
	}
	for _, sp := range tx.atualizados {
		m.subprocessos[sp.Codigo] = sp
	}
	m.analises = append(m.analises, tx.analises...)
	m.movimentacoes = append(m.movimentacoes, tx.movimentacoes...)
	return nil
}

type memTx struct {
	store         *memStore
	criados       []Subprocesso
	atualizados   []Subprocesso
	analises      []Analise
	movimentacoes []Movimentacao
}

func (t *memTx) Buscar(ctx context.Context, codigo int64) (Subprocesso, error) {
	sp, err := t.store.Buscar(ctx, codigo)
	if t.store.aoBuscarNaTx != nil {
		t.store.aoBuscarNaTx()
	}
	return sp, err
}

func (t *memTx) Criar(_ context.Context, sp Subprocesso) (Subprocesso, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, existente := range t.store.subprocessos {
		if existente.ProcessoCodigo == sp.ProcessoCodigo && existente.UnidadeCodigo == sp.UnidadeCodigo {
			return Subprocesso{}, ErrDuplicado
		}
	}
	t.store.proximo++
	sp.Codigo = t.store.proximo
	sp.Versao = 1
	t.criados = append(t.criados, sp)
	return sp, nil
}

func (t *memTx) Atualizar(_ context.Context, sp Subprocesso) (Subprocesso, error) {
	if !sp.Situacao.Valida() {
		return Subprocesso{}, fmt.Errorf("situação inválida: %q", sp.Situacao)
	}
	t.store.mu.Lock()
	atual := t.store.subprocessos[sp.Codigo]
	t.store.mu.Unlock()
	if atual.Versao != sp.Versao {
		return Subprocesso{}, ErrConflitoVersao
	}
	sp.Versao++
	t.atualizados = append(t.atualizados, sp)
	return sp, nil
}

func (t *memTx) InserirAnalise(_ context.Context, a Analise) error {
	t.analises = append(t.analises, a)
	return nil
}

func (t *memTx) InserirMovimentacao(_ context.Context, mv Movimentacao) error {
	if t.store.falhaMovimentacao != nil {
		return t.store.falhaMovimentacao
	}
	t.movimentacoes = append(t.movimentacoes, mv)
	return nil
}

type hierarquiaFixa struct {
	h *unidade.Hierarquia
}

func (f hierarquiaFixa) Hierarquia(context.Context) (*unidade.Hierarquia, error) {
	return f.h, nil
}

// stubPerfis associa "usuario@unidade" aos perfis ativos.
type stubPerfis map[string]perfil.Perfis

func (s stubPerfis) PerfisAtivos(_ context.Context, usuario string, unidade int64, _ time.Time) (perfil.Perfis, error) {
	return s[fmt.Sprintf("%s@%d", usuario, unidade)], nil
}

// perfisComGancho chama antes em toda resolução de perfis, depois da leitura
// do subprocesso e antes da gravação.
type perfisComGancho struct {
	Perfis
	antes func()
}

func (p perfisComGancho) PerfisAtivos(ctx context.Context, usuario string, unidade int64, em time.Time) (perfil.Perfis, error) {
	p.antes()
	return p.Perfis.PerfisAtivos(ctx, usuario, unidade, em)
}

type memSink struct {
	mu      sync.Mutex
	alertas []alerta.Alerta
	falha   error
}

func (s *memSink) Enfileirar(_ context.Context, a alerta.Alerta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.falha != nil {
		return s.falha
	}
	s.alertas = append(s.alertas, a)
	return nil
}

func (s *memSink) enfileirados() []alerta.Alerta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alerta.Alerta(nil), s.alertas...)
}

func ptr(v int64) *int64 { return &v }

func hierarquiaTeste(t *testing.T) *unidade.Hierarquia {
	t.Helper()
	h, err := unidade.NovaHierarquia([]unidade.Unidade{
		{Codigo: 1, Sigla: "SEDOC", Tipo: unidade.TipoRaiz},
		{Codigo: 2, Sigla: "SGP", Tipo: unidade.TipoIntermediaria, CodigoSuperior: ptr(1)},
		{Codigo: 3, Sigla: "COSIS", Tipo: unidade.TipoOperacional, CodigoSuperior: ptr(2)},
		{Codigo: 4, Sigla: "COJUR", Tipo: unidade.TipoOperacional, CodigoSuperior: ptr(2)},
		{Codigo: 5, Sigla: "STIC", Tipo: unidade.TipoInteroperacional, CodigoSuperior: ptr(1)},
		{Codigo: 6, Sigla: "SESEL", Tipo: unidade.TipoOperacional, CodigoSuperior: ptr(5)},
		{Codigo: 7, Sigla: "ASSESSORIA", Tipo: unidade.TipoSemEquipe, CodigoSuperior: ptr(1)},
	}, unidade.ComRaiz(1, "ADMIN"))
	require.NoError(t, err)
	return h
}

var (
	atorAdmin      = Ator{Usuario: "admin", Unidade: 1}
	atorGestor     = Ator{Usuario: "gestor", Unidade: 2}
	atorChefe      = Ator{Usuario: "chefe", Unidade: 3}
	atorServidor   = Ator{Usuario: "servidor", Unidade: 3}
	atorGestorSTIC = Ator{Usuario: "gestor-stic", Unidade: 5}
	atorChefeSGP   = Ator{Usuario: "chefe-sgp", Unidade: 2}
)

type cenario struct {
	svc   *Service
	store *memStore
	sink  *memSink
}

func novoCenario(t *testing.T, opts ...Opcao) cenario {
	t.Helper()
	store := newMemStore()
	sink := &memSink{}
	base := []Opcao{
		ComRelogio(func() time.Time { return agoraTeste }),
		ComLogger(zerolog.Nop()),
	}
	svc := NewService(store, hierarquiaFixa{h: hierarquiaTeste(t)}, perfisTeste(), sink, append(base, opts...)...)
	return cenario{svc: svc, store: store, sink: sink}
}

func perfisTeste() stubPerfis {
	return stubPerfis{
		"admin@1":       perfil.NovoConjunto(perfil.Admin),
		"gestor@2":      perfil.NovoConjunto(perfil.Gestor),
		"chefe@3":       perfil.NovoConjunto(perfil.Chefe),
		"servidor@3":    perfil.NovoConjunto(perfil.Servidor),
		"gestor-stic@5": perfil.NovoConjunto(perfil.Gestor),
		"chefe-sgp@2":   perfil.NovoConjunto(perfil.Chefe),
		"admin-stic@5":  perfil.NovoConjunto(perfil.Admin),
	}
}

// novoCenarioComGancho monta o cenário com antes rodando a cada resolução de
// perfis.
func novoCenarioComGancho(t *testing.T, antes func()) cenario {
	t.Helper()
	c := novoCenario(t)
	c.svc.perfis = perfisComGancho{Perfis: perfisTeste(), antes: antes}
	return c
}

var errInfra = errors.New("conexão perdida")
