package subprocesso

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lgalvao/sgc-sub008/internal/db"
)

const codigoViolacaoUnicidade = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implementa Repositorio sobre PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectSubprocesso = `
        SELECT s.codigo, s.processo_codigo, p.descricao, s.unidade_codigo, s.mapa_codigo, s.situacao,
               s.data_limite_etapa1, s.data_fim_etapa1, s.data_limite_etapa2, s.data_fim_etapa2, s.versao
        FROM subprocesso s
        JOIN processo p ON p.codigo = s.processo_codigo`

func buscar(ctx context.Context, q querier, codigo int64) (Subprocesso, error) {
	return scanSubprocesso(q.QueryRow(ctx, selectSubprocesso+` WHERE s.codigo = $1`, codigo))
}

func scanSubprocesso(row pgx.Row) (Subprocesso, error) {
	var (
		sp       Subprocesso
		situacao string
	)
	err := row.Scan(&sp.Codigo, &sp.ProcessoCodigo, &sp.ProcessoDescricao, &sp.UnidadeCodigo, &sp.MapaCodigo, &situacao,
		&sp.DataLimiteEtapa1, &sp.DataFimEtapa1, &sp.DataLimiteEtapa2, &sp.DataFimEtapa2, &sp.Versao)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subprocesso{}, ErrRegistroNaoEncontrado
		}
		return Subprocesso{}, err
	}

	sit, ok := ParseSituacao(situacao)
	if !ok {
		return Subprocesso{}, fmt.Errorf("subprocesso %d com situação desconhecida %q", sp.Codigo, situacao)
	}
	sp.Situacao = sit
	return sp, nil
}

// Buscar carrega o subprocesso pelo código.
func (r *Repository) Buscar(ctx context.Context, codigo int64) (Subprocesso, error) {
	return buscar(ctx, r.pool, codigo)
}

// BuscarPorProcessoEUnidade carrega o subprocesso da unidade no processo.
func (r *Repository) BuscarPorProcessoEUnidade(ctx context.Context, processo, unidade int64) (Subprocesso, error) {
	return scanSubprocesso(r.pool.QueryRow(ctx, selectSubprocesso+`
        WHERE s.processo_codigo = $1 AND s.unidade_codigo = $2`, processo, unidade))
}

// BuscarProcesso carrega o processo pelo código.
func (r *Repository) BuscarProcesso(ctx context.Context, codigo int64) (Processo, error) {
	const query = `
        SELECT codigo, descricao, tipo, criado_em
        FROM processo
        WHERE codigo = $1
    `

	var p Processo
	if err := r.pool.QueryRow(ctx, query, codigo).Scan(&p.Codigo, &p.Descricao, &p.Tipo, &p.CriadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Processo{}, ErrRegistroNaoEncontrado
		}
		return Processo{}, err
	}
	return p, nil
}

// ListarAnalises devolve as análises da mais recente para a mais antiga.
func (r *Repository) ListarAnalises(ctx context.Context, subprocesso int64) ([]Analise, error) {
	const query = `
        SELECT id, subprocesso_codigo, tipo, acao, usuario_titulo, unidade_codigo, observacoes, data_hora
        FROM analise
        WHERE subprocesso_codigo = $1
        ORDER BY data_hora DESC, id DESC
    `

	rows, err := r.pool.Query(ctx, query, subprocesso)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analises []Analise
	for rows.Next() {
		var (
			a          Analise
			tipo, acao string
		)
		if err := rows.Scan(&a.ID, &a.SubprocessoCodigo, &tipo, &acao, &a.UsuarioTitulo, &a.UnidadeCodigo, &a.Observacoes, &a.DataHora); err != nil {
			return nil, err
		}
		a.Tipo = TipoAnalise(tipo)
		a.Acao = Acao(acao)
		analises = append(analises, a)
	}
	return analises, rows.Err()
}

// ListarMovimentacoes devolve as movimentações da mais recente para a mais
// antiga.
func (r *Repository) ListarMovimentacoes(ctx context.Context, subprocesso int64) ([]Movimentacao, error) {
	const query = `
        SELECT id, subprocesso_codigo, unidade_origem_codigo, unidade_destino_codigo, usuario_titulo, descricao, data_hora
        FROM movimentacao
        WHERE subprocesso_codigo = $1
        ORDER BY data_hora DESC, id DESC
    `

	rows, err := r.pool.Query(ctx, query, subprocesso)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movimentacoes []Movimentacao
	for rows.Next() {
		var m Movimentacao
		if err := rows.Scan(&m.ID, &m.SubprocessoCodigo, &m.UnidadeOrigem, &m.UnidadeDestino, &m.UsuarioTitulo, &m.Descricao, &m.DataHora); err != nil {
			return nil, err
		}
		movimentacoes = append(movimentacoes, m)
	}
	return movimentacoes, rows.Err()
}

// Executar abre uma transação read committed; qualquer erro de fn desfaz
// todas as escritas.
func (r *Repository) Executar(ctx context.Context, fn func(tx Transacao) error) error {
	return db.WithTx(ctx, r.pool, func(pctx context.Context, tx pgx.Tx) error {
		return fn(pgTransacao{tx: tx})
	})
}

type pgTransacao struct {
	tx pgx.Tx
}

func (t pgTransacao) Buscar(ctx context.Context, codigo int64) (Subprocesso, error) {
	return buscar(ctx, t.tx, codigo)
}

func (t pgTransacao) Criar(ctx context.Context, sp Subprocesso) (Subprocesso, error) {
	const query = `
        INSERT INTO subprocesso (processo_codigo, unidade_codigo, mapa_codigo, situacao, data_limite_etapa1, data_limite_etapa2, versao)
        VALUES ($1, $2, $3, $4, $5, $6, 1)
        RETURNING codigo, versao
    `

	err := t.tx.QueryRow(ctx, query, sp.ProcessoCodigo, sp.UnidadeCodigo, sp.MapaCodigo, string(sp.Situacao),
		sp.DataLimiteEtapa1, sp.DataLimiteEtapa2).Scan(&sp.Codigo, &sp.Versao)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codigoViolacaoUnicidade {
			return Subprocesso{}, ErrDuplicado
		}
		return Subprocesso{}, err
	}
	return sp, nil
}

// Atualizar grava a nova situação e datas condicionada à versão lida.
func (t pgTransacao) Atualizar(ctx context.Context, sp Subprocesso) (Subprocesso, error) {
	if !sp.Situacao.Valida() {
		return Subprocesso{}, fmt.Errorf("situação inválida: %q", sp.Situacao)
	}

	const query = `
        UPDATE subprocesso
        SET situacao = $3,
            data_limite_etapa1 = $4,
            data_fim_etapa1 = $5,
            data_limite_etapa2 = $6,
            data_fim_etapa2 = $7,
            versao = versao + 1
        WHERE codigo = $1 AND versao = $2
    `

	tag, err := t.tx.Exec(ctx, query, sp.Codigo, sp.Versao, string(sp.Situacao),
		sp.DataLimiteEtapa1, sp.DataFimEtapa1, sp.DataLimiteEtapa2, sp.DataFimEtapa2)
	if err != nil {
		return Subprocesso{}, err
	}
	if tag.RowsAffected() == 0 {
		return Subprocesso{}, ErrConflitoVersao
	}
	sp.Versao++
	return sp, nil
}

func (t pgTransacao) InserirAnalise(ctx context.Context, a Analise) error {
	const query = `
        INSERT INTO analise (id, subprocesso_codigo, tipo, acao, usuario_titulo, unidade_codigo, observacoes, data_hora)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := t.tx.Exec(ctx, query, a.ID, a.SubprocessoCodigo, string(a.Tipo), string(a.Acao),
		a.UsuarioTitulo, a.UnidadeCodigo, a.Observacoes, a.DataHora)
	return err
}

func (t pgTransacao) InserirMovimentacao(ctx context.Context, m Movimentacao) error {
	const query = `
        INSERT INTO movimentacao (id, subprocesso_codigo, unidade_origem_codigo, unidade_destino_codigo, usuario_titulo, descricao, data_hora)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := t.tx.Exec(ctx, query, m.ID, m.SubprocessoCodigo, m.UnidadeOrigem, m.UnidadeDestino,
		m.UsuarioTitulo, m.Descricao, m.DataHora)
	return err
}
