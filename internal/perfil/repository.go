package perfil

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso às atribuições de perfil.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectAtribuicao = `
        SELECT codigo, usuario_titulo, unidade_codigo, perfil, data_inicio, data_termino
        FROM atribuicao_perfil`

// ListarPorUsuarioUnidade lista atribuições do usuário na unidade.
func (r *Repository) ListarPorUsuarioUnidade(ctx context.Context, usuario string, unidade int64) ([]Atribuicao, error) {
	rows, err := r.pool.Query(ctx, selectAtribuicao+`
        WHERE usuario_titulo = $1 AND unidade_codigo = $2
        ORDER BY codigo`, usuario, unidade)
	if err != nil {
		return nil, err
	}
	return collectAtribuicoes(rows)
}

// ListarPorUnidadePerfil lista atribuições de um perfil na unidade.
func (r *Repository) ListarPorUnidadePerfil(ctx context.Context, unidade int64, p Perfil) ([]Atribuicao, error) {
	rows, err := r.pool.Query(ctx, selectAtribuicao+`
        WHERE unidade_codigo = $1 AND perfil = $2
        ORDER BY data_inicio NULLS FIRST, codigo`, unidade, string(p))
	if err != nil {
		return nil, err
	}
	return collectAtribuicoes(rows)
}

func collectAtribuicoes(rows pgx.Rows) ([]Atribuicao, error) {
	defer rows.Close()

	var atribuicoes []Atribuicao
	for rows.Next() {
		var (
			a      Atribuicao
			perfil string
		)
		if err := rows.Scan(&a.Codigo, &a.UsuarioTitulo, &a.UnidadeCodigo, &perfil, &a.DataInicio, &a.DataTermino); err != nil {
			return nil, err
		}
		a.Perfil = Normalize(perfil)
		atribuicoes = append(atribuicoes, a)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return atribuicoes, nil
}
