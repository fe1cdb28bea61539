package unidade

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de unidades.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListarTodas carrega a estrutura organizacional completa.
func (r *Repository) ListarTodas(ctx context.Context) ([]Unidade, error) {
	const query = `
        SELECT codigo, sigla, nome, tipo, codigo_superior, COALESCE(titulo_titular, '')
        FROM unidade
        ORDER BY codigo
    `

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var unidades []Unidade
	for rows.Next() {
		u, err := scanUnidade(rows)
		if err != nil {
			return nil, err
		}
		unidades = append(unidades, u)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return unidades, nil
}

func scanUnidade(row pgx.Row) (Unidade, error) {
	var (
		u    Unidade
		tipo string
	)
	if err := row.Scan(&u.Codigo, &u.Sigla, &u.Nome, &tipo, &u.CodigoSuperior, &u.TituloTitular); err != nil {
		return Unidade{}, err
	}
	t, err := ParseTipo(tipo)
	if err != nil {
		return Unidade{}, fmt.Errorf("unidade %d: %w", u.Codigo, err)
	}
	u.Tipo = t
	return u, nil
}
