package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// Script é um arquivo de schema embutido no binário.
type Script struct {
	Nome string
	SQL  string
}

// Scripts devolve os scripts de schema em ordem de nome.
func Scripts() ([]Script, error) {
	nomes, err := fs.Glob(schemaFiles, "schema/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(nomes)

	scripts := make([]Script, 0, len(nomes))
	for _, nome := range nomes {
		conteudo, err := schemaFiles.ReadFile(nome)
		if err != nil {
			return nil, fmt.Errorf("ler %s: %w", nome, err)
		}
		scripts = append(scripts, Script{Nome: nome, SQL: string(conteudo)})
	}
	return scripts, nil
}

// ApplySchema executa todos os scripts em uma única transação. Os scripts
// usam IF NOT EXISTS e podem ser reaplicados.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	scripts, err := Scripts()
	if err != nil {
		return nil, err
	}

	aplicados := make([]string, 0, len(scripts))
	err = WithTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		for _, s := range scripts {
			if _, err := tx.Exec(ctx, s.SQL); err != nil {
				return fmt.Errorf("aplicar %s: %w", s.Nome, err)
			}
			aplicados = append(aplicados, s.Nome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return aplicados, nil
}
