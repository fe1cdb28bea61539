package perfil

import (
	"context"
	"fmt"
	"time"
)

// Fonte devolve as atribuições cadastradas, vigentes ou não.
type Fonte interface {
	ListarPorUsuarioUnidade(ctx context.Context, usuario string, unidade int64) ([]Atribuicao, error)
	ListarPorUnidadePerfil(ctx context.Context, unidade int64, perfil Perfil) ([]Atribuicao, error)
}

// Resolver responde quais perfis estão ativos em um instante. Não mantém
// cache: cada chamada consulta a fonte com o instante informado.
type Resolver struct {
	fonte Fonte
}

// NewResolver cria o resolvedor.
func NewResolver(fonte Fonte) *Resolver {
	return &Resolver{fonte: fonte}
}

// PerfisAtivos lista os perfis do usuário na unidade vigentes em "em".
func (r *Resolver) PerfisAtivos(ctx context.Context, usuario string, unidade int64, em time.Time) (Perfis, error) {
	atribuicoes, err := r.fonte.ListarPorUsuarioUnidade(ctx, usuario, unidade)
	if err != nil {
		return nil, fmt.Errorf("listar atribuições: %w", err)
	}

	var ativos []Perfil
	for _, a := range atribuicoes {
		if a.AtivaEm(em) {
			ativos = append(ativos, a.Perfil)
		}
	}
	return NovoConjunto(ativos...), nil
}

// Responsavel identifica titular e substituto entre os chefes ativos da
// unidade. O substituto é o chefe ativo que não corresponde ao título do
// titular oficial da unidade.
func (r *Resolver) Responsavel(ctx context.Context, unidade int64, tituloTitular string, em time.Time) (Responsavel, error) {
	chefes, err := r.fonte.ListarPorUnidadePerfil(ctx, unidade, Chefe)
	if err != nil {
		return Responsavel{}, fmt.Errorf("listar chefes: %w", err)
	}

	var ativos []Atribuicao
	for _, a := range chefes {
		if a.AtivaEm(em) {
			ativos = append(ativos, a)
		}
	}

	resp := Responsavel{UnidadeCodigo: unidade}
	switch len(ativos) {
	case 0:
		return resp, nil
	case 1:
		resp.Titular = &ativos[0]
		return resp, nil
	}
	if len(ativos) > 2 {
		return resp, fmt.Errorf("%w: unidade %d", ErrResponsavelAmbiguo, unidade)
	}

	titular, substituto := ativos[0], ativos[1]
	switch {
	case titular.UsuarioTitulo == tituloTitular:
	case substituto.UsuarioTitulo == tituloTitular:
		titular, substituto = substituto, titular
	case !titular.Permanente() && substituto.Permanente():
		titular, substituto = substituto, titular
	}

	resp.Titular = &titular
	resp.Substituto = &substituto
	return resp, nil
}
