package subprocesso

import (
	"errors"
	"fmt"
)

// TipoErro classifica as rejeições de negócio do fluxo.
type TipoErro string

const (
	TipoTransicaoInvalida   TipoErro = "TRANSICAO_INVALIDA"
	TipoProibido            TipoErro = "PROIBIDO"
	TipoPreRequisitoAusente TipoErro = "PRE_REQUISITO_AUSENTE"
	TipoValidacao           TipoErro = "VALIDACAO"
	TipoNaoEncontrado       TipoErro = "NAO_ENCONTRADO"
	// TipoInterno cobre falhas de infraestrutura.
	TipoInterno TipoErro = "INTERNAL"
)

// Erro é uma rejeição de negócio com tipo e mensagem para o usuário.
type Erro struct {
	Tipo     TipoErro `json:"tipo"`
	Mensagem string   `json:"mensagem"`
}

func (e *Erro) Error() string {
	return fmt.Sprintf("%s: %s", e.Tipo, e.Mensagem)
}

// Is compara apenas o tipo, permitindo errors.Is contra as sentinelas.
func (e *Erro) Is(target error) bool {
	var t *Erro
	if !errors.As(target, &t) {
		return false
	}
	return t.Tipo == e.Tipo
}

var (
	ErrTransicaoInvalida   = &Erro{Tipo: TipoTransicaoInvalida, Mensagem: "ação não permitida na situação atual"}
	ErrProibido            = &Erro{Tipo: TipoProibido, Mensagem: "usuário sem permissão para a ação"}
	ErrPreRequisitoAusente = &Erro{Tipo: TipoPreRequisitoAusente, Mensagem: "pré-requisito ausente"}
	ErrValidacao           = &Erro{Tipo: TipoValidacao, Mensagem: "dados inválidos"}
	ErrNaoEncontrado       = &Erro{Tipo: TipoNaoEncontrado, Mensagem: "registro não encontrado"}
)

func novoErro(tipo TipoErro, formato string, args ...any) *Erro {
	return &Erro{Tipo: tipo, Mensagem: fmt.Sprintf(formato, args...)}
}

// TipoDe devolve o tipo de um erro; qualquer erro fora da taxonomia é
// interno.
func TipoDe(err error) TipoErro {
	if err == nil {
		return ""
	}
	var e *Erro
	if errors.As(err, &e) {
		return e.Tipo
	}
	return TipoInterno
}
