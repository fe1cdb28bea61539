package unidade

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("unidade não encontrada")
	ErrCodigoDuplicado     = errors.New("código de unidade duplicado")
	ErrSuperiorInexistente = errors.New("unidade superior inexistente")
	ErrCiclo               = errors.New("ciclo na hierarquia de unidades")
	ErrTipoDesconhecido    = errors.New("tipo de unidade desconhecido")
)

// Tipo classifica a unidade dentro da estrutura organizacional.
type Tipo string

const (
	TipoOperacional      Tipo = "OPERACIONAL"
	TipoIntermediaria    Tipo = "INTERMEDIARIA"
	TipoInteroperacional Tipo = "INTEROPERACIONAL"
	TipoSemEquipe        Tipo = "SEM_EQUIPE"
	TipoRaiz             Tipo = "RAIZ"
)

var validTipos = map[Tipo]struct{}{
	TipoOperacional:      {},
	TipoIntermediaria:    {},
	TipoInteroperacional: {},
	TipoSemEquipe:        {},
	TipoRaiz:             {},
}

// Unidade representa uma unidade organizacional.
type Unidade struct {
	Codigo         int64  `json:"codigo"`
	Sigla          string `json:"sigla"`
	Nome           string `json:"nome"`
	Tipo           Tipo   `json:"tipo"`
	CodigoSuperior *int64 `json:"codigoSuperior,omitempty"`
	TituloTitular  string `json:"tituloTitular,omitempty"`
}

// TemSubordinadasParticipantes indica unidades cujas subordinadas também
// participam dos processos (intermediárias e interoperacionais).
func (u Unidade) TemSubordinadasParticipantes() bool {
	return u.Tipo == TipoIntermediaria || u.Tipo == TipoInteroperacional
}

// Participa indica se a unidade pode receber um subprocesso.
func (u Unidade) Participa() bool {
	switch u.Tipo {
	case TipoOperacional, TipoIntermediaria, TipoInteroperacional:
		return true
	default:
		return false
	}
}

// NormalizeTipo padroniza o tipo informado.
func NormalizeTipo(tipo string) Tipo {
	return Tipo(strings.ToUpper(strings.TrimSpace(tipo)))
}

// IsValidTipo indica se o tipo é aceito.
func IsValidTipo(tipo Tipo) bool {
	_, ok := validTipos[tipo]
	return ok
}

// ParseTipo normaliza o tipo lido e rejeita valores fora do cadastro.
func ParseTipo(valor string) (Tipo, error) {
	tipo := NormalizeTipo(valor)
	if !IsValidTipo(tipo) {
		return "", fmt.Errorf("%w: %q", ErrTipoDesconhecido, valor)
	}
	return tipo, nil
}

// Relacao descreve a posição da unidade do ator em relação a outra unidade.
type Relacao string

const (
	// RelacaoMesma: o ator está na própria unidade.
	RelacaoMesma Relacao = "MESMA"
	// RelacaoSuperior: a unidade do ator é ancestral da unidade alvo.
	RelacaoSuperior Relacao = "SUPERIOR"
	// RelacaoSubordinada: a unidade do ator é descendente da unidade alvo.
	RelacaoSubordinada Relacao = "SUBORDINADA"
	RelacaoNenhuma     Relacao = "NENHUMA"
)
