package perfil

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrResponsavelAmbiguo = errors.New("mais de dois responsáveis ativos para a unidade")
	ErrJanelaInvalida     = errors.New("data de término anterior à data de início")
)

// Perfil representa o papel de um usuário em uma unidade.
type Perfil string

const (
	Admin    Perfil = "ADMIN"
	Gestor   Perfil = "GESTOR"
	Chefe    Perfil = "CHEFE"
	Servidor Perfil = "SERVIDOR"
)

var ordemPerfis = map[Perfil]int{
	Admin:    0,
	Gestor:   1,
	Chefe:    2,
	Servidor: 3,
}

// Normalize padroniza o perfil informado.
func Normalize(p string) Perfil {
	return Perfil(strings.ToUpper(strings.TrimSpace(p)))
}

// IsValid indica se o perfil é aceito.
func IsValid(p Perfil) bool {
	_, ok := ordemPerfis[p]
	return ok
}

// Perfis é um conjunto ordenado e sem repetição de perfis.
type Perfis []Perfil

// NovoConjunto deduplica e ordena os perfis válidos informados.
func NovoConjunto(perfis ...Perfil) Perfis {
	vistos := make(map[Perfil]struct{}, len(perfis))
	out := make(Perfis, 0, len(perfis))
	for _, p := range perfis {
		if !IsValid(p) {
			continue
		}
		if _, ok := vistos[p]; ok {
			continue
		}
		vistos[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return ordemPerfis[out[i]] < ordemPerfis[out[j]] })
	return out
}

// Contem indica se o conjunto possui o perfil.
func (ps Perfis) Contem(p Perfil) bool {
	for _, atual := range ps {
		if atual == p {
			return true
		}
	}
	return false
}

// Atribuicao associa usuário, unidade e perfil. Sem datas, a atribuição é
// permanente; com datas, vale apenas dentro da janela (limites inclusivos).
type Atribuicao struct {
	Codigo        int64      `json:"codigo"`
	UsuarioTitulo string     `json:"usuarioTitulo"`
	UnidadeCodigo int64      `json:"unidadeCodigo"`
	Perfil        Perfil     `json:"perfil"`
	DataInicio    *time.Time `json:"dataInicio,omitempty"`
	DataTermino   *time.Time `json:"dataTermino,omitempty"`
}

// Permanente indica atribuição sem janela de vigência.
func (a Atribuicao) Permanente() bool {
	return a.DataInicio == nil && a.DataTermino == nil
}

// AtivaEm indica se a atribuição vale no instante informado.
func (a Atribuicao) AtivaEm(t time.Time) bool {
	if a.DataInicio != nil && t.Before(*a.DataInicio) {
		return false
	}
	if a.DataTermino != nil && t.After(*a.DataTermino) {
		return false
	}
	return true
}

// Validate confere consistência da janela.
func (a Atribuicao) Validate() error {
	if !IsValid(a.Perfil) {
		return errors.New("perfil inválido")
	}
	if strings.TrimSpace(a.UsuarioTitulo) == "" {
		return errors.New("usuário obrigatório")
	}
	if a.DataInicio != nil && a.DataTermino != nil && a.DataTermino.Before(*a.DataInicio) {
		return ErrJanelaInvalida
	}
	return nil
}

// Responsavel reúne os chefes ativos da unidade.
type Responsavel struct {
	UnidadeCodigo int64       `json:"unidadeCodigo"`
	Titular       *Atribuicao `json:"titular,omitempty"`
	Substituto    *Atribuicao `json:"substituto,omitempty"`
}
