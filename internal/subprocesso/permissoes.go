package subprocesso

import (
	"github.com/lgalvao/sgc-sub008/internal/perfil"
	"github.com/lgalvao/sgc-sub008/internal/unidade"
)

// Permissoes é o conjunto de capacidades do ator sobre um subprocesso.
// Calculado a cada requisição, nunca persistido.
type Permissoes struct {
	PodeEditarCadastro         bool `json:"podeEditarCadastro"`
	PodeDisponibilizarCadastro bool `json:"podeDisponibilizarCadastro"`
	PodeDevolverCadastro       bool `json:"podeDevolverCadastro"`
	PodeAceitarCadastro        bool `json:"podeAceitarCadastro"`
	PodeHomologarCadastro      bool `json:"podeHomologarCadastro"`
	PodeEditarMapa             bool `json:"podeEditarMapa"`
	PodeDisponibilizarMapa     bool `json:"podeDisponibilizarMapa"`
	PodeApresentarSugestoes    bool `json:"podeApresentarSugestoes"`
	PodeValidarMapa            bool `json:"podeValidarMapa"`
	PodeDevolverValidacao      bool `json:"podeDevolverValidacao"`
	PodeAceitarMapa            bool `json:"podeAceitarMapa"`
	PodeHomologarMapa          bool `json:"podeHomologarMapa"`
	PodeFinalizar              bool `json:"podeFinalizar"`
	PodeAlterarDataLimite      bool `json:"podeAlterarDataLimite"`
	PodeReabrirCadastro        bool `json:"podeReabrirCadastro"`
	PodeReabrirRevisao         bool `json:"podeReabrirRevisao"`
	PodeVisualizarImpacto      bool `json:"podeVisualizarImpacto"`
	PodeEnviarLembrete         bool `json:"podeEnviarLembrete"`
}

func (p *Permissoes) campo(acao Acao) *bool {
	switch acao {
	case EditarCadastro:
		return &p.PodeEditarCadastro
	case DisponibilizarCadastro:
		return &p.PodeDisponibilizarCadastro
	case DevolverCadastro:
		return &p.PodeDevolverCadastro
	case AceitarCadastro:
		return &p.PodeAceitarCadastro
	case HomologarCadastro:
		return &p.PodeHomologarCadastro
	case EditarMapa:
		return &p.PodeEditarMapa
	case DisponibilizarMapa:
		return &p.PodeDisponibilizarMapa
	case ApresentarSugestoes:
		return &p.PodeApresentarSugestoes
	case ValidarMapa:
		return &p.PodeValidarMapa
	case DevolverValidacao:
		return &p.PodeDevolverValidacao
	case AceitarMapa:
		return &p.PodeAceitarMapa
	case HomologarMapa:
		return &p.PodeHomologarMapa
	case Finalizar:
		return &p.PodeFinalizar
	case AlterarDataLimite:
		return &p.PodeAlterarDataLimite
	case ReabrirProcesso:
		return &p.PodeReabrirCadastro
	case ReabrirRevisao:
		return &p.PodeReabrirRevisao
	case VisualizarImpacto:
		return &p.PodeVisualizarImpacto
	case EnviarLembrete:
		return &p.PodeEnviarLembrete
	}
	return nil
}

// Habilitada informa o valor calculado para a ação.
func (p Permissoes) Habilitada(acao Acao) bool {
	if c := p.campo(acao); c != nil {
		return *c
	}
	return false
}

// Calcular deriva as permissões apenas da situação, dos perfis ativos do ator
// e da relação entre a unidade do ator e a do subprocesso.
func Calcular(situacao Situacao, perfis perfil.Perfis, relacao unidade.Relacao) Permissoes {
	var p Permissoes
	for _, r := range Regras {
		c := p.campo(r.Acao)
		if c == nil {
			continue
		}
		*c = r.PermiteOrigem(situacao) && r.Habilita(perfis, relacao)
	}
	return p
}
