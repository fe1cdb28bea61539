package subprocesso

import (
	"slices"
	"strings"
	"time"

	"github.com/lgalvao/sgc-sub008/internal/perfil"
	"github.com/lgalvao/sgc-sub008/internal/unidade"
)

// Acao é o nome de uma regra do fluxo.
type Acao string

const (
	DisponibilizarCadastro Acao = "disponibilizarCadastro"
	DevolverCadastro       Acao = "devolverCadastro"
	AceitarCadastro        Acao = "aceitarCadastro"
	HomologarCadastro      Acao = "homologarCadastro"
	DisponibilizarMapa     Acao = "disponibilizarMapa"
	ApresentarSugestoes    Acao = "apresentarSugestoes"
	ValidarMapa            Acao = "validarMapa"
	DevolverValidacao      Acao = "devolverValidacao"
	AceitarMapa            Acao = "aceitarMapa"
	HomologarMapa          Acao = "homologarMapa"
	Finalizar              Acao = "finalizar"
	ReabrirProcesso        Acao = "reabrirProcesso"
	ReabrirRevisao         Acao = "reabrirRevisao"
	AlterarDataLimite      Acao = "alterarDataLimite"
	EditarCadastro         Acao = "editarCadastro"
	EditarMapa             Acao = "editarMapa"
	VisualizarImpacto      Acao = "visualizarImpacto"
	EnviarLembrete         Acao = "enviarLembrete"
)

// Natureza diz como o motor trata a regra.
type Natureza int

const (
	// Transicao grava análise e, quando houver destino, movimentação.
	Transicao Natureza = iota
	// Notificacao apenas gera alerta, sem trilha de auditoria.
	Notificacao
	// Capacidade só alimenta o cálculo de permissões.
	Capacidade
)

// DestinoMov indica para onde vai a movimentação gerada pela ação.
type DestinoMov int

const (
	SemMovimentacao DestinoMov = iota
	// SuperiorAtor é a superior da unidade do ator (ou ela mesma, na raiz).
	SuperiorAtor
	UnidadeSubprocesso
	UnidadeAtor
)

// Habilitacao associa um perfil às relações de unidade em que ele atua.
// Relacoes vazio vale para qualquer relação.
type Habilitacao struct {
	Perfil   perfil.Perfil
	Relacoes []unidade.Relacao
}

// Regra descreve uma ação: estados de origem, estado final, quem pode
// executá-la e os registros produzidos. Motor e calculadora de permissões
// leem a mesma tabela.
type Regra struct {
	Acao     Acao
	Natureza Natureza
	Origens  []Situacao
	// Destino vazio mantém a situação.
	Destino     Situacao
	Habilitados []Habilitacao
	// TipoAnalise vazio usa a etapa da situação atual.
	TipoAnalise TipoAnalise
	DestinoMov  DestinoMov

	RequerMapa          bool
	RequerObservacoes   bool
	RequerJustificativa bool
	RequerDataLimite    bool
	// AceitaDataLimite grava o prazo opcional da etapa resultante.
	AceitaDataLimite bool
	// FechaEtapa preenche dataFimEtapaN.
	FechaEtapa int
	// ReabreEtapa limpa dataFimEtapaN para N >= ReabreEtapa.
	ReabreEtapa int

	// DescricaoMov e MensagemAlerta recebem a sigla da unidade do subprocesso.
	DescricaoMov   string
	MensagemAlerta string
}

var (
	somenteAdmin = []Habilitacao{{Perfil: perfil.Admin}}
	chefeMesma   = []Habilitacao{{Perfil: perfil.Chefe, Relacoes: []unidade.Relacao{unidade.RelacaoMesma}}}
	gestorAcima  = []Habilitacao{{Perfil: perfil.Gestor, Relacoes: []unidade.Relacao{unidade.RelacaoSuperior}}}

	gestorOuAdmin = []Habilitacao{
		{Perfil: perfil.Gestor, Relacoes: []unidade.Relacao{unidade.RelacaoSuperior}},
		{Perfil: perfil.Admin},
	}

	situacoesEmAndamento = []Situacao{
		CadastroEmAndamento, CadastroDisponibilizado, CadastroDevolvido,
		MapaDisponibilizado, MapaComSugestoes, MapaDevolvido, MapaValidado,
	}
)

// Regras é a tabela única de ações do fluxo.
var Regras = []Regra{
	{
		Acao:           DisponibilizarCadastro,
		Origens:        []Situacao{CadastroEmAndamento, CadastroDevolvido},
		Destino:        CadastroDisponibilizado,
		Habilitados:    chefeMesma,
		TipoAnalise:    AnaliseCadastro,
		DestinoMov:     SuperiorAtor,
		DescricaoMov:   "Disponibilização do cadastro de atividades da unidade %s",
		MensagemAlerta: "Cadastro de atividades da unidade %s disponibilizado para análise",
	},
	{
		Acao:           DevolverCadastro,
		Origens:        []Situacao{CadastroDisponibilizado},
		Destino:        CadastroDevolvido,
		Habilitados:    gestorOuAdmin,
		TipoAnalise:    AnaliseCadastro,
		DestinoMov:     UnidadeSubprocesso,
		DescricaoMov:   "Devolução do cadastro de atividades da unidade %s para ajustes",
		MensagemAlerta: "Cadastro de atividades da unidade %s devolvido para ajustes",
	},
	{
		Acao:           AceitarCadastro,
		Origens:        []Situacao{CadastroDisponibilizado},
		Habilitados:    gestorAcima,
		TipoAnalise:    AnaliseCadastro,
		DestinoMov:     SuperiorAtor,
		DescricaoMov:   "Cadastro de atividades da unidade %s aceito",
		MensagemAlerta: "Cadastro de atividades da unidade %s submetido para análise",
	},
	{
		Acao:           HomologarCadastro,
		Origens:        []Situacao{CadastroDisponibilizado},
		Destino:        CadastroHomologado,
		Habilitados:    somenteAdmin,
		TipoAnalise:    AnaliseCadastro,
		DestinoMov:     UnidadeAtor,
		FechaEtapa:     1,
		DescricaoMov:   "Cadastro de atividades da unidade %s homologado",
		MensagemAlerta: "Cadastro de atividades da unidade %s homologado",
	},
	{
		Acao:             DisponibilizarMapa,
		Origens:          []Situacao{CadastroHomologado, MapaComSugestoes, MapaDevolvido},
		Destino:          MapaDisponibilizado,
		Habilitados:      somenteAdmin,
		TipoAnalise:      AnaliseValidacao,
		DestinoMov:       UnidadeSubprocesso,
		RequerMapa:       true,
		AceitaDataLimite: true,
		DescricaoMov:     "Disponibilização do mapa de competências para a unidade %s",
		MensagemAlerta:   "Mapa de competências da unidade %s disponibilizado para validação",
	},
	{
		Acao:              ApresentarSugestoes,
		Origens:           []Situacao{MapaDisponibilizado},
		Destino:           MapaComSugestoes,
		Habilitados:       chefeMesma,
		TipoAnalise:       AnaliseValidacao,
		DestinoMov:        SuperiorAtor,
		RequerObservacoes: true,
		DescricaoMov:      "Apresentação de sugestões para o mapa da unidade %s",
		MensagemAlerta:    "Sugestões apresentadas para o mapa de competências da unidade %s",
	},
	{
		Acao:           ValidarMapa,
		Origens:        []Situacao{MapaDisponibilizado},
		Destino:        MapaValidado,
		Habilitados:    chefeMesma,
		TipoAnalise:    AnaliseValidacao,
		DestinoMov:     SuperiorAtor,
		DescricaoMov:   "Validação do mapa de competências da unidade %s",
		MensagemAlerta: "Mapa de competências da unidade %s validado",
	},
	{
		Acao:           DevolverValidacao,
		Origens:        []Situacao{MapaValidado, MapaComSugestoes},
		Destino:        MapaDevolvido,
		Habilitados:    gestorOuAdmin,
		TipoAnalise:    AnaliseValidacao,
		DestinoMov:     UnidadeSubprocesso,
		DescricaoMov:   "Devolução da validação do mapa da unidade %s para ajustes",
		MensagemAlerta: "Validação do mapa de competências da unidade %s devolvida para ajustes",
	},
	{
		Acao:           AceitarMapa,
		Origens:        []Situacao{MapaValidado},
		Habilitados:    gestorAcima,
		TipoAnalise:    AnaliseValidacao,
		DestinoMov:     SuperiorAtor,
		DescricaoMov:   "Mapa de competências da unidade %s aceito",
		MensagemAlerta: "Validação do mapa de competências da unidade %s submetida para análise",
	},
	{
		Acao:           HomologarMapa,
		Origens:        []Situacao{MapaValidado},
		Destino:        MapaHomologado,
		Habilitados:    somenteAdmin,
		TipoAnalise:    AnaliseValidacao,
		DestinoMov:     UnidadeAtor,
		FechaEtapa:     2,
		DescricaoMov:   "Mapa de competências da unidade %s homologado",
		MensagemAlerta: "Mapa de competências da unidade %s homologado",
	},
	{
		Acao:           Finalizar,
		Origens:        []Situacao{MapaHomologado},
		Destino:        Homologado,
		Habilitados:    somenteAdmin,
		TipoAnalise:    AnaliseValidacao,
		DestinoMov:     UnidadeAtor,
		DescricaoMov:   "Subprocesso da unidade %s finalizado",
		MensagemAlerta: "Mapa de competências da unidade %s vigente",
	},
	{
		Acao: ReabrirProcesso,
		Origens: []Situacao{
			CadastroHomologado, MapaDisponibilizado, MapaComSugestoes, MapaDevolvido,
			MapaValidado, MapaHomologado, Homologado,
		},
		Destino:             CadastroEmAndamento,
		Habilitados:         somenteAdmin,
		TipoAnalise:         AnaliseCadastro,
		DestinoMov:          UnidadeSubprocesso,
		RequerJustificativa: true,
		ReabreEtapa:         1,
		DescricaoMov:        "Reabertura do cadastro de atividades da unidade %s",
		MensagemAlerta:      "Cadastro de atividades da unidade %s reaberto",
	},
	{
		Acao:                ReabrirRevisao,
		Origens:             []Situacao{MapaValidado, MapaHomologado, Homologado},
		Destino:             CadastroHomologado,
		Habilitados:         somenteAdmin,
		TipoAnalise:         AnaliseValidacao,
		DestinoMov:          UnidadeSubprocesso,
		RequerJustificativa: true,
		ReabreEtapa:         2,
		DescricaoMov:        "Reabertura da revisão do mapa da unidade %s",
		MensagemAlerta:      "Revisão do mapa de competências da unidade %s reaberta",
	},
	{
		Acao:             AlterarDataLimite,
		Origens:          situacoesEmAndamento,
		Habilitados:      somenteAdmin,
		RequerDataLimite: true,
		MensagemAlerta:   "Data limite da etapa atual da unidade %s alterada para %s",
	},
	{
		Acao:           EnviarLembrete,
		Natureza:       Notificacao,
		Origens:        []Situacao{CadastroEmAndamento, CadastroDevolvido, MapaDisponibilizado},
		Habilitados:    gestorOuAdmin,
		MensagemAlerta: "Lembrete: o prazo da etapa atual da unidade %s termina em %s",
	},
	{
		Acao:        EditarCadastro,
		Natureza:    Capacidade,
		Origens:     []Situacao{NaoIniciado, CadastroEmAndamento, CadastroDevolvido},
		Habilitados: chefeMesma,
	},
	{
		Acao:        EditarMapa,
		Natureza:    Capacidade,
		Origens:     []Situacao{CadastroHomologado, MapaComSugestoes, MapaDevolvido},
		Habilitados: somenteAdmin,
	},
	{
		Acao:     VisualizarImpacto,
		Natureza: Capacidade,
		Origens: []Situacao{
			NaoIniciado, CadastroEmAndamento, CadastroDisponibilizado, CadastroDevolvido,
			CadastroHomologado, MapaComSugestoes, MapaDevolvido,
		},
		Habilitados: []Habilitacao{
			{Perfil: perfil.Admin},
			{Perfil: perfil.Gestor, Relacoes: []unidade.Relacao{unidade.RelacaoSuperior}},
			{Perfil: perfil.Chefe, Relacoes: []unidade.Relacao{unidade.RelacaoMesma}},
		},
	},
}

var indiceRegras = func() map[Acao]*Regra {
	idx := make(map[Acao]*Regra, len(Regras))
	for i := range Regras {
		idx[Regras[i].Acao] = &Regras[i]
	}
	return idx
}()

// RegraDe devolve a regra da ação.
func RegraDe(acao Acao) (Regra, bool) {
	r, ok := indiceRegras[acao]
	if !ok {
		return Regra{}, false
	}
	return *r, true
}

// PermiteOrigem indica se a situação está entre as origens da regra.
func (r Regra) PermiteOrigem(s Situacao) bool {
	return slices.Contains(r.Origens, s)
}

// Habilita indica se algum dos perfis do ator, na relação informada, pode
// executar a ação.
func (r Regra) Habilita(perfis perfil.Perfis, relacao unidade.Relacao) bool {
	for _, h := range r.Habilitados {
		if !perfis.Contem(h.Perfil) {
			continue
		}
		if len(h.Relacoes) == 0 || slices.Contains(h.Relacoes, relacao) {
			return true
		}
	}
	return false
}

// tipoAnalise resolve o tipo de análise gravado a partir da situação atual.
func (r Regra) tipoAnalise(atual Situacao) TipoAnalise {
	if r.TipoAnalise != "" {
		return r.TipoAnalise
	}
	if atual.Etapa() == 2 {
		return AnaliseValidacao
	}
	return AnaliseCadastro
}

func (r Regra) validar(d Dados, agora time.Time) error {
	if r.RequerObservacoes && strings.TrimSpace(d.Observacoes) == "" {
		return novoErro(TipoValidacao, "observações obrigatórias para %s", r.Acao)
	}
	if r.RequerJustificativa && strings.TrimSpace(d.Justificativa) == "" {
		return novoErro(TipoValidacao, "justificativa obrigatória para %s", r.Acao)
	}
	if r.RequerDataLimite && d.DataLimite == nil {
		return novoErro(TipoValidacao, "data limite obrigatória para %s", r.Acao)
	}
	if d.DataLimite != nil && r.usaDataLimite() && !d.DataLimite.After(agora) {
		return novoErro(TipoValidacao, "data limite deve ser posterior à data atual")
	}
	return nil
}

func (r Regra) usaDataLimite() bool {
	return r.RequerDataLimite || r.AceitaDataLimite
}

// aplicar produz o novo estado do subprocesso após a ação.
func (r Regra) aplicar(sp Subprocesso, destino Situacao, d Dados, agora time.Time) Subprocesso {
	novo := sp
	novo.Situacao = destino

	fim := agora
	switch r.FechaEtapa {
	case 1:
		novo.DataFimEtapa1 = &fim
	case 2:
		novo.DataFimEtapa2 = &fim
	}

	switch r.ReabreEtapa {
	case 1:
		novo.DataFimEtapa1 = nil
		novo.DataFimEtapa2 = nil
	case 2:
		novo.DataFimEtapa2 = nil
	}

	if d.DataLimite != nil && r.usaDataLimite() {
		limite := *d.DataLimite
		if destino.Etapa() == 2 {
			novo.DataLimiteEtapa2 = &limite
		} else {
			novo.DataLimiteEtapa1 = &limite
		}
	}
	return novo
}

// observacoesAnalise monta o texto gravado na análise.
func (r Regra) observacoesAnalise(d Dados) string {
	switch {
	case r.RequerJustificativa:
		return strings.TrimSpace(d.Justificativa)
	case r.Acao == AlterarDataLimite && d.DataLimite != nil:
		texto := "Data limite alterada para " + d.DataLimite.Format(formatoData)
		if obs := strings.TrimSpace(d.Observacoes); obs != "" {
			texto += ": " + obs
		}
		return texto
	default:
		return strings.TrimSpace(d.Observacoes)
	}
}
