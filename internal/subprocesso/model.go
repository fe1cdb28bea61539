package subprocesso

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Situacao é o estado do subprocesso no fluxo de trabalho.
type Situacao string

const (
	NaoIniciado             Situacao = "NAO_INICIADO"
	CadastroEmAndamento     Situacao = "CADASTRO_EM_ANDAMENTO"
	CadastroDisponibilizado Situacao = "CADASTRO_DISPONIBILIZADO"
	CadastroDevolvido       Situacao = "CADASTRO_DEVOLVIDO"
	CadastroHomologado      Situacao = "CADASTRO_HOMOLOGADO"
	MapaDisponibilizado     Situacao = "MAPA_DISPONIBILIZADO"
	MapaComSugestoes        Situacao = "MAPA_COM_SUGESTOES"
	MapaDevolvido           Situacao = "MAPA_DEVOLVIDO"
	MapaValidado            Situacao = "MAPA_VALIDADO"
	MapaHomologado          Situacao = "MAPA_HOMOLOGADO"
	Homologado              Situacao = "HOMOLOGADO"
)

// Situacoes lista todos os estados na ordem do fluxo.
var Situacoes = []Situacao{
	NaoIniciado,
	CadastroEmAndamento,
	CadastroDisponibilizado,
	CadastroDevolvido,
	CadastroHomologado,
	MapaDisponibilizado,
	MapaComSugestoes,
	MapaDevolvido,
	MapaValidado,
	MapaHomologado,
	Homologado,
}

var etapaSituacao = map[Situacao]int{
	NaoIniciado:             1,
	CadastroEmAndamento:     1,
	CadastroDisponibilizado: 1,
	CadastroDevolvido:       1,
	CadastroHomologado:      1,
	MapaDisponibilizado:     2,
	MapaComSugestoes:        2,
	MapaDevolvido:           2,
	MapaValidado:            2,
	MapaHomologado:          2,
	Homologado:              2,
}

// ParseSituacao converte o texto persistido em Situacao.
func ParseSituacao(s string) (Situacao, bool) {
	sit := Situacao(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := etapaSituacao[sit]
	return sit, ok
}

// Valida indica se a situação pertence ao conjunto conhecido.
func (s Situacao) Valida() bool {
	_, ok := etapaSituacao[s]
	return ok
}

// Etapa devolve 1 para o cadastro e 2 para mapeamento/validação.
func (s Situacao) Etapa() int {
	return etapaSituacao[s]
}

// TipoAnalise identifica a etapa revisada por uma análise.
type TipoAnalise string

const (
	AnaliseCadastro  TipoAnalise = "CADASTRO"
	AnaliseValidacao TipoAnalise = "VALIDACAO"
)

// Processo agrupa os subprocessos das unidades participantes.
type Processo struct {
	Codigo    int64     `json:"codigo"`
	Descricao string    `json:"descricao"`
	Tipo      string    `json:"tipo"`
	CriadoEm  time.Time `json:"criadoEm"`
}

// Subprocesso é a participação de uma unidade em um processo.
type Subprocesso struct {
	Codigo            int64      `json:"codigo"`
	ProcessoCodigo    int64      `json:"processoCodigo"`
	ProcessoDescricao string     `json:"processoDescricao,omitempty"`
	UnidadeCodigo     int64      `json:"unidadeCodigo"`
	MapaCodigo        *int64     `json:"mapaCodigo,omitempty"`
	Situacao          Situacao   `json:"situacao"`
	DataLimiteEtapa1  *time.Time `json:"dataLimiteEtapa1,omitempty"`
	DataFimEtapa1     *time.Time `json:"dataFimEtapa1,omitempty"`
	DataLimiteEtapa2  *time.Time `json:"dataLimiteEtapa2,omitempty"`
	DataFimEtapa2     *time.Time `json:"dataFimEtapa2,omitempty"`
	Versao            int64      `json:"versao"`
}

// DataLimite devolve o prazo da etapa da situação atual.
func (s Subprocesso) DataLimite() *time.Time {
	if s.Situacao.Etapa() == 2 {
		return s.DataLimiteEtapa2
	}
	return s.DataLimiteEtapa1
}

// Analise registra uma decisão de revisão. Imutável.
type Analise struct {
	ID                uuid.UUID   `json:"id"`
	SubprocessoCodigo int64       `json:"subprocessoCodigo"`
	Tipo              TipoAnalise `json:"tipo"`
	Acao              Acao        `json:"acao"`
	UsuarioTitulo     string      `json:"usuarioTitulo"`
	UnidadeCodigo     int64       `json:"unidadeCodigo"`
	Observacoes       string      `json:"observacoes"`
	DataHora          time.Time   `json:"dataHora"`
}

// Movimentacao registra a troca de custódia entre unidades. Imutável.
type Movimentacao struct {
	ID                uuid.UUID `json:"id"`
	SubprocessoCodigo int64     `json:"subprocessoCodigo"`
	UnidadeOrigem     int64     `json:"unidadeOrigem"`
	UnidadeDestino    int64     `json:"unidadeDestino"`
	UsuarioTitulo     string    `json:"usuarioTitulo"`
	Descricao         string    `json:"descricao"`
	DataHora          time.Time `json:"dataHora"`
}

// Historico reúne análises e movimentações, das mais recentes para as mais
// antigas.
type Historico struct {
	Analises      []Analise      `json:"analises"`
	Movimentacoes []Movimentacao `json:"movimentacoes"`
}

// LocalizacaoAtual é o destino da movimentação mais recente.
func (h Historico) LocalizacaoAtual() (int64, bool) {
	if len(h.Movimentacoes) == 0 {
		return 0, false
	}
	return h.Movimentacoes[0].UnidadeDestino, true
}

// Ator identifica quem executa a ação e a unidade em que está atuando.
type Ator struct {
	Usuario string
	Unidade int64
}

// Dados é a carga específica de cada ação.
type Dados struct {
	Observacoes   string     `json:"observacoes"`
	Justificativa string     `json:"justificativa"`
	DataLimite    *time.Time `json:"dataLimite"`
}

func novoID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
