package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/lgalvao/sgc-sub008/internal/http/middleware"
	"github.com/lgalvao/sgc-sub008/internal/subprocesso"
)

var statusPorTipo = map[subprocesso.TipoErro]int{
	subprocesso.TipoTransicaoInvalida:   http.StatusConflict,
	subprocesso.TipoProibido:            http.StatusForbidden,
	subprocesso.TipoPreRequisitoAusente: http.StatusUnprocessableEntity,
	subprocesso.TipoValidacao:           http.StatusBadRequest,
	subprocesso.TipoNaoEncontrado:       http.StatusNotFound,
}

// writeWorkflowError traduz erros do motor para o envelope HTTP. Falhas de
// infraestrutura viram 500 com mensagem genérica.
func (h *Handler) writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	var werr *subprocesso.Erro
	if errors.As(err, &werr) {
		if status, ok := statusPorTipo[werr.Tipo]; ok {
			WriteError(w, status, string(werr.Tipo), werr.Mensagem, nil)
			return
		}
	}

	h.logger.Error().Err(err).
		Str("path", r.URL.Path).
		Str("request_id", chimiddleware.GetReqID(r.Context())).
		Msg("falha interna no workflow")
	WriteError(w, http.StatusInternalServerError, string(subprocesso.TipoInterno), "erro interno", nil)
}

func ator(r *http.Request) subprocesso.Ator {
	ctx := r.Context()
	return subprocesso.Ator{
		Usuario: httpmiddleware.GetSubject(ctx),
		Unidade: httpmiddleware.GetUnidade(ctx),
	}
}

func codigoParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	codigo, err := strconv.ParseInt(chi.URLParam(r, "codigo"), 10, 64)
	if err != nil || codigo <= 0 {
		WriteError(w, http.StatusBadRequest, string(subprocesso.TipoValidacao), "código inválido", nil)
		return 0, false
	}
	return codigo, true
}

// DetalharSubprocesso devolve o subprocesso com a localização atual.
func (h *Handler) DetalharSubprocesso(w http.ResponseWriter, r *http.Request) {
	codigo, ok := codigoParam(w, r)
	if !ok {
		return
	}

	detalhe, err := h.workflow.Detalhar(r.Context(), codigo)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, detalhe)
}

// Permissoes devolve o conjunto de permissões do usuário no subprocesso.
func (h *Handler) Permissoes(w http.ResponseWriter, r *http.Request) {
	codigo, ok := codigoParam(w, r)
	if !ok {
		return
	}

	permissoes, err := h.workflow.CalcularPermissoes(r.Context(), codigo, ator(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, permissoes)
}

// Historico devolve análises e movimentações, das mais recentes para as mais
// antigas.
func (h *Handler) Historico(w http.ResponseWriter, r *http.Request) {
	codigo, ok := codigoParam(w, r)
	if !ok {
		return
	}

	hist, err := h.workflow.ListarHistorico(r.Context(), codigo)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, hist)
}

// AplicarAcao executa uma ação do workflow sobre um subprocesso.
func (h *Handler) AplicarAcao(w http.ResponseWriter, r *http.Request) {
	codigo, ok := codigoParam(w, r)
	if !ok {
		return
	}

	var payload acaoPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}

	acao := subprocesso.Acao(chi.URLParam(r, "acao"))
	res, err := h.workflow.AplicarAcao(r.Context(), codigo, acao, ator(r), payload.dados())
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type resultadoBloco struct {
	Resultados []subprocesso.ResultadoUnidade `json:"resultados"`
	Falhas     int                            `json:"falhas"`
}

func novoResultadoBloco(resultados []subprocesso.ResultadoUnidade) resultadoBloco {
	return resultadoBloco{Resultados: resultados, Falhas: subprocesso.ContarFalhas(resultados)}
}

// ProcessarEmBloco aplica a ação aos subprocessos das unidades informadas.
// Cada unidade tem resultado próprio; falhas parciais respondem 200.
func (h *Handler) ProcessarEmBloco(w http.ResponseWriter, r *http.Request) {
	processo, ok := codigoParam(w, r)
	if !ok {
		return
	}

	var payload blocoPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}

	acao := subprocesso.Acao(chi.URLParam(r, "acao"))
	resultados, err := h.workflow.ProcessarEmBloco(r.Context(), processo, payload.Unidades, acao, ator(r), payload.dados())
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, novoResultadoBloco(resultados))
}

// IniciarProcesso cria os subprocessos das unidades participantes.
func (h *Handler) IniciarProcesso(w http.ResponseWriter, r *http.Request) {
	processo, ok := codigoParam(w, r)
	if !ok {
		return
	}

	var payload iniciarPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	dataLimite, _ := parseData(payload.DataLimite)

	resultados, err := h.workflow.IniciarProcesso(r.Context(), processo, payload.Unidades, ator(r), dataLimite)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, novoResultadoBloco(resultados))
}
