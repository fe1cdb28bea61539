package http

import (
	"errors"
	"net/http"

	"github.com/lgalvao/sgc-sub008/internal/perfil"
	"github.com/lgalvao/sgc-sub008/internal/unidade"
)

type responsavelResposta struct {
	UnidadeCodigo int64   `json:"unidadeCodigo"`
	UnidadeSigla  string  `json:"unidadeSigla"`
	Titular       *string `json:"titular"`
	Substituto    *string `json:"substituto"`
}

// Responsavel informa o chefe titular e o substituto em exercício na unidade.
func (h *Handler) Responsavel(w http.ResponseWriter, r *http.Request) {
	codigo, ok := codigoParam(w, r)
	if !ok {
		return
	}

	hier, err := h.unidades.Hierarquia(r.Context())
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	u, err := hier.Buscar(codigo)
	if err != nil {
		if errors.Is(err, unidade.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NAO_ENCONTRADO", "unidade não encontrada", nil)
			return
		}
		h.writeWorkflowError(w, r, err)
		return
	}

	resp, err := h.responsaveis.Responsavel(r.Context(), codigo, u.TituloTitular, h.agora())
	if err != nil {
		if errors.Is(err, perfil.ErrResponsavelAmbiguo) {
			WriteError(w, http.StatusConflict, "RESPONSAVEL_AMBIGUO", "mais de dois chefes ativos na unidade", nil)
			return
		}
		h.writeWorkflowError(w, r, err)
		return
	}

	out := responsavelResposta{UnidadeCodigo: codigo, UnidadeSigla: hier.Sigla(codigo)}
	if resp.Titular != nil {
		out.Titular = &resp.Titular.UsuarioTitulo
	}
	if resp.Substituto != nil {
		out.Substituto = &resp.Substituto.UsuarioTitulo
	}
	WriteJSON(w, http.StatusOK, out)
}
