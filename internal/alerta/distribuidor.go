package alerta

import (
	"fmt"
	"time"

	"github.com/lgalvao/sgc-sub008/internal/unidade"
)

const mensagemSuperiorPadrao = "Atividade registrada em unidade subordinada (%s)"

// Hierarquia é o recorte da estrutura organizacional usado na distribuição.
type Hierarquia interface {
	Buscar(codigo int64) (unidade.Unidade, error)
	Superior(codigo int64) (unidade.Unidade, bool)
	Sigla(codigo int64) string
}

// Distribuir calcula os alertas de um evento. A unidade de destino recebe a
// mensagem específica; se a unidade de origem tem subordinadas participantes,
// sua superior recebe apenas a mensagem genérica. Uma unidade nunca recebe
// dois alertas do mesmo evento.
func Distribuir(h Hierarquia, ev Evento, em time.Time) ([]Alerta, error) {
	if _, err := h.Buscar(ev.UnidadeDestino); err != nil {
		return nil, err
	}
	origem, err := h.Buscar(ev.UnidadeOrigem)
	if err != nil {
		return nil, err
	}

	alertas := []Alerta{
		Novo(ev.ProcessoCodigo, ev.UnidadeDestino, h.Sigla(ev.UnidadeDestino), ev.Mensagem, em),
	}

	if !origem.TemSubordinadasParticipantes() {
		return alertas, nil
	}

	superior, ok := h.Superior(origem.Codigo)
	if !ok || superior.Codigo == ev.UnidadeDestino {
		return alertas, nil
	}

	texto := ev.MensagemSuperior
	if texto == "" {
		texto = fmt.Sprintf(mensagemSuperiorPadrao, h.Sigla(origem.Codigo))
	}
	agregado := Novo(ev.ProcessoCodigo, superior.Codigo, h.Sigla(superior.Codigo), texto, em)
	agregado.Agregado = true

	return append(alertas, agregado), nil
}
