package alerta

import (
	"time"

	"github.com/google/uuid"
)

// Alerta é um pedido de criação de alerta para uma unidade. A entrega e o
// armazenamento ficam a cargo do consumidor da fila.
type Alerta struct {
	ID             uuid.UUID `json:"id"`
	ProcessoCodigo int64     `json:"processoCodigo"`
	UnidadeCodigo  int64     `json:"unidadeCodigo"`
	UnidadeSigla   string    `json:"unidadeSigla"`
	Descricao      string    `json:"descricao"`
	// Agregado marca o alerta genérico enviado à unidade superior.
	Agregado bool      `json:"agregado"`
	CriadoEm time.Time `json:"criadoEm"`
}

// Evento descreve a ocorrência que origina alertas.
type Evento struct {
	ProcessoCodigo int64
	// UnidadeOrigem é a unidade dona do subprocesso em que o evento ocorreu.
	UnidadeOrigem int64
	// UnidadeDestino recebe sempre a mensagem específica.
	UnidadeDestino int64
	Mensagem       string
	// MensagemSuperior é a mensagem genérica para a superior da unidade de
	// origem; vazia usa o texto padrão.
	MensagemSuperior string
}

// Novo cria um alerta com identificador e data preenchidos.
func Novo(processo, unidade int64, sigla, descricao string, em time.Time) Alerta {
	return Alerta{
		ID:             uuid.New(),
		ProcessoCodigo: processo,
		UnidadeCodigo:  unidade,
		UnidadeSigla:   sigla,
		Descricao:      descricao,
		CriadoEm:       em,
	}
}
