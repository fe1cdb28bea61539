package subprocesso

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

var eventos = construirEventos(Regras)

// construirEventos traduz a tabela de regras em eventos da máquina. Ações
// que mantêm a situação viram um evento por origem com destino igual à
// própria origem.
func construirEventos(regras []Regra) fsm.Events {
	var evs fsm.Events
	for _, r := range regras {
		if r.Destino != "" {
			src := make([]string, len(r.Origens))
			for i, o := range r.Origens {
				src[i] = string(o)
			}
			evs = append(evs, fsm.EventDesc{Name: string(r.Acao), Src: src, Dst: string(r.Destino)})
			continue
		}
		for _, o := range r.Origens {
			evs = append(evs, fsm.EventDesc{Name: string(r.Acao), Src: []string{string(o)}, Dst: string(o)})
		}
	}
	return evs
}

// transitar aplica a ação sobre a situação atual e devolve a situação
// resultante.
func transitar(ctx context.Context, atual Situacao, acao Acao) (Situacao, error) {
	m := fsm.NewFSM(string(atual), eventos, fsm.Callbacks{})

	if err := m.Event(ctx, string(acao)); err != nil {
		var (
			semTransicao fsm.NoTransitionError
			invalido     fsm.InvalidEventError
			desconhecido fsm.UnknownEventError
		)
		switch {
		case errors.As(err, &semTransicao):
		case errors.As(err, &invalido):
			return "", novoErro(TipoTransicaoInvalida, "ação %s não permitida na situação %s", acao, atual)
		case errors.As(err, &desconhecido):
			return "", novoErro(TipoValidacao, "ação desconhecida: %s", acao)
		default:
			return "", fmt.Errorf("transição %s: %w", acao, err)
		}
	}

	destino := Situacao(m.Current())
	if !destino.Valida() {
		return "", fmt.Errorf("situação resultante fora do conjunto: %q", destino)
	}
	return destino, nil
}
