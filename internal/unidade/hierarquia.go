package unidade

import (
	"fmt"
)

const semPai = -1

type no struct {
	unidade Unidade
	pai     int
	filhos  []int
}

// Hierarquia é um retrato imutável da árvore de unidades, indexado por código.
// Os percursos são iterativos sobre a tabela de ponteiros para o pai.
type Hierarquia struct {
	nos        []no
	indice     map[int64]int
	raizCodigo int64
	raizAlias  string
}

// Opcao ajusta a construção da hierarquia.
type Opcao func(*Hierarquia)

// ComRaiz define a unidade raiz técnica e o alias exibido para ela.
func ComRaiz(codigo int64, alias string) Opcao {
	return func(h *Hierarquia) {
		h.raizCodigo = codigo
		h.raizAlias = alias
	}
}

// NovaHierarquia monta a hierarquia a partir da lista plana de unidades.
func NovaHierarquia(unidades []Unidade, opts ...Opcao) (*Hierarquia, error) {
	h := &Hierarquia{
		nos:    make([]no, 0, len(unidades)),
		indice: make(map[int64]int, len(unidades)),
	}
	for _, opt := range opts {
		opt(h)
	}

	for _, u := range unidades {
		if _, ok := h.indice[u.Codigo]; ok {
			return nil, fmt.Errorf("%w: %d", ErrCodigoDuplicado, u.Codigo)
		}
		h.indice[u.Codigo] = len(h.nos)
		h.nos = append(h.nos, no{unidade: u, pai: semPai})
	}

	for i := range h.nos {
		sup := h.nos[i].unidade.CodigoSuperior
		if sup == nil {
			continue
		}
		p, ok := h.indice[*sup]
		if !ok {
			return nil, fmt.Errorf("%w: %d (superior de %d)", ErrSuperiorInexistente, *sup, h.nos[i].unidade.Codigo)
		}
		h.nos[i].pai = p
		h.nos[p].filhos = append(h.nos[p].filhos, i)
	}

	if err := h.detectarCiclos(); err != nil {
		return nil, err
	}

	return h, nil
}

func (h *Hierarquia) detectarCiclos() error {
	const (
		pendente = iota
		noCaminho
		resolvido
	)
	estado := make([]int, len(h.nos))

	for inicio := range h.nos {
		if estado[inicio] == resolvido {
			continue
		}

		var caminho []int
		atual := inicio
		for atual != semPai && estado[atual] != resolvido {
			if estado[atual] == noCaminho {
				return fmt.Errorf("%w: unidade %d", ErrCiclo, h.nos[atual].unidade.Codigo)
			}
			estado[atual] = noCaminho
			caminho = append(caminho, atual)
			atual = h.nos[atual].pai
		}

		for _, idx := range caminho {
			estado[idx] = resolvido
		}
	}

	return nil
}

// Buscar devolve a unidade pelo código.
func (h *Hierarquia) Buscar(codigo int64) (Unidade, error) {
	idx, ok := h.indice[codigo]
	if !ok {
		return Unidade{}, fmt.Errorf("%w: %d", ErrNotFound, codigo)
	}
	return h.nos[idx].unidade, nil
}

// Superior devolve a unidade imediatamente superior, se houver.
func (h *Hierarquia) Superior(codigo int64) (Unidade, bool) {
	idx, ok := h.indice[codigo]
	if !ok || h.nos[idx].pai == semPai {
		return Unidade{}, false
	}
	return h.nos[h.nos[idx].pai].unidade, true
}

// Ancestrais devolve a cadeia de superiores, do mais próximo até a raiz.
func (h *Hierarquia) Ancestrais(codigo int64) ([]Unidade, error) {
	idx, ok := h.indice[codigo]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, codigo)
	}

	var ancestrais []Unidade
	for p := h.nos[idx].pai; p != semPai; p = h.nos[p].pai {
		ancestrais = append(ancestrais, h.nos[p].unidade)
	}
	return ancestrais, nil
}

// EhDescendente indica se a unidade a está abaixo de b (estritamente).
func (h *Hierarquia) EhDescendente(a, b int64) bool {
	ia, okA := h.indice[a]
	ib, okB := h.indice[b]
	if !okA || !okB || ia == ib {
		return false
	}
	for p := h.nos[ia].pai; p != semPai; p = h.nos[p].pai {
		if p == ib {
			return true
		}
	}
	return false
}

// Descendentes lista todas as unidades abaixo da informada em largura.
func (h *Hierarquia) Descendentes(codigo int64) ([]Unidade, error) {
	idx, ok := h.indice[codigo]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, codigo)
	}

	var (
		resultado []Unidade
		fila      = append([]int(nil), h.nos[idx].filhos...)
	)
	for len(fila) > 0 {
		atual := fila[0]
		fila = fila[1:]
		resultado = append(resultado, h.nos[atual].unidade)
		fila = append(fila, h.nos[atual].filhos...)
	}
	return resultado, nil
}

// Elegiveis lista a própria unidade e suas descendentes aptas a receber
// subprocessos.
func (h *Hierarquia) Elegiveis(codigo int64) ([]Unidade, error) {
	raiz, err := h.Buscar(codigo)
	if err != nil {
		return nil, err
	}
	descendentes, err := h.Descendentes(codigo)
	if err != nil {
		return nil, err
	}

	var elegiveis []Unidade
	if raiz.Participa() {
		elegiveis = append(elegiveis, raiz)
	}
	for _, u := range descendentes {
		if u.Participa() {
			elegiveis = append(elegiveis, u)
		}
	}
	return elegiveis, nil
}

// Relacao classifica a unidade do ator frente à unidade alvo.
func (h *Hierarquia) Relacao(ator, alvo int64) Relacao {
	switch {
	case ator == alvo:
		if _, ok := h.indice[ator]; ok {
			return RelacaoMesma
		}
		return RelacaoNenhuma
	case h.EhDescendente(alvo, ator):
		return RelacaoSuperior
	case h.EhDescendente(ator, alvo):
		return RelacaoSubordinada
	default:
		return RelacaoNenhuma
	}
}

// Sigla devolve o rótulo exibido para a unidade. A raiz técnica aparece com
// o alias configurado.
func (h *Hierarquia) Sigla(codigo int64) string {
	if h.raizAlias != "" && codigo == h.raizCodigo {
		return h.raizAlias
	}
	idx, ok := h.indice[codigo]
	if !ok {
		return fmt.Sprintf("%d", codigo)
	}
	return h.nos[idx].unidade.Sigla
}
